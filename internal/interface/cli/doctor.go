package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deetdd/internal/adapter/gateway/agent"
)

// DoctorCheck is the outcome of one environment probe
type DoctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// DoctorJSON represents the JSON output structure for doctor command
type DoctorJSON struct {
	WorkingDir string        `json:"working_dir"`
	Backend    string        `json:"backend"`
	Checks     []DoctorCheck `json:"checks"`
	Errors     int           `json:"errors"`
}

const doctorProbeTimeout = 15 * time.Second

func newDoctorCmd(opts *globalOptions) *cobra.Command {
	var jsonOutput bool
	var probe bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check environment & configuration",
		RunE: func(c *cobra.Command, _ []string) error {
			ws, err := opts.loadWorkspace(c)
			if err != nil {
				return err
			}

			report := DoctorJSON{WorkingDir: ws.paths.Root, Backend: ws.cfg.LLM.Backend}
			add := func(name string, err error, okDetail string) {
				check := DoctorCheck{Name: name, OK: err == nil, Detail: okDetail}
				if err != nil {
					check.Detail = err.Error()
					report.Errors++
				}
				report.Checks = append(report.Checks, check)
			}

			add("git", lookPath("git"), "found")
			for _, bin := range ws.verifierCommands().Binaries() {
				add("verifier "+bin, lookPath(bin), "found")
			}

			if _, err := ws.kata(); err != nil {
				add("kata", err, "")
			} else {
				add("kata", nil, ws.cfg.KataDescription)
			}

			switch ws.cfg.LLM.Backend {
			case agent.BackendClaudeCodeCLI:
				add("claude", lookPath(ws.cfg.LLM.ClaudeBin), ws.cfg.LLM.ClaudeBin)
			default:
				if os.Getenv(ws.cfg.LLM.APIKeyEnv) == "" {
					add("api key", fmt.Errorf("%s is not set", ws.cfg.LLM.APIKeyEnv), "")
				} else {
					add("api key", nil, ws.cfg.LLM.APIKeyEnv+" is set")
				}
			}

			if probe {
				add("backend", probeBackend(c.Context(), ws), "reachable")
			}

			if jsonOutput {
				enc := json.NewEncoder(c.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printDoctor(c.OutOrStdout(), report)
			}

			if report.Errors > 0 {
				return fmt.Errorf("doctor found %d problem(s)", report.Errors)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&probe, "probe", false, "Also contact the LLM backend")
	return cmd
}

func lookPath(bin string) error {
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%s not found in PATH", bin)
	}
	return nil
}

func probeBackend(ctx context.Context, ws *workspace) error {
	gateway, err := agent.NewAgentGateway(ws.gatewayConfig())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	return gateway.HealthCheck(ctx)
}

func printDoctor(out io.Writer, report DoctorJSON) {
	fmt.Fprintln(out, "WorkingDir:", report.WorkingDir)
	fmt.Fprintln(out, "Backend:", report.Backend)
	for _, check := range report.Checks {
		status := "OK"
		if !check.OK {
			status = "ERROR"
		}
		fmt.Fprintf(out, "%s: %s (%s)\n", status, check.Name, check.Detail)
	}
}
