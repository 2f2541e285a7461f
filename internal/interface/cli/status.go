package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deetdd/internal/application/usecase/run"
)

func newStatusCmd(opts *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the newest committed step and the last attempt",
		RunE: func(c *cobra.Command, _ []string) error {
			ws, err := opts.loadWorkspace(c)
			if err != nil {
				return err
			}

			status, err := run.NewStatusUseCase(ws.auditStore(), ws.journal()).Execute(c.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(c.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			printStatus(c.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func printStatus(out io.Writer, s *run.StatusOutput) {
	fmt.Fprintf(out, "Committed steps: %d\n", s.CommittedSteps)
	if s.Latest != nil {
		fmt.Fprintf(out, "Latest:          step %d (%s) %s after %d attempt(s)\n",
			s.Latest.Step, s.Latest.Role, shortCommit(s.Latest.CommitID), s.Latest.Attempts)
	}
	fmt.Fprintf(out, "Next:            step %d (%s, %s)\n", s.NextStep, s.NextRole, s.NextRole.Phase())

	if a := s.LastAttempt; a != nil {
		fmt.Fprintf(out, "Last attempt:    step %d %s #%d %s (format=%s check=%s test=%s)\n",
			a.Step, a.Role, a.Attempt, a.Decision, okWord(a.FormatOK), okWord(a.CheckOK), okWord(a.TestOK))
		if a.Error != "" {
			fmt.Fprintf(out, "Error:           %s\n", a.Error)
		}
	}
	if s.Stalled {
		fmt.Fprintln(out, "The last step did not commit; fix the kata or configuration and run again.")
	}
}

func okWord(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
