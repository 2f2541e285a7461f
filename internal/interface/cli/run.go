package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deetdd/internal/app"
	"github.com/YoshitsuguKoike/deetdd/internal/application/usecase/run"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
	infraFs "github.com/YoshitsuguKoike/deetdd/internal/infra/fs"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var steps int
	var resume bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run red/green/refactor steps until the step budget is spent or a step fails",
		Long: `Run advances the kata one step at a time. Each step plans once, then edits and
verifies up to max_attempts_per_agent times. A step that runs out of attempts
stops the run; the repository is left at the last committed step.`,
		RunE: func(c *cobra.Command, _ []string) error {
			ws, err := opts.loadWorkspace(c)
			if err != nil {
				return err
			}
			if !c.Flags().Changed("steps") {
				steps = ws.cfg.Steps
			}
			return runSteps(c.Context(), c.OutOrStdout(), ws, steps, resume)
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 0, "Number of steps to run (default: steps from tdd.yaml)")
	cmd.Flags().BoolVar(&resume, "resume", true, "Continue after the newest committed step instead of starting at step 1")
	return cmd
}

func newStepCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "step",
		Short: "Advance exactly one step",
		RunE: func(c *cobra.Command, _ []string) error {
			ws, err := opts.loadWorkspace(c)
			if err != nil {
				return err
			}
			return runSteps(c.Context(), c.OutOrStdout(), ws, 1, true)
		},
	}
}

// runSteps holds the run lock, recovers the work tree and drives the engine
func runSteps(parent context.Context, out io.Writer, ws *workspace, steps int, resume bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := infraFs.AcquireRunLock(ws.paths.Lock)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			ws.logger.Warn("failed to release run lock: %v", err)
		}
	}()

	git := ws.gitGateway()
	if err := git.InitIfNeeded(ctx); err != nil {
		return err
	}
	store := ws.auditStore()
	next, nextRole, err := run.ResumePosition(ctx, store, git)
	if err != nil {
		return err
	}
	interrupted, err := run.InterruptedStep(ctx, store, ws.journal(), next, nextRole)
	if err != nil {
		return err
	}
	if _, err := app.RunStartupRecovery(ctx, git, interrupted, ws.logger); err != nil {
		return err
	}

	step, role := 1, tdd.RoleTester
	if resume {
		step, role = next, nextRole
	}

	parts, err := ws.buildEngine(step, role)
	if err != nil {
		return err
	}
	ws.logger.Info("Run %s starting at step %d (%s), %d step(s), max %d attempt(s) per step",
		parts.engine.RunID(), step, role, steps, parts.engine.MaxAttempts())

	uc := run.NewRunStepsUseCase(parts.engine, app.NewHealthWriter(ws.fs, ws.paths.Health), ws.logger)
	result, runErr := uc.Execute(ctx, steps)
	if result != nil {
		printRunSummary(out, result)
	}
	if runErr != nil {
		if tdd.IsAttemptsExhausted(runErr) {
			ws.logger.Error("Step %d (%s) failed after %d attempts; see %s", result.NextStep, result.NextRole, parts.engine.MaxAttempts(), ws.paths.Journal)
		}
		return runErr
	}
	return nil
}

func printRunSummary(out io.Writer, result *run.RunStepsOutput) {
	for _, rec := range result.Records {
		fmt.Fprintf(out, "step %d %-11s %s attempts=%d\n", rec.Step, rec.Role, shortCommit(rec.CommitID), rec.Attempts)
	}
	if result.Interrupted {
		fmt.Fprintln(out, "interrupted")
	}
	fmt.Fprintf(out, "next: step %d (%s)\n", result.NextStep, result.NextRole)
}

func shortCommit(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
