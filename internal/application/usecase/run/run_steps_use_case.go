package run

import (
	"context"
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/deetdd/internal/app"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// Stepper advances the red/green/refactor cycle one step at a time
type Stepper interface {
	Advance(ctx context.Context) (*tdd.AuditRecord, error)
	CurrentStep() int
	CurrentRole() tdd.Role
	RunID() string
}

// HealthRecorder stores the outcome of the latest step
type HealthRecorder interface {
	Write(runID string, step int, role tdd.Role, stepErr error) error
}

// RunStepsOutput summarizes a run
type RunStepsOutput struct {
	Records  []*tdd.AuditRecord
	NextStep int
	NextRole tdd.Role
	// Interrupted is set when the context was cancelled between steps
	Interrupted bool
}

// RunStepsUseCase runs a bounded number of steps and stops at the first failure
type RunStepsUseCase struct {
	engine Stepper
	health HealthRecorder
	logger app.Logger
}

// NewRunStepsUseCase creates the use case; health may be nil
func NewRunStepsUseCase(engine Stepper, health HealthRecorder, logger app.Logger) *RunStepsUseCase {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &RunStepsUseCase{engine: engine, health: health, logger: logger}
}

// Execute advances up to steps times.
// A failed step ends the run with its error; records of the committed steps are still returned.
func (uc *RunStepsUseCase) Execute(ctx context.Context, steps int) (*RunStepsOutput, error) {
	if steps < 1 {
		return nil, fmt.Errorf("steps must be >= 1, got %d", steps)
	}

	out := &RunStepsOutput{}
	defer func() {
		out.NextStep = uc.engine.CurrentStep()
		out.NextRole = uc.engine.CurrentRole()
	}()

	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			out.Interrupted = true
			uc.logger.Warn("Run interrupted before step %d", uc.engine.CurrentStep())
			return out, nil
		}

		step, role := uc.engine.CurrentStep(), uc.engine.CurrentRole()
		uc.logger.Info("=== Step %d (%d/%d): %s [%s] ===", step, i+1, steps, role, role.Phase())

		record, err := uc.engine.Advance(ctx)
		uc.writeHealth(step, role, err)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				out.Interrupted = true
			}
			return out, err
		}
		out.Records = append(out.Records, record)
	}
	return out, nil
}

func (uc *RunStepsUseCase) writeHealth(step int, role tdd.Role, stepErr error) {
	if uc.health == nil {
		return
	}
	if err := uc.health.Write(uc.engine.RunID(), step, role, stepErr); err != nil {
		uc.logger.Warn("failed to write health: %v", err)
	}
}
