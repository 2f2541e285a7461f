package output

import (
	"context"

	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// ChangeProducer proposes and applies the change for one role.
// This abstraction allows different backends (OpenAI-compatible chat, Claude CLI, test fakes).
type ChangeProducer interface {
	// Plan returns the plan text for the step
	Plan(ctx context.Context, stepCtx tdd.StepContext) (string, error)

	// Edit applies the planned change to the working tree and reports what changed.
	// It fails if no plan artifact exists for (step, role) or the plan cannot be parsed.
	Edit(ctx context.Context, stepCtx tdd.StepContext) (*tdd.StepResult, error)
}
