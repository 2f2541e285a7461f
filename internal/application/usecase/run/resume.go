package run

import (
	"context"
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/application/service"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// HeadReader exposes the newest commit of the work tree
type HeadReader interface {
	ReadState(ctx context.Context) (output.RepoState, error)
}

// ResumePosition returns the step and role following the newest committed step,
// or step 1 with the tester when nothing has been committed yet.
// The newest audit record decides, unless HEAD was written by the engine for a later
// step whose record never got saved; then HEAD decides so the step is not committed twice.
// head may be nil.
func ResumePosition(ctx context.Context, store output.AuditStore, head HeadReader) (int, tdd.Role, error) {
	step, role := 1, tdd.RoleTester

	latest, err := store.LatestRecord(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("read latest audit record: %w", err)
	}
	if latest != nil {
		step, role = latest.NextPosition()
	}

	if head == nil {
		return step, role, nil
	}
	state, err := head.ReadState(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("read HEAD: %w", err)
	}
	if headStep, headRole, ok := service.ParseCommitMetadata(state.LastCommitMessage); ok && headStep >= step {
		return headStep + 1, headRole.Next(), nil
	}
	return step, role, nil
}

// InterruptedStep reports whether (step, role) started editing the work tree and never
// reached a verdict. The plan artifact is written before the first edit; a step that ran
// out of attempts has already discarded its edits and journaled EXHAUSTED.
// journal may be nil.
func InterruptedStep(ctx context.Context, store output.AuditStore, journal JournalReader, step int, role tdd.Role) (bool, error) {
	if _, err := store.LoadPlan(ctx, step, role); err != nil {
		if errors.Is(err, output.ErrPlanNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read plan artifact: %w", err)
	}
	if journal == nil {
		return true, nil
	}

	last, err := journal.ReadLast()
	if err != nil {
		return false, fmt.Errorf("read journal: %w", err)
	}
	if last != nil && last.Step == step && last.Role == role.String() && last.Decision == output.DecisionExhausted {
		return false, nil
	}
	return true, nil
}
