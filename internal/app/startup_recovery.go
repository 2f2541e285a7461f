package app

import (
	"context"
	"errors"
	"fmt"
)

// ErrUncommittedChanges is returned when the work tree is dirty but no step was interrupted
var ErrUncommittedChanges = errors.New("work tree has uncommitted changes; commit or stash them before running")

// WorkTree is the part of the repository gateway startup recovery needs
type WorkTree interface {
	IsDirty(ctx context.Context) (bool, error)
	DiscardWorkingChanges(ctx context.Context) error
}

// RunStartupRecovery discards uncommitted changes left behind by an interrupted step.
// interrupted tells whether the trail shows a step that started editing and never
// finished; without it a dirty tree belongs to the user and is left alone.
func RunStartupRecovery(ctx context.Context, tree WorkTree, interrupted bool, logger Logger) (bool, error) {
	if logger == nil {
		logger = GetLogger()
	}

	dirty, err := tree.IsDirty(ctx)
	if err != nil {
		return false, fmt.Errorf("startup recovery failed: %w", err)
	}
	if !dirty {
		return false, nil
	}
	if !interrupted {
		return false, ErrUncommittedChanges
	}

	logger.Warn("Work tree has uncommitted changes from an interrupted step; discarding them")
	if err := tree.DiscardWorkingChanges(ctx); err != nil {
		return false, fmt.Errorf("startup recovery failed: %w", err)
	}
	logger.Info("Startup recovery completed")
	return true, nil
}
