package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorkTree struct {
	dirty      bool
	dirtyErr   error
	discardErr error
	discarded  int
}

func (f *fakeWorkTree) IsDirty(context.Context) (bool, error) {
	return f.dirty, f.dirtyErr
}

func (f *fakeWorkTree) DiscardWorkingChanges(context.Context) error {
	f.discarded++
	return f.discardErr
}

func TestRunStartupRecovery(t *testing.T) {
	ctx := context.Background()

	clean := &fakeWorkTree{}
	recovered, err := RunStartupRecovery(ctx, clean, true, NewDiscardLogger())
	require.NoError(t, err)
	assert.False(t, recovered)
	assert.Equal(t, 0, clean.discarded)

	dirty := &fakeWorkTree{dirty: true}
	recovered, err = RunStartupRecovery(ctx, dirty, true, NewDiscardLogger())
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.Equal(t, 1, dirty.discarded)

	broken := &fakeWorkTree{dirty: true, discardErr: errors.New("locked index")}
	_, err = RunStartupRecovery(ctx, broken, true, NewDiscardLogger())
	assert.ErrorContains(t, err, "locked index")

	unknown := &fakeWorkTree{dirtyErr: errors.New("not a git repository")}
	_, err = RunStartupRecovery(ctx, unknown, true, nil)
	assert.ErrorContains(t, err, "not a git repository")
}

func TestRunStartupRecovery_KeepsUserChanges(t *testing.T) {
	ctx := context.Background()

	edited := &fakeWorkTree{dirty: true}
	recovered, err := RunStartupRecovery(ctx, edited, false, NewDiscardLogger())
	require.ErrorIs(t, err, ErrUncommittedChanges)
	assert.False(t, recovered)
	assert.Equal(t, 0, edited.discarded, "changes without an interrupted step must survive")

	clean := &fakeWorkTree{}
	recovered, err = RunStartupRecovery(ctx, clean, false, NewDiscardLogger())
	require.NoError(t, err)
	assert.False(t, recovered)
}
