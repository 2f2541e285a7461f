package output

import "context"

// RepoState is a read of the repository taken at the start of a step
type RepoState struct {
	LastCommitMessage string
	LastDiff          string
	Files             []string
}

// RepositoryGateway owns the working tree and the index
type RepositoryGateway interface {
	// InitIfNeeded creates the repository when it does not exist yet
	InitIfNeeded(ctx context.Context) error

	// ReadState returns the last commit message, its diff and the tracked file list
	ReadState(ctx context.Context) (RepoState, error)

	// StageAll stages every working tree change including deletions
	StageAll(ctx context.Context) error

	// Commit records the index and returns the new commit id
	Commit(ctx context.Context, message string) (string, error)

	// DiscardWorkingChanges restores the working tree to the last commit
	DiscardWorkingChanges(ctx context.Context) error
}
