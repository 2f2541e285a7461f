package service

import (
	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// BuildStepContext snapshots the repository state for one step.
// The file list is copied so the snapshot stays fixed for every attempt of the step.
func BuildStepContext(state output.RepoState, role tdd.Role, step int, kata string) tdd.StepContext {
	files := make([]string, len(state.Files))
	copy(files, state.Files)

	return tdd.StepContext{
		Role:              role,
		StepIndex:         step,
		KataDescription:   kata,
		LastCommitMessage: state.LastCommitMessage,
		LastDiff:          state.LastDiff,
		FileList:          files,
	}
}
