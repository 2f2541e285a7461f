package app

import (
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
	"github.com/YoshitsuguKoike/deetdd/internal/infra/persistence/file"
)

// Health represents the health.json structure: the outcome of the most recent step
type Health struct {
	TS    string `json:"ts"`
	RunID string `json:"run_id"`
	Step  int    `json:"step"`
	Role  string `json:"role"`
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// HealthWriter persists Health atomically
type HealthWriter struct {
	fs   afero.Fs
	path string
	now  func() time.Time
}

// NewHealthWriter creates a writer for path
func NewHealthWriter(fs afero.Fs, path string) *HealthWriter {
	return &HealthWriter{fs: fs, path: path, now: time.Now}
}

// Write records the outcome of step; a nil stepErr means the step committed
func (w *HealthWriter) Write(runID string, step int, role tdd.Role, stepErr error) error {
	h := Health{
		TS:    w.now().UTC().Format(time.RFC3339Nano),
		RunID: runID,
		Step:  step,
		Role:  role.String(),
		OK:    stepErr == nil,
	}
	if stepErr != nil {
		h.Error = stepErr.Error()
	}
	return file.WriteJSONAtomic(w.fs, w.path, h)
}
