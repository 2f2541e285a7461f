package output

import (
	"context"
	"errors"
	"time"

	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// ErrPlanNotFound is returned when no plan artifact exists for a (step, role) pair
var ErrPlanNotFound = errors.New("plan artifact not found")

// AuditStore persists the durable trail of a run
type AuditStore interface {
	// SavePlan writes the plan artifact for (step, role)
	SavePlan(ctx context.Context, step int, role tdd.Role, plan string) error

	// LoadPlan reads the plan artifact for (step, role). Returns ErrPlanNotFound if absent.
	LoadPlan(ctx context.Context, step int, role tdd.Role) (string, error)

	// SaveRecord writes the audit record of a successful step
	SaveRecord(ctx context.Context, record *tdd.AuditRecord) error

	// LatestRecord returns the record with the highest step, or nil if there is none
	LatestRecord(ctx context.Context) (*tdd.AuditRecord, error)
}

// JournalEntry describes one attempt
type JournalEntry struct {
	TS        string `json:"ts"`
	RunID     string `json:"run_id"`
	Step      int    `json:"step"`
	Role      string `json:"role"`
	Attempt   int    `json:"attempt"`
	Decision  string `json:"decision"`
	ElapsedMs int64  `json:"elapsed_ms"`
	FormatOK  bool   `json:"format_ok"`
	CheckOK   bool   `json:"check_ok"`
	TestOK    bool   `json:"test_ok"`
	Error     string `json:"error"`
}

// Journal decisions
const (
	DecisionPass      = "PASS"
	DecisionRetry     = "RETRY"
	DecisionExhausted = "EXHAUSTED"
	DecisionError     = "ERROR"
)

// Journal appends per-attempt entries
type Journal interface {
	Append(entry *JournalEntry) error
}

// NowTS returns the journal timestamp format
func NowTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// AuditHistory lists every persisted record, ordered by step
type AuditHistory interface {
	ListRecords(ctx context.Context) ([]*tdd.AuditRecord, error)
}
