package run

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// JournalReader returns the newest journal entry
type JournalReader interface {
	ReadLast() (*output.JournalEntry, error)
}

// StatusOutput describes where a kata stands
type StatusOutput struct {
	CommittedSteps int                  `json:"committed_steps"`
	Latest         *tdd.AuditRecord     `json:"latest,omitempty"`
	NextStep       int                  `json:"next_step"`
	NextRole       tdd.Role             `json:"next_role"`
	LastAttempt    *output.JournalEntry `json:"last_attempt,omitempty"`
	// Stalled is set when the newest attempt did not end in a commit
	Stalled bool `json:"stalled"`
}

// StatusUseCase reads the audit trail without touching the work tree
type StatusUseCase struct {
	history output.AuditHistory
	journal JournalReader
}

// NewStatusUseCase creates the use case; journal may be nil
func NewStatusUseCase(history output.AuditHistory, journal JournalReader) *StatusUseCase {
	return &StatusUseCase{history: history, journal: journal}
}

// Execute builds the status summary
func (uc *StatusUseCase) Execute(ctx context.Context) (*StatusOutput, error) {
	records, err := uc.history.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}

	out := &StatusOutput{CommittedSteps: len(records), NextStep: 1, NextRole: tdd.RoleTester}
	if len(records) > 0 {
		out.Latest = records[len(records)-1]
		out.NextStep, out.NextRole = out.Latest.NextPosition()
	}

	if uc.journal != nil {
		last, err := uc.journal.ReadLast()
		if err != nil {
			return nil, fmt.Errorf("read journal: %w", err)
		}
		out.LastAttempt = last
		if last != nil && last.Decision != output.DecisionPass {
			out.Stalled = out.Latest == nil || last.Step >= out.NextStep
		}
	}
	return out, nil
}
