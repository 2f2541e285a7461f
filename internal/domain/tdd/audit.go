package tdd

import "time"

// AuditRecord is persisted once a step has succeeded
type AuditRecord struct {
	RunID         string       `json:"run_id"`
	Step          int          `json:"step"`
	Role          Role         `json:"role"`
	Plan          string       `json:"plan"`
	Attempts      int          `json:"attempts"`
	CommitID      string       `json:"commit_id"`
	CommitMessage string       `json:"commit_message"`
	FilesChanged  []string     `json:"files_changed"`
	FormatOutcome CheckOutcome `json:"format_outcome"`
	CheckOutcome  CheckOutcome `json:"check_outcome"`
	TestOutcome   CheckOutcome `json:"test_outcome"`
	CompletedAt   time.Time    `json:"completed_at"`
}

// NextPosition returns the step and role that follow this record
func (r AuditRecord) NextPosition() (int, Role) {
	return r.Step + 1, r.Role.Next()
}
