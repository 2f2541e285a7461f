package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
	"github.com/YoshitsuguKoike/deetdd/internal/infra/persistence/file"
)

// FileAuditStore implements AuditStore on a filesystem
// Directory structure:
//   - <plans>/step-<N>-<role>.md: plan written before any edit
//   - <logs>/step-<N>-<role>.json: audit record of a committed step
type FileAuditStore struct {
	fs       afero.Fs
	plansDir string
	logsDir  string
}

var (
	_ output.AuditStore   = (*FileAuditStore)(nil)
	_ output.AuditHistory = (*FileAuditStore)(nil)
)

// NewFileAuditStore creates a store writing plans and records under the given directories
func NewFileAuditStore(fs afero.Fs, plansDir, logsDir string) *FileAuditStore {
	return &FileAuditStore{fs: fs, plansDir: plansDir, logsDir: logsDir}
}

// PlanPath returns the plan artifact path for (step, role)
func (s *FileAuditStore) PlanPath(step int, role tdd.Role) string {
	return filepath.Join(s.plansDir, artifactName(step, role, ".md"))
}

// RecordPath returns the audit record path for (step, role)
func (s *FileAuditStore) RecordPath(step int, role tdd.Role) string {
	return filepath.Join(s.logsDir, artifactName(step, role, ".json"))
}

// SavePlan writes the plan, replacing any plan left by an earlier failed run of the same step
func (s *FileAuditStore) SavePlan(ctx context.Context, step int, role tdd.Role, plan string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := file.WriteFileAtomic(s.fs, s.PlanPath(step, role), []byte(plan), 0o644); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// LoadPlan reads the plan for (step, role)
func (s *FileAuditStore) LoadPlan(ctx context.Context, step int, role tdd.Role) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, s.PlanPath(step, role))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: step %d (%s)", output.ErrPlanNotFound, step, role)
		}
		return "", fmt.Errorf("load plan: %w", err)
	}
	return string(data), nil
}

// SaveRecord writes the audit record of a committed step
func (s *FileAuditStore) SaveRecord(ctx context.Context, record *tdd.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil {
		return errors.New("save record: record is nil")
	}
	if err := file.WriteJSONAtomic(s.fs, s.RecordPath(record.Step, record.Role), record); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// LatestRecord returns the record with the highest step, or nil when the log directory is empty
func (s *FileAuditStore) LatestRecord(ctx context.Context) (*tdd.AuditRecord, error) {
	records, err := s.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[len(records)-1], nil
}

// ListRecords loads every audit record ordered by step.
// Files that do not follow the step-<N>-<role>.json naming are ignored.
func (s *FileAuditStore) ListRecords(ctx context.Context) ([]*tdd.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, s.logsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log directory: %w", err)
	}

	var records []*tdd.AuditRecord
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		step, role, ok := parseArtifactName(entry.Name(), ".json")
		if !ok {
			continue
		}

		path := filepath.Join(s.logsDir, entry.Name())
		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			return nil, fmt.Errorf("read record %s: %w", entry.Name(), err)
		}
		var record tdd.AuditRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("parse record %s: %w", entry.Name(), err)
		}
		if record.Step != step || record.Role != role {
			return nil, fmt.Errorf("record %s describes step %d (%s)", entry.Name(), record.Step, record.Role)
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Step < records[j].Step
	})
	return records, nil
}

func artifactName(step int, role tdd.Role, ext string) string {
	return fmt.Sprintf("step-%d-%s%s", step, role, ext)
}

// parseArtifactName is the inverse of artifactName
func parseArtifactName(name, ext string) (int, tdd.Role, bool) {
	if !strings.HasPrefix(name, "step-") || !strings.HasSuffix(name, ext) {
		return 0, "", false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(name, "step-"), ext)
	num, roleName, found := strings.Cut(body, "-")
	if !found {
		return 0, "", false
	}
	step, err := strconv.Atoi(num)
	if err != nil || step < 1 {
		return 0, "", false
	}
	role := tdd.Role(roleName)
	if !role.IsValid() {
		return 0, "", false
	}
	return step, role, true
}
