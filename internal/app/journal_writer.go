package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
)

// JournalWriter appends normalized attempt entries to an NDJSON file
type JournalWriter struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	now  func() time.Time
}

// NewJournalWriter creates a new JournalWriter instance
func NewJournalWriter(fs afero.Fs, path string) *JournalWriter {
	return &JournalWriter{fs: fs, path: path, now: time.Now}
}

// Append writes a normalized journal entry to the journal file
func (w *JournalWriter) Append(entry *output.JournalEntry) error {
	if entry == nil {
		return errors.New("journal entry is nil")
	}

	e := normalizeJournalEntry(*entry, w.now())
	if err := validateJournal(e); err != nil {
		// Don't stop, just warn
		GetLogger().Warn("journal schema validation: %v", err)
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fs.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(append(b, '\n')); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		// Log warning but don't fail - journal append is still successful
		GetLogger().Warn("failed to fsync journal: %v", err)
	}

	return nil
}

// ReadLast returns the last entry of the journal, or nil when the journal is empty or missing
func (w *JournalWriter) ReadLast() (*output.JournalEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fs.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lastLine string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lastLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if lastLine == "" {
		return nil, nil
	}

	var entry output.JournalEntry
	if err := json.Unmarshal([]byte(lastLine), &entry); err != nil {
		return nil, fmt.Errorf("parse last journal entry: %w", err)
	}
	return &entry, nil
}

// normalizeJournalEntry fills missing fields so every line has the same schema
func normalizeJournalEntry(e output.JournalEntry, now time.Time) output.JournalEntry {
	if e.TS == "" {
		e.TS = output.NowTS(now)
	}
	if e.Role == "" {
		e.Role = "unknown"
	}
	if e.ElapsedMs < 0 {
		e.ElapsedMs = 0
	}
	return e
}

// validateJournal checks if the journal entry has all required fields with correct types
func validateJournal(e output.JournalEntry) error {
	if e.Step < 1 {
		return errors.New("step must be >= 1")
	}
	if e.Attempt < 1 {
		return errors.New("attempt must be >= 1")
	}
	switch e.Decision {
	case output.DecisionPass, output.DecisionRetry, output.DecisionExhausted, output.DecisionError:
		// valid enum value
	default:
		return fmt.Errorf("invalid decision %q: must be PASS, RETRY, EXHAUSTED, or ERROR", e.Decision)
	}
	return nil
}

var _ output.Journal = (*JournalWriter)(nil)
