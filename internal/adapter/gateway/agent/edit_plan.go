package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ActionUpsert replaces or creates a whole file
const ActionUpsert = "upsert"

// FileEdit is one file replacement requested by the producer
type FileEdit struct {
	Path    string
	Action  string
	Content string
}

// EditPlan is the structured output expected from every role
type EditPlan struct {
	Edits         []FileEdit
	CommitMessage string
	Notes         string
}

// wire shapes use pointers so that missing fields can be told apart from empty ones
type rawFileEdit struct {
	Path    *string `json:"path"`
	Action  *string `json:"action"`
	Content *string `json:"content"`
}

type rawEditPlan struct {
	Edits         *[]rawFileEdit `json:"edits"`
	CommitMessage *string        `json:"commit_message"`
	Notes         *string        `json:"notes"`
}

// ErrInvalidEditPlan wraps every edit plan parse and validation failure
var ErrInvalidEditPlan = errors.New("invalid edit plan")

// StripCodeFences removes a surrounding markdown code fence from model output
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseEditPlan decodes and validates plan text.
// edits, commit_message and notes are all required; paths come back NFC-normalized and slash-separated.
func ParseEditPlan(text string) (*EditPlan, error) {
	var raw rawEditPlan
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEditPlan, err)
	}

	var missing []string
	if raw.Edits == nil {
		missing = append(missing, "edits")
	}
	if raw.CommitMessage == nil {
		missing = append(missing, "commit_message")
	}
	if raw.Notes == nil {
		missing = append(missing, "notes")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidEditPlan, strings.Join(missing, ", "))
	}

	plan := &EditPlan{
		CommitMessage: *raw.CommitMessage,
		Notes:         *raw.Notes,
		Edits:         make([]FileEdit, 0, len(*raw.Edits)),
	}
	for i, e := range *raw.Edits {
		if e.Path == nil || e.Action == nil || e.Content == nil {
			return nil, fmt.Errorf("%w: edit %d needs path, action and content", ErrInvalidEditPlan, i)
		}
		if *e.Action != ActionUpsert {
			return nil, fmt.Errorf("%w: edit %d: unsupported action %q", ErrInvalidEditPlan, i, *e.Action)
		}
		p, err := NormalizeEditPath(*e.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: edit %d: %v", ErrInvalidEditPlan, i, err)
		}
		plan.Edits = append(plan.Edits, FileEdit{Path: p, Action: *e.Action, Content: *e.Content})
	}
	return plan, nil
}

// NormalizeEditPath NFC-normalizes p and rejects paths that leave the work dir or touch .git
func NormalizeEditPath(p string) (string, error) {
	p = norm.NFC.String(strings.TrimSpace(p))
	if p == "" {
		return "", errors.New("empty path")
	}
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("path %q contains NUL", p)
	}

	slashed := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("path %q must be relative", p)
	}

	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path %q escapes the work dir", p)
	}
	if clean == ".git" || strings.HasPrefix(clean, ".git/") {
		return "", fmt.Errorf("path %q is inside .git", p)
	}
	return clean, nil
}
