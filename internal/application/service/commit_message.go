package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// ComposeCommitMessage builds the commit message for a successful attempt:
// the producer's one-line summary followed by a metadata block.
func ComposeCommitMessage(role tdd.Role, step int, result *tdd.StepResult, checks tdd.Checks) string {
	summary := firstLine(result.CommitMessage)
	if summary == "" {
		summary = fmt.Sprintf("%s: step %d", role, step)
	}

	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n\nContext:\n")
	fmt.Fprintf(&b, "- Role: %s\n", role)
	fmt.Fprintf(&b, "- Step: %d\n", step)

	b.WriteString("\nRationale:\n")
	notes := strings.TrimSpace(result.Notes)
	if notes == "" {
		notes = "(none)"
	}
	b.WriteString(notes)
	b.WriteString("\n")

	b.WriteString("\nFiles changed:\n")
	if len(result.FilesChanged) == 0 {
		b.WriteString("- (none)\n")
	}
	for _, f := range result.FilesChanged {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	b.WriteString("\nVerification:\n")
	fmt.Fprintf(&b, "Tests: %s\n", checks.TestVerdict())

	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// summarizeOutput returns the last maxLines lines of command output
func summarizeOutput(text string, maxLines int) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	tail := strings.Join(lines[len(lines)-maxLines:], "\n")
	return fmt.Sprintf("... (%d lines omitted)\n%s", len(lines)-maxLines, tail)
}

// ParseCommitMetadata reads the role and step back from a message written by
// ComposeCommitMessage. ok is false for commits the engine did not write.
func ParseCommitMetadata(message string) (step int, role tdd.Role, ok bool) {
	lines := strings.Split(message, "\n")
	inContext := false
	haveStep, haveRole := false, false
	// the first line is the producer's summary and is never metadata
	for _, line := range lines[min(1, len(lines)):] {
		line = strings.TrimSpace(line)
		switch {
		case line == "Context:":
			inContext = true
		case !inContext:
		case line == "":
			if haveStep || haveRole {
				return step, role, haveStep && haveRole
			}
		case strings.HasPrefix(line, "- Role: "):
			r, err := tdd.ParseRole(strings.TrimPrefix(line, "- Role: "))
			if err != nil {
				return 0, "", false
			}
			role, haveRole = r, true
		case strings.HasPrefix(line, "- Step: "):
			n, err := strconv.Atoi(strings.TrimPrefix(line, "- Step: "))
			if err != nil || n < 1 {
				return 0, "", false
			}
			step, haveStep = n, true
		}
	}
	return step, role, haveStep && haveRole
}
