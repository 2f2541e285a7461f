package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/domain/tdd"
)

// Commands holds the argv of each check; an empty argv always passes
type Commands struct {
	Format []string
	Static []string
	Test   []string
}

// ProcessVerifier implements Verifier by running commands in the kata work dir
type ProcessVerifier struct {
	cmds Commands
	dir  string
}

var _ output.Verifier = (*ProcessVerifier)(nil)

// NewProcessVerifier creates a verifier running cmds inside dir
func NewProcessVerifier(cmds Commands, dir string) *ProcessVerifier {
	return &ProcessVerifier{cmds: cmds, dir: dir}
}

// Format runs the formatter
func (v *ProcessVerifier) Format(ctx context.Context) (tdd.CheckOutcome, error) {
	return v.run(ctx, "format", v.cmds.Format)
}

// StaticCheck runs the static checker
func (v *ProcessVerifier) StaticCheck(ctx context.Context) (tdd.CheckOutcome, error) {
	return v.run(ctx, "static check", v.cmds.Static)
}

// Test runs the test suite
func (v *ProcessVerifier) Test(ctx context.Context) (tdd.CheckOutcome, error) {
	return v.run(ctx, "test", v.cmds.Test)
}

// run maps a non-zero exit to ok=false.
// Only a process that cannot be started, or a cancelled context, is an error.
func (v *ProcessVerifier) run(ctx context.Context, name string, argv []string) (tdd.CheckOutcome, error) {
	if len(argv) == 0 {
		return tdd.CheckOutcome{OK: true}, nil
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = v.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outcome := tdd.CheckOutcome{
		OK:     err == nil,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return outcome, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return outcome, fmt.Errorf("%s: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return outcome, nil
	}
	return outcome, fmt.Errorf("%s: failed to run %s: %w", name, strings.Join(argv, " "), err)
}

// Binaries returns the distinct program names of the configured commands
func (c Commands) Binaries() []string {
	var bins []string
	seen := map[string]bool{}
	for _, argv := range [][]string{c.Format, c.Static, c.Test} {
		if len(argv) == 0 || seen[argv[0]] {
			continue
		}
		seen[argv[0]] = true
		bins = append(bins, argv[0])
	}
	return bins
}
