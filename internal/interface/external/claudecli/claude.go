package claudecli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner invokes the claude CLI in print mode
type Runner struct {
	Bin     string
	Timeout time.Duration
	Dir     string // working directory for the process, empty means inherit
}

// ClaudeResponse represents the JSON response from claude
type ClaudeResponse struct {
	Type       string  `json:"type"`
	Subtype    string  `json:"subtype"`
	IsError    bool    `json:"is_error"`
	DurationMs int     `json:"duration_ms"`
	Result     string  `json:"result"`
	SessionID  string  `json:"session_id"`
	TotalCost  float64 `json:"total_cost_usd"`
}

// RunOptions contains options for a single invocation
type RunOptions struct {
	Model              string
	AppendSystemPrompt string
	AllowedTools       []string // Tools to allow (e.g., "Read")
	DisallowedTools    []string // Tools to disallow (e.g., "Edit", "Bash")
}

// Args builds the command line for prompt and opts
func (r Runner) Args(prompt string, opts *RunOptions) []string {
	args := []string{"-p", "--output-format", "json"}
	if opts != nil {
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}
		if opts.AppendSystemPrompt != "" {
			args = append(args, "--append-system-prompt", opts.AppendSystemPrompt)
		}
		if len(opts.AllowedTools) > 0 {
			args = append(args, "--allowed-tools", strings.Join(opts.AllowedTools, ","))
		}
		if len(opts.DisallowedTools) > 0 {
			args = append(args, "--disallowed-tools", strings.Join(opts.DisallowedTools, ","))
		}
	}
	return append(args, prompt)
}

// Run executes claude and returns its decoded response
func (r Runner) Run(ctx context.Context, prompt string, opts *RunOptions) (*ClaudeResponse, error) {
	bin := r.Bin
	if bin == "" {
		bin = "claude"
	}

	cctx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, bin, r.Args(prompt, opts)...)
	cmd.Dir = r.Dir
	out, err := cmd.Output()
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("claude timed out after %s: %w", r.Timeout, cctx.Err())
		}
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		return nil, fmt.Errorf("claude execution failed: %w (stderr: %s)", err, stderr)
	}

	return ParseResponse(out)
}

// ParseResponse decodes claude's JSON output.
// Output that is not JSON is returned verbatim as the result.
func ParseResponse(out []byte) (*ClaudeResponse, error) {
	var response ClaudeResponse
	if err := json.Unmarshal(out, &response); err != nil {
		return &ClaudeResponse{Type: "raw", Result: string(out)}, nil
	}
	if response.IsError {
		return nil, fmt.Errorf("claude returned error: %s", response.Result)
	}
	return &response, nil
}
