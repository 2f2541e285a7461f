package agent

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
	"github.com/YoshitsuguKoike/deetdd/internal/interface/external/claudecli"
)

// disallowedTools keeps claude from touching the work dir; edits are applied from the returned plan
var disallowedTools = []string{"Bash", "Edit", "MultiEdit", "Write", "NotebookEdit"}

// ClaudeCodeCLIGateway implements AgentGateway using the claude CLI in print mode
type ClaudeCodeCLIGateway struct {
	runner claudecli.Runner
}

// NewClaudeCodeCLIGateway creates a gateway running bin inside workDir
func NewClaudeCodeCLIGateway(bin, workDir string, timeout time.Duration) *ClaudeCodeCLIGateway {
	if bin == "" {
		bin = "claude"
	}
	return &ClaudeCodeCLIGateway{
		runner: claudecli.Runner{Bin: bin, Timeout: timeout, Dir: workDir},
	}
}

// Execute runs claude with the role instructions appended to its system prompt.
// The CLI has no temperature flag, so req.Temperature is ignored.
func (g *ClaudeCodeCLIGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	runner := g.runner
	if req.Timeout > 0 {
		runner.Timeout = req.Timeout
	}

	start := time.Now()
	resp, err := runner.Run(ctx, req.Prompt, &claudecli.RunOptions{
		Model:              req.Model,
		AppendSystemPrompt: req.SystemPrompt,
		DisallowedTools:    disallowedTools,
	})
	if err != nil {
		return nil, fmt.Errorf("claude CLI execution failed: %w", err)
	}

	return &output.AgentResponse{
		Output:    resp.Result,
		Duration:  time.Since(start),
		AgentType: "claude-code-cli",
		Metadata: map[string]string{
			"working_dir": g.runner.Dir,
			"session_id":  resp.SessionID,
			"cost_usd":    fmt.Sprintf("%.4f", resp.TotalCost),
		},
	}, nil
}

// HealthCheck verifies the claude binary is on PATH
func (g *ClaudeCodeCLIGateway) HealthCheck(ctx context.Context) error {
	if _, err := exec.LookPath(g.runner.Bin); err != nil {
		return fmt.Errorf("claude CLI not found: %w", err)
	}
	return nil
}
