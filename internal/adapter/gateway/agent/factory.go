package agent

import (
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
)

// Backend names accepted in tdd.yaml
const (
	BackendOpenAI        = "openai"
	BackendClaudeCodeCLI = "claude-code-cli"
)

// GatewayConfig selects and configures a completion backend
type GatewayConfig struct {
	Backend   string
	BaseURL   string
	APIKey    string
	APIKeyEnv string // only used in error messages
	ClaudeBin string
	WorkDir   string
	Timeout   time.Duration
}

// NewAgentGateway creates an agent gateway for cfg.Backend
func NewAgentGateway(cfg GatewayConfig) (output.AgentGateway, error) {
	switch cfg.Backend {
	case BackendOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s environment variable not set for the openai backend", cfg.APIKeyEnv)
		}
		return NewOpenAIGateway(cfg.APIKey, cfg.BaseURL), nil

	case BackendClaudeCodeCLI:
		return NewClaudeCodeCLIGateway(cfg.ClaudeBin, cfg.WorkDir, cfg.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown LLM backend: %s (supported: %s, %s)", cfg.Backend, BackendOpenAI, BackendClaudeCodeCLI)
	}
}
