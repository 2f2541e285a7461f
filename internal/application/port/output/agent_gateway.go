package output

import (
	"context"
	"time"
)

// AgentGateway is the interface for the completion backend behind a change producer
// This abstraction allows different AI backends (OpenAI-compatible APIs, Claude CLI)
type AgentGateway interface {
	// Execute runs the agent with given request
	Execute(ctx context.Context, req AgentRequest) (*AgentResponse, error)

	// HealthCheck verifies if the agent is available
	HealthCheck(ctx context.Context) error
}

// AgentRequest represents a request to an AI agent
type AgentRequest struct {
	SystemPrompt string        // Role instructions
	Prompt       string        // The step prompt
	Model        string        // Model name (backend specific)
	Temperature  float32       // Temperature for generation (0.0-2.0)
	Timeout      time.Duration // Execution timeout, zero means no limit
}

// AgentResponse represents the response from an AI agent
type AgentResponse struct {
	Output    string            // Generated output
	Duration  time.Duration     // Execution duration
	AgentType string            // Type of agent that executed
	Metadata  map[string]string // Additional metadata
}
