package agent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/YoshitsuguKoike/deetdd/internal/application/port/output"
)

// OpenAIGateway implements AgentGateway for any OpenAI-compatible chat completion API
type OpenAIGateway struct {
	client  *openai.Client
	baseURL string
}

// NewOpenAIGateway creates a gateway for baseURL; an empty baseURL selects api.openai.com
func NewOpenAIGateway(apiKey, baseURL string) *OpenAIGateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGateway{
		client:  openai.NewClientWithConfig(cfg),
		baseURL: cfg.BaseURL,
	}
}

// Execute sends the system and user prompts as a single chat completion
func (g *OpenAIGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	start := time.Now()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	return &output.AgentResponse{
		Output:    resp.Choices[0].Message.Content,
		Duration:  time.Since(start),
		AgentType: "openai",
		Metadata: map[string]string{
			"model":             resp.Model,
			"finish_reason":     string(resp.Choices[0].FinishReason),
			"prompt_tokens":     strconv.Itoa(resp.Usage.PromptTokens),
			"completion_tokens": strconv.Itoa(resp.Usage.CompletionTokens),
		},
	}, nil
}

// HealthCheck lists models to confirm the endpoint and key are usable
func (g *OpenAIGateway) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("OpenAI endpoint %s unavailable: %w", g.baseURL, err)
	}
	return nil
}
