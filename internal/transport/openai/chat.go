package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/domain"
	"github.com/kailas-cloud/taarya/internal/domain/agent"
	"github.com/kailas-cloud/taarya/internal/metrics"
)

const backendReasoner = "reasoner"

// Chat is a chat-completions client with function tools.
type Chat struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// NewChat creates an OpenAI-compatible chat client. Dimensions is ignored.
func NewChat(cfg *Config) *Chat {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		client: newClient(cfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: logger,
	}
}

// Complete sends one turn of the conversation and returns the model's reply,
// which either carries tool calls or a final answer.
func (c *Chat) Complete(ctx context.Context, msgs []agent.Message, tools []agent.ToolSpec) (agent.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toChatMessages(msgs),
		Tools:    toTools(tools),
		User:     c.user,
		// zero is dropped by omitempty and the server default applies
		Temperature: math.SmallestNonzeroFloat32,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	metrics.ObserveBackend(backendReasoner, "chat_completion", start, err)
	if err != nil {
		c.logger.Warn("chat completion failed", zap.String("model", c.model), zap.Error(err))
		return agent.Message{}, parseAPIErrorAs(err, domain.ErrReasonerUnavailable)
	}
	if len(resp.Choices) == 0 {
		return agent.Message{}, fmt.Errorf("empty chat response: %w", domain.ErrReasonerUnavailable)
	}

	m := resp.Choices[0].Message
	out := agent.Message{Role: agent.RoleAssistant, Content: m.Content}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func toChatMessages(msgs []agent.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, cm)
	}
	return out
}

func toTools(specs []agent.ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	out := make([]openai.Tool, len(specs))
	for i, s := range specs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		}
	}
	return out
}
