package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/domain/conversation"
	"github.com/kailas-cloud/analyst/internal/domain/tool"
)

// Compile-time check: Model implements conversation.Model.
var _ conversation.Model = (*Model)(nil)

// ModelConfig holds the chat completion provider settings.
type ModelConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Model performs tool-enabled chat completions.
type Model struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewModel creates an OpenAI-compatible chat model.
func NewModel(cfg *ModelConfig) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{
		client:      newClient(cfg.APIKey, cfg.BaseURL, cfg.HTTPClient),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Name returns the configured model identifier.
func (m *Model) Name() string { return m.model }

// Complete sends the conversation and maps the reply onto the domain response.
// Provider failures are wrapped with domain.ErrModelProviderError.
func (m *Model) Complete(ctx context.Context, req conversation.Request) (conversation.Response, error) {
	msgs, err := toMessages(req)
	if err != nil {
		return conversation.Response{}, err
	}

	creq := openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    msgs,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
		Tools:       toTools(req.Tools),
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, creq)
	duration := time.Since(start)

	if err != nil {
		recordModelRequest(m.model, "error", duration)
		m.logger.Warn("Chat completion failed",
			zap.String("model", m.model),
			zap.Duration("duration", duration),
			zap.String("error_type", errorType(err)),
			zap.Error(err),
		)
		return conversation.Response{}, parseAPIError("model", err, domain.ErrModelProviderError)
	}
	recordModelRequest(m.model, "success", duration)

	out := fromResponse(resp)
	recordModelUsage(m.model, out)
	return out, nil
}

func toMessages(req conversation.Request) ([]openai.ChatCompletionMessage, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, turn := range req.Turns {
		switch turn.Role {
		case conversation.RoleUser:
			// Tool results travel as one "tool" message per invocation.
			for _, r := range turn.Results {
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    r.Content,
					ToolCallID: r.InvocationID,
				})
			}
			if text, ok := conversation.FirstText(turn.Segments); ok {
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: text,
				})
			}
		case conversation.RoleAssistant:
			msg, err := toAssistantMessage(turn)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, msg)
		default:
			return nil, fmt.Errorf("unsupported role %q", turn.Role)
		}
	}
	return msgs, nil
}

func toAssistantMessage(turn conversation.Turn) (openai.ChatCompletionMessage, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
	if text, ok := conversation.FirstText(turn.Segments); ok {
		msg.Content = text
	}
	for _, inv := range conversation.Invocations(turn.Segments) {
		args := []byte("{}")
		if inv.Input != nil {
			var err error
			if args, err = json.Marshal(inv.Input); err != nil {
				return msg, fmt.Errorf("marshal arguments of %s: %w", inv.ID, err)
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   inv.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      inv.Name,
				Arguments: string(args),
			},
		})
	}
	return msg, nil
}

func toTools(defs []tool.Definition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(d.Name),
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return tools
}

func fromResponse(resp openai.ChatCompletionResponse) conversation.Response {
	out := conversation.Response{
		Usage: conversation.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) == 0 {
		out.Stop = conversation.StopOther
		out.RawStop = "no_choices"
		return out
	}

	choice := resp.Choices[0]
	out.RawStop = string(choice.FinishReason)

	if choice.Message.Content != "" {
		out.Segments = append(out.Segments, conversation.TextSegment(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		out.Segments = append(out.Segments, conversation.InvocationSegment(toInvocation(tc)))
	}

	hasCalls := len(choice.Message.ToolCalls) > 0
	switch {
	case choice.FinishReason == openai.FinishReasonToolCalls,
		choice.FinishReason == openai.FinishReasonFunctionCall:
		out.Stop = conversation.StopToolUse
	case choice.FinishReason == openai.FinishReasonStop && hasCalls:
		// Some compatible servers report "stop" alongside tool calls.
		out.Stop = conversation.StopToolUse
	case choice.FinishReason == openai.FinishReasonStop:
		out.Stop = conversation.StopFinal
	default:
		out.Stop = conversation.StopOther
	}
	return out
}

// toInvocation decodes tool call arguments. Undecodable arguments yield an
// invocation without input, which the agent rejects as malformed.
func toInvocation(tc openai.ToolCall) conversation.Invocation {
	id := tc.ID
	if id == "" {
		id = "call_" + uuid.NewString()
	}
	inv := conversation.Invocation{ID: id, Name: tc.Function.Name}
	if tc.Function.Arguments != "" {
		var input map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err == nil {
			inv.Input = input
		}
	}
	return inv
}
