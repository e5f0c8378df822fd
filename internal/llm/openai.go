package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rustant/rustant/internal/agentloop"
	"github.com/rustant/rustant/internal/observability"
	"github.com/rustant/rustant/pkg/models"
)

// OpenAIProvider implements agentloop.Provider against the Chat
// Completions streaming API.
type OpenAIProvider struct {
	retrier
	client       *openai.Client
	defaultModel string
	Metrics      *observability.Metrics
}

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		retrier:      newRetrier(cfg.MaxRetries, cfg.RetryDelay),
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Models() []agentloop.Model {
	return []agentloop.Model{
		{ID: "gpt-4o", Name: "GPT-4o", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ContextSize: 128000, SupportsVision: true},
	}
}

func (p *OpenAIProvider) SupportsTools() bool { return true }

func (p *OpenAIProvider) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

func (p *OpenAIProvider) Complete(ctx context.Context, req *agentloop.CompletionRequest) (<-chan *agentloop.CompletionChunk, error) {
	messages, err := convertMessagesToOpenAI(req.Messages, req.System)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    p.model(req.Model),
		Messages: messages,
		Stream:   true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertToolsToOpenAI(req.Tools)
	}

	var stream *openai.ChatCompletionStream
	err = p.retry(ctx, isRetryableMessage, func() error {
		s, createErr := p.client.CreateChatCompletionStream(ctx, chatReq)
		if createErr != nil {
			return createErr
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai: max retries exceeded: %w", wrapError("openai", chatReq.Model, 0, err))
	}

	raw := make(chan *agentloop.CompletionChunk)
	go processOpenAIStream(ctx, stream, raw)
	return instrumentStream(p.Metrics, "openai", chatReq.Model, raw), nil
}

func processOpenAIStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- *agentloop.CompletionChunk) {
	defer close(chunks)
	defer stream.Close()

	type partialCall struct{ id, name, args string }
	calls := make(map[int]*partialCall)

	emit := func() {
		for _, tc := range calls {
			if tc.id == "" || tc.name == "" {
				continue
			}
			content := models.ToolCallContent(tc.id, tc.name, json.RawMessage(tc.args))
			chunks <- &agentloop.CompletionChunk{ToolCall: &content, Done: true}
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			chunks <- &agentloop.CompletionChunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(calls) > 0 {
					emit()
					return
				}
				chunks <- &agentloop.CompletionChunk{Done: true}
				return
			}
			chunks <- &agentloop.CompletionChunk{Error: err, Done: true}
			return
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			chunks <- &agentloop.CompletionChunk{Text: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			pc, ok := calls[idx]
			if !ok {
				pc = &partialCall{}
				calls[idx] = pc
			}
			if tc.ID != "" {
				pc.id = tc.ID
			}
			if tc.Function.Name != "" {
				pc.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				pc.args += tc.Function.Arguments
			}
		}

		if resp.Choices[0].FinishReason == "tool_calls" {
			emit()
			return
		}
	}
}

func convertMessagesToOpenAI(messages []models.Message, system string) ([]openai.ChatCompletionMessage, error) {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range messages {
		switch msg.Content.Kind {
		case models.ContentText:
			role := openai.ChatMessageRoleUser
			if msg.Role == models.RoleAssistant {
				role = openai.ChatMessageRoleAssistant
			} else if msg.Role == models.RoleSystem {
				role = openai.ChatMessageRoleSystem
			}
			result = append(result, openai.ChatCompletionMessage{Role: role, Content: msg.Content.Text})

		case models.ContentToolCall:
			result = append(result, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   msg.Content.ToolCallID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      msg.Content.ToolCallName,
						Arguments: string(msg.Content.Arguments),
					},
				}},
			})

		case models.ContentToolResult:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content.Output.Text,
				ToolCallID: msg.Content.ResultCallID,
			})

		case models.ContentMultiPart:
			var parts []openai.ChatMessagePart
			for _, part := range msg.Content.Parts {
				if part.Text != "" {
					parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: part.Text})
				}
				if part.ArtifactType == "image" && part.ArtifactRef != "" {
					parts = append(parts, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: part.ArtifactRef, Detail: openai.ImageURLDetailAuto},
					})
				}
			}
			result = append(result, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
		}
	}
	return result, nil
}

func convertToolsToOpenAI(tools []agentloop.ToolSchema) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		var schema map[string]any
		if len(tool.ParametersSchema) > 0 {
			if err := json.Unmarshal(tool.ParametersSchema, &schema); err != nil {
				schema = map[string]any{"type": "object", "properties": map[string]any{}}
			}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schema,
			},
		}
	}
	return result
}
