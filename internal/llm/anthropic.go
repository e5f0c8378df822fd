package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/rustant/rustant/internal/agentloop"
	"github.com/rustant/rustant/internal/observability"
	"github.com/rustant/rustant/pkg/models"
)

// AnthropicProvider implements agentloop.Provider against Claude's
// Messages API, streaming SSE events and converting them into
// agentloop.CompletionChunk values.
type AnthropicProvider struct {
	retrier
	client       anthropic.Client
	defaultModel string
	Metrics      *observability.Metrics
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		retrier:      newRetrier(cfg.MaxRetries, cfg.RetryDelay),
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Models() []agentloop.Model {
	return []agentloop.Model{
		{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", ContextSize: 200000, SupportsVision: true},
	}
}

func (p *AnthropicProvider) SupportsTools() bool { return true }

func (p *AnthropicProvider) model(requested string) string {
	if requested != "" {
		return requested
	}
	return p.defaultModel
}

func (p *AnthropicProvider) Complete(ctx context.Context, req *agentloop.CompletionRequest) (<-chan *agentloop.CompletionChunk, error) {
	raw := make(chan *agentloop.CompletionChunk)

	go func() {
		defer close(raw)

		var stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
		err := p.retry(ctx, func(err error) bool {
			var pe *ProviderError
			return errors.As(err, &pe) && pe.Reason.IsRetryable()
		}, func() error {
			s, createErr := p.createStream(ctx, req)
			if createErr != nil {
				return wrapError("anthropic", p.model(req.Model), 0, createErr)
			}
			stream = s
			return nil
		})
		if err != nil {
			raw <- &agentloop.CompletionChunk{Error: fmt.Errorf("anthropic: max retries exceeded: %w", err)}
			return
		}

		p.processStream(stream, raw, p.model(req.Model))
	}()

	return instrumentStream(p.Metrics, "anthropic", p.model(req.Model), raw), nil
}

func (p *AnthropicProvider) createStream(ctx context.Context, req *agentloop.CompletionRequest) (*ssestream.Stream[anthropic.MessageStreamEventUnion], error) {
	messages, err := convertMessagesToAnthropic(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("anthropic: failed to convert messages: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model(req.Model)),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertToolsToAnthropic(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("anthropic: failed to convert tools: %w", err)
		}
		params.Tools = tools
	}

	return p.client.Messages.NewStreaming(ctx, params), nil
}

// maxEmptyStreamEvents bounds how many consecutive no-op SSE events a
// stream may send before it's treated as malformed.
const maxEmptyStreamEvents = 300

func (p *AnthropicProvider) processStream(stream *ssestream.Stream[anthropic.MessageStreamEventUnion], chunks chan<- *agentloop.CompletionChunk, model string) {
	var toolID, toolName string
	var toolInput strings.Builder
	inToolUse := false
	emptyEvents := 0
	var inputTokens, outputTokens int

	for stream.Next() {
		event := stream.Current()
		processed := false

		switch event.Type {
		case "message_start":
			ms := event.AsMessageStart()
			if ms.Message.Usage.InputTokens > 0 {
				inputTokens = int(ms.Message.Usage.InputTokens)
			}
			processed = true

		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				toolUse := block.AsToolUse()
				toolID = toolUse.ID
				toolName = toolUse.Name
				toolInput.Reset()
				inToolUse = true
				processed = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					chunks <- &agentloop.CompletionChunk{Text: delta.Text}
					processed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					toolInput.WriteString(delta.PartialJSON)
					processed = true
				}
			}

		case "content_block_stop":
			if inToolUse {
				content := models.ToolCallContent(toolID, toolName, json.RawMessage(toolInput.String()))
				chunks <- &agentloop.CompletionChunk{ToolCall: &content, Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
				inToolUse = false
				return
			}

		case "message_delta":
			md := event.AsMessageDelta()
			if md.Usage.OutputTokens > 0 {
				outputTokens = int(md.Usage.OutputTokens)
			}
			processed = true

		case "message_stop":
			chunks <- &agentloop.CompletionChunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
			return

		case "error":
			chunks <- &agentloop.CompletionChunk{Error: wrapError("anthropic", model, 0, errors.New("stream error"))}
			return
		}

		if processed {
			emptyEvents = 0
		} else {
			emptyEvents++
			if emptyEvents >= maxEmptyStreamEvents {
				chunks <- &agentloop.CompletionChunk{Error: fmt.Errorf("anthropic: stream appears malformed after %d empty events", emptyEvents)}
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		chunks <- &agentloop.CompletionChunk{Error: wrapError("anthropic", model, 0, err)}
		return
	}
	chunks <- &agentloop.CompletionChunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
}

func convertMessagesToAnthropic(messages []models.Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam
	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		switch msg.Content.Kind {
		case models.ContentText:
			if msg.Content.Text != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content.Text))
			}
		case models.ContentToolCall:
			var input map[string]any
			if len(msg.Content.Arguments) > 0 {
				if err := json.Unmarshal(msg.Content.Arguments, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call arguments for %s: %w", msg.Content.ToolCallName, err)
				}
			}
			content = append(content, anthropic.NewToolUseBlock(msg.Content.ToolCallID, input, msg.Content.ToolCallName))
		case models.ContentToolResult:
			content = append(content, anthropic.NewToolResultBlock(msg.Content.ResultCallID, msg.Content.Output.Text, msg.Content.IsError))
		case models.ContentMultiPart:
			for _, part := range msg.Content.Parts {
				if part.Text != "" {
					content = append(content, anthropic.NewTextBlock(part.Text))
				}
			}
		}

		if len(content) == 0 {
			continue
		}

		var message anthropic.MessageParam
		if msg.Role == models.RoleAssistant {
			message = anthropic.NewAssistantMessage(content...)
		} else {
			message = anthropic.NewUserMessage(content...)
		}
		result = append(result, message)
	}
	return result, nil
}

func convertToolsToAnthropic(tools []agentloop.ToolSchema) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if len(tool.ParametersSchema) > 0 {
			if err := json.Unmarshal(tool.ParametersSchema, &schema); err != nil {
				return nil, fmt.Errorf("invalid tool schema for %s: %w", tool.Name, err)
			}
		}
		param := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropic.String(tool.Description)
		}
		result = append(result, param)
	}
	return result, nil
}
