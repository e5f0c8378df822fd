// Package agentloop implements the agent control loop (C5, §4.5): the
// Planning -> LlmCall -> {EmitText | ProposeToolCall} -> Gate ->
// Checkpoint -> ExecuteTool -> AppendToolResult -> Planning state
// machine, MoE expert selection, the prompt optimizer, the warmup
// cache, and the speculative prefetcher.
package agentloop

import (
	"context"
	"encoding/json"

	"github.com/rustant/rustant/pkg/models"
)

// Provider is the LLM backend abstraction. Implementations (Anthropic,
// OpenAI, ...) live in internal/llm and handle API-specific request and
// streaming-response shapes; the loop only ever sees this interface.
type Provider interface {
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
	Name() string
	Models() []Model
	SupportsTools() bool
}

// CompletionRequest is one turn's LLM call.
type CompletionRequest struct {
	Model     string           `json:"model"`
	System    string           `json:"system,omitempty"`
	Messages  []models.Message `json:"messages"`
	Tools     []ToolSchema     `json:"tools,omitempty"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

// ToolSchema is the wire shape a Provider sends to the LLM API for one
// registered tool.
type ToolSchema struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	ParametersSchema json.RawMessage   `json:"parameters_schema"`
	RiskLevel        models.RiskLevel  `json:"risk_level"`
}

// CompletionChunk is one streamed piece of an LLM response. A terminal
// chunk has Done set (possibly alongside a final ToolCall) or Error set.
type CompletionChunk struct {
	Text         string         `json:"text,omitempty"`
	ToolCall     *models.Content `json:"tool_call,omitempty"`
	Done         bool           `json:"done,omitempty"`
	Error        error          `json:"-"`
	InputTokens  int            `json:"input_tokens,omitempty"`
	OutputTokens int            `json:"output_tokens,omitempty"`
}

// Model describes one model a Provider exposes.
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ContextSize    int    `json:"context_size"`
	SupportsVision bool   `json:"supports_vision"`
}

// drainCompletion collects a provider's streamed chunks into one
// logical turn outcome: accumulated text, and the first tool call seen
// (the loop executes at most one tool call per turn, per invariant 2).
func drainCompletion(ctx context.Context, chunks <-chan *CompletionChunk) (text string, toolCall *models.Content, inTok, outTok int, err error) {
	for {
		select {
		case <-ctx.Done():
			return text, toolCall, inTok, outTok, ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return text, toolCall, inTok, outTok, nil
			}
			if chunk.Error != nil {
				return text, toolCall, inTok, outTok, chunk.Error
			}
			text += chunk.Text
			if chunk.ToolCall != nil && toolCall == nil {
				toolCall = chunk.ToolCall
			}
			if chunk.Done {
				inTok, outTok = chunk.InputTokens, chunk.OutputTokens
				return text, toolCall, inTok, outTok, nil
			}
		}
	}
}
