package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rustant/rustant/internal/checkpoint"
	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/internal/observability"
	"github.com/rustant/rustant/internal/safety"
	"github.com/rustant/rustant/internal/toolregistry"
	"github.com/rustant/rustant/pkg/models"
)

// Terminal is the reason a Run call stopped.
type Terminal string

const (
	TerminalEmitText     Terminal = "emit_text"
	TerminalIterationCap Terminal = "iteration_cap"
	TerminalCancelled    Terminal = "cancelled"
	TerminalFatalError   Terminal = "fatal_error"
)

// ToolArgsExtractor inspects a proposed tool call's arguments and
// reports the path/command/host facts the gate needs, if any. Callers
// register one per risky tool name; tools with no extractor are gated
// purely on risk level and the mode table.
type ToolArgsExtractor func(args json.RawMessage) (path, command, host string)

// Loop is the agent control loop (C5): Planning -> LlmCall ->
// {EmitText | ProposeToolCall} -> Gate -> Checkpoint -> ExecuteTool ->
// AppendToolResult -> Planning.
type Loop struct {
	Provider      Provider
	Registry      *toolregistry.Registry
	Gate          *safety.Gate
	Checkpoints   *checkpoint.Manager
	Warmup        *WarmupCache
	Prefetcher    *Prefetcher
	MaxIterations int
	MaxRuntime    time.Duration
	ContextWindow int
	Model         string
	System        string
	Extractors    map[string]ToolArgsExtractor
	RequestApproval func(tool string, risk models.RiskLevel) bool
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	Events        *observability.EventRecorder
	Now           func() time.Time
}

// Result is the outcome of one Run call.
type Result struct {
	History  []models.Message
	Terminal Terminal
	Err      error
}

func (l *Loop) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Run drives the control loop to a terminal state, starting from
// history. It never runs more than MaxIterations turns and never
// exceeds MaxRuntime wall-clock time.
func (l *Loop) Run(ctx context.Context, history []models.Message) Result {
	deadline := l.now().Add(l.MaxRuntime)
	if l.MaxRuntime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	current := Expert(ExpertGeneral)
	for iteration := 0; ; iteration++ {
		if l.MaxIterations > 0 && iteration >= l.MaxIterations {
			l.logger().Info("agentloop: iteration cap reached", "max_iterations", l.MaxIterations)
			return Result{History: history, Terminal: TerminalIterationCap}
		}
		if err := ctx.Err(); err != nil {
			l.recordCancelled()
			return Result{History: history, Terminal: TerminalCancelled, Err: err}
		}

		nextExpert := classifyExpert(lastUserText(history))
		l.Prefetcher.Record(current, nextExpert)
		current = nextExpert

		req := l.buildRequest(current, history)

		chunks, err := l.Provider.Complete(ctx, req)
		if err != nil {
			return Result{History: history, Terminal: TerminalFatalError, Err: err}
		}

		text, toolCall, inTok, outTok, err := drainCompletion(ctx, chunks)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			l.recordCancelled()
			return Result{History: history, Terminal: TerminalCancelled, Err: err}
		}
		if err != nil {
			return Result{History: history, Terminal: TerminalFatalError, Err: err}
		}
		l.logger().Debug("agentloop: turn completed", "expert", current, "input_tokens", inTok, "output_tokens", outTok)

		if toolCall == nil {
			history = append(history, models.Message{
				ID:        uuid.NewString(),
				Role:      models.RoleAssistant,
				Content:   models.TextContent(text),
				CreatedAt: l.now(),
			})
			return Result{History: history, Terminal: TerminalEmitText}
		}

		history = append(history, models.Message{
			ID:        uuid.NewString(),
			Role:      models.RoleAssistant,
			Content:   *toolCall,
			CreatedAt: l.now(),
		})

		result := l.gateAndExecute(ctx, *toolCall)
		history = append(history, models.Message{
			ID:        uuid.NewString(),
			Role:      models.RoleTool,
			Content:   result,
			CreatedAt: l.now(),
		})
	}
}

func (l *Loop) recordCancelled() {
	if l.Gate == nil || l.Gate.Decisions == nil {
		return
	}
	l.Gate.Decisions.Append(safety.DecisionEntry{
		Action:  "loop",
		Outcome: safety.OutcomeCancelled,
	})
}

// gateAndExecute runs Gate -> Checkpoint -> ExecuteTool -> result for
// one proposed tool call, returning the Tool message content.
func (l *Loop) gateAndExecute(ctx context.Context, call models.Content) models.Content {
	tool, ok := l.Registry.Get(call.ToolCallName)
	if !ok {
		msg := fmt.Sprintf("unknown tool %q", call.ToolCallName)
		return models.ToolResultContent(call.ToolCallID, models.ToolOutput{Text: msg}, true)
	}

	cc := safety.CallContext{
		ToolName:        call.ToolCallName,
		Risk:            tool.RiskLevel(),
		RequestApproval: l.RequestApproval,
	}
	if extractor, ok := l.Extractors[call.ToolCallName]; ok {
		cc.Path, cc.Command, cc.Host = extractor(call.Arguments)
	}

	if err := l.Gate.Check(cc); err != nil {
		if l.Metrics != nil {
			l.Metrics.RecordError("gate", "denied")
		}
		return models.ToolResultContent(call.ToolCallID, models.ToolOutput{Text: denialMessage(err)}, true)
	}

	if l.Checkpoints != nil {
		if _, err := l.Checkpoints.CreateCheckpoint("pre:" + call.ToolCallName); err != nil {
			l.logger().Warn("agentloop: checkpoint failed", "error", err)
		}
	}

	if l.Events != nil {
		_ = l.Events.RecordToolStart(ctx, call.ToolCallName, call.Arguments)
	}

	start := l.now()
	out, err := l.Registry.Dispatch(ctx, call.ToolCallName, call.Arguments)
	duration := l.now().Sub(start)

	if l.Metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		l.Metrics.RecordToolExecution(call.ToolCallName, status, duration.Seconds())
	}
	if l.Events != nil {
		_ = l.Events.RecordToolEnd(ctx, call.ToolCallName, duration, out, err)
	}

	if err != nil {
		return models.ToolResultContent(call.ToolCallID, models.ToolOutput{Text: err.Error()}, true)
	}
	return models.ToolResultContent(call.ToolCallID, out, false)
}

func denialMessage(err error) string {
	var notPermitted *errs.NotPermitted
	var consentDenied *errs.ConsentDenied
	switch {
	case errors.As(err, &notPermitted):
		return "denied: " + notPermitted.Reason
	case errors.As(err, &consentDenied):
		return "denied: consent required for " + consentDenied.Scope
	default:
		return "denied: " + err.Error()
	}
}

// buildRequest assembles the next CompletionRequest: the expert's
// warmed-up tool schemas, an optimized system-prompt addendum, and the
// running history.
func (l *Loop) buildRequest(expert Expert, history []models.Message) *CompletionRequest {
	profile := defaultProfiles[expert]
	system := l.System
	if profile.PromptAddendum != "" {
		budget := l.ContextWindow / 10
		if budget <= 0 {
			budget = 512
		}
		optimized := OptimizePrompt([]string{profile.PromptAddendum}, budget)
		for _, s := range optimized {
			system += "\n" + s
		}
	}

	var tools []ToolSchema
	if l.Warmup != nil {
		tools = l.Warmup.ToolsFor(expert)
	}

	return &CompletionRequest{
		Model:    l.Model,
		System:   system,
		Messages: history,
		Tools:    tools,
	}
}

func lastUserText(history []models.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser && history[i].Content.Kind == models.ContentText {
			return history[i].Content.Text
		}
	}
	return ""
}
