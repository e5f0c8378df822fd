package toolregistry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/pkg/models"
)

type fakeTool struct {
	name    string
	risk    models.RiskLevel
	timeout time.Duration
	execute func(ctx context.Context, args json.RawMessage) (models.ToolOutput, error)
}

func (f *fakeTool) Name() string                        { return f.name }
func (f *fakeTool) Description() string                 { return "fake tool for tests" }
func (f *fakeTool) ParametersSchema() json.RawMessage    { return json.RawMessage(`{"type":"object"}`) }
func (f *fakeTool) RiskLevel() models.RiskLevel          { return f.risk }
func (f *fakeTool) Timeout() time.Duration               { return f.timeout }
func (f *fakeTool) Execute(ctx context.Context, args json.RawMessage) (models.ToolOutput, error) {
	return f.execute(ctx, args)
}

func TestDispatchNotFound(t *testing.T) {
	r := New()
	_, err := r.Dispatch(context.Background(), "missing", nil)
	var nf *errs.NotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestDispatchSuccess(t *testing.T) {
	r := New()
	r.Register(&fakeTool{
		name: "echo",
		risk: models.RiskReadOnly,
		execute: func(ctx context.Context, args json.RawMessage) (models.ToolOutput, error) {
			return models.ToolOutput{Text: "ok"}, nil
		},
	})
	out, err := r.Dispatch(context.Background(), "echo", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "ok" {
		t.Fatalf("unexpected output: %+v", out)
	}
	trace := r.Trace()
	if len(trace) != 1 || trace[0].Name != "echo" || trace[0].Err != nil {
		t.Fatalf("unexpected trace: %+v", trace)
	}
}

func TestDispatchTimeout(t *testing.T) {
	r := New()
	r.Register(&fakeTool{
		name:    "slow",
		risk:    models.RiskReadOnly,
		timeout: 10 * time.Millisecond,
		execute: func(ctx context.Context, args json.RawMessage) (models.ToolOutput, error) {
			<-ctx.Done()
			return models.ToolOutput{}, ctx.Err()
		},
	})
	_, err := r.Dispatch(context.Background(), "slow", nil)
	var to *errs.Timeout
	if !errors.As(err, &to) {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestDispatchDefaultTimeoutApplied(t *testing.T) {
	r := New()
	r.Register(&fakeTool{
		name: "no-timeout-declared",
		risk: models.RiskReadOnly,
		execute: func(ctx context.Context, args json.RawMessage) (models.ToolOutput, error) {
			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatal("expected a deadline to be applied")
			}
			if time.Until(deadline) > defaultTimeout {
				t.Fatal("deadline exceeds default timeout")
			}
			return models.ToolOutput{Text: "ok"}, nil
		},
	})
	if _, err := r.Dispatch(context.Background(), "no-timeout-declared", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
