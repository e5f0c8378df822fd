// Package toolregistry is the name→Tool dispatch surface (C2). It owns
// the tool table exclusively and never enforces policy; the safety gate
// is applied by the caller (the agent control loop) before Dispatch runs.
package toolregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/pkg/models"
)

const defaultTimeout = 30 * time.Second

// Tool is the polymorphic capability set every dispatchable action
// implements.
type Tool interface {
	Name() string
	Description() string
	ParametersSchema() json.RawMessage
	RiskLevel() models.RiskLevel
	// Timeout returns the declared deadline for Execute. A zero value
	// means the registry applies defaultTimeout.
	Timeout() time.Duration
	Execute(ctx context.Context, args json.RawMessage) (models.ToolOutput, error)
}

// Invocation is a structured trace of one dispatch, consumed by the
// agent control loop for its decision log.
type Invocation struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	Err      error
}

// Registry maps tool names to implementations.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	trace []Invocation
}

func New() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, overwriting any previous registration under the
// same name. Registration has no side effects beyond the table mutation.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tool names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	return names
}

// Dispatch looks up name and invokes Execute under the tool's declared
// timeout. It never applies policy; that is the caller's job.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (models.ToolOutput, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return models.ToolOutput{}, &errs.NotFound{What: fmt.Sprintf("tool %q", name)}
	}

	timeout := t.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inv := Invocation{Name: name, Start: time.Now()}
	out, err := t.Execute(execCtx, args)
	inv.Duration = time.Since(inv.Start)

	if err != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		err = &errs.Timeout{Tool: name}
	}
	inv.Err = err

	r.mu.Lock()
	r.trace = append(r.trace, inv)
	r.mu.Unlock()

	return out, err
}

// Trace returns a snapshot of recorded invocations, most recent last.
func (r *Registry) Trace() []Invocation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Invocation, len(r.trace))
	copy(out, r.trace)
	return out
}
