package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/internal/toolregistry"
)

// ToolInvoker executes one tool call by name with string-valued
// parameters, returning the tool's text output. It is the engine's
// only dependency on a concrete dispatch surface, letting tests stub
// tool execution without a real registry.
type ToolInvoker interface {
	Invoke(ctx context.Context, tool string, params map[string]string) (string, error)
}

// RegistryInvoker adapts an internal/toolregistry.Registry to
// ToolInvoker, marshaling string params into the JSON args Dispatch
// expects.
type RegistryInvoker struct {
	Registry *toolregistry.Registry
}

func (r RegistryInvoker) Invoke(ctx context.Context, tool string, params map[string]string) (string, error) {
	args, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	out, err := r.Registry.Dispatch(ctx, tool, args)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// Store persists and loads WorkflowState atomically, one file per run
// id, grounded on the same temp-file-plus-rename pattern used by
// internal/consent.Manager.Persist.
type Store interface {
	Save(state *WorkflowState) error
	Load(runID string) (*WorkflowState, error)
}

// ConditionFunc evaluates a step's interpolated condition string.
// The default evaluator treats "", "true" (any case) as true and
// anything else, including "false", as false.
type ConditionFunc func(interpolated string) bool

func defaultCondition(interpolated string) bool {
	switch interpolated {
	case "", "true", "True", "TRUE":
		return true
	default:
		return false
	}
}

// Engine executes WorkflowDefinitions against an Invoker and persists
// state via a Store after every transition.
type Engine struct {
	Invoker   ToolInvoker
	Store     Store
	Condition ConditionFunc
	Now       func() time.Time
}

// NewEngine builds an Engine with the default condition evaluator and
// clock.
func NewEngine(invoker ToolInvoker, store Store) *Engine {
	return &Engine{Invoker: invoker, Store: store, Condition: defaultCondition, Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) condition(interpolated string) bool {
	if e.Condition != nil {
		return e.Condition(interpolated)
	}
	return defaultCondition(interpolated)
}

// Start begins a new run of def with the given inputs, persisting the
// initial Pending state before stepping.
func (e *Engine) Start(ctx context.Context, def *WorkflowDefinition, inputs map[string]string) (*WorkflowState, error) {
	state := &WorkflowState{
		RunID:            uuid.NewString(),
		WorkflowName:     def.Name,
		Status:           StatusPending,
		CurrentStepIndex: 0,
		StepOutputs:      make(map[string]string),
		Inputs:           inputs,
		StartedAt:        e.now(),
		UpdatedAt:        e.now(),
		retryCounts:      make(map[string]int),
	}
	if err := e.persist(state); err != nil {
		return nil, err
	}
	return e.run(ctx, def, state, nil)
}

// Resume continues a paused or waiting-approval run from its persisted
// state. decision is only consulted when the current step is
// WaitingApproval.
func (e *Engine) Resume(ctx context.Context, def *WorkflowDefinition, state *WorkflowState, decision *ApprovalDecision) (*WorkflowState, error) {
	if state.Status.Terminal() {
		return state, nil
	}
	if state.retryCounts == nil {
		state.retryCounts = make(map[string]int)
	}
	return e.run(ctx, def, state, decision)
}

// run drives the step loop starting at state.CurrentStepIndex,
// returning control (without advancing further) whenever a step gates
// on approval, or the run reaches a terminal status.
func (e *Engine) run(ctx context.Context, def *WorkflowDefinition, state *WorkflowState, decision *ApprovalDecision) (*WorkflowState, error) {
	state.Status = StatusRunning

	for state.CurrentStepIndex < len(def.Steps) {
		step := def.Steps[state.CurrentStepIndex]

		cond := interpolate(step.Condition, state.Inputs, state.StepOutputs)
		if step.Condition != "" && !e.condition(cond) {
			state.CurrentStepIndex++
			if err := e.persist(state); err != nil {
				return state, err
			}
			decision = nil
			continue
		}

		if step.Gate.Type == GateApprovalRequired || step.Gate.Type == GateApprovalOptional {
			if decision == nil {
				state.Status = StatusWaitingApproval
				if err := e.persist(state); err != nil {
					return state, err
				}
				return state, nil
			}

			approved := decision.Approved
			if decision.TimedOut && step.Gate.Type == GateApprovalOptional {
				approved = step.Gate.DefaultApprove
			}
			decision = nil
			if !approved {
				state.Status = StatusCancelled
				state.UpdatedAt = e.now()
				return state, e.persist(state)
			}
		}

		out, err := e.executeStep(ctx, step, state)
		if err != nil {
			done, runErr := e.handleStepError(state, step, err)
			if runErr != nil {
				return state, runErr
			}
			if done {
				return state, nil
			}
			// Retry: re-execute the same step index without advancing.
			continue
		}

		if step.Output != "" {
			state.StepOutputs[step.Output] = out
		}
		state.CurrentStepIndex++
		if err := e.persist(state); err != nil {
			return state, err
		}
	}

	state.Status = StatusCompleted
	state.UpdatedAt = e.now()
	return state, e.persist(state)
}

func (e *Engine) executeStep(ctx context.Context, step WorkflowStep, state *WorkflowState) (string, error) {
	params := interpolateParams(step.Params, state.Inputs, state.StepOutputs)

	runCtx := ctx
	var cancel context.CancelFunc
	if step.TimeoutSecs > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(step.TimeoutSecs)*time.Second)
		defer cancel()
	}

	if e.Invoker == nil {
		return "", &errs.WorkflowError{Kind: "no tool invoker configured"}
	}
	return e.Invoker.Invoke(runCtx, step.Tool, params)
}

// handleStepError applies step.OnError to a failed invocation. done
// reports whether the run has reached a terminal state and the caller
// should stop looping.
func (e *Engine) handleStepError(state *WorkflowState, step WorkflowStep, stepErr error) (done bool, err error) {
	switch step.OnError.Kind {
	case ErrorActionSkip:
		state.CurrentStepIndex++
		return false, e.persist(state)

	case ErrorActionRetry:
		attempts := state.retryCounts[step.ID]
		if attempts < step.OnError.MaxRetries {
			state.retryCounts[step.ID] = attempts + 1
			return false, nil
		}
		state.Status = StatusFailed
		state.Error = fmt.Sprintf("step %s: %v (exhausted %d retries)", step.ID, stepErr, step.OnError.MaxRetries)
		state.UpdatedAt = e.now()
		return true, e.persist(state)

	default: // ErrorActionFail, or unset
		state.Status = StatusFailed
		state.Error = fmt.Sprintf("step %s: %v", step.ID, stepErr)
		state.UpdatedAt = e.now()
		return true, e.persist(state)
	}
}

func (e *Engine) persist(state *WorkflowState) error {
	state.UpdatedAt = e.now()
	if e.Store == nil {
		return nil
	}
	return e.Store.Save(state)
}
