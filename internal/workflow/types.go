// Package workflow implements the pause/resume workflow engine (C6,
// §3.8/§4.6): a typed DAG of steps executed in declaration order, with
// gates that suspend execution for external approval and atomic
// per-transition state persistence so a crash-restart resumes at the
// same step.
package workflow

import "time"

// GateType controls whether a step's execution pauses for approval.
type GateType string

const (
	GateNone             GateType = ""
	GateApprovalRequired GateType = "approval_required"
	GateApprovalOptional GateType = "approval_optional"
	GateReviewOnly       GateType = "review_only"
	GateConditional      GateType = "conditional"
)

// Gate configures a step's approval requirement.
type Gate struct {
	Type GateType
	// DefaultApprove is used by an ApprovalOptional gate when resume
	// times out without an explicit decision.
	DefaultApprove bool
}

// ErrorActionKind selects what a step does on failure.
type ErrorActionKind string

const (
	ErrorActionFail  ErrorActionKind = "fail"
	ErrorActionSkip  ErrorActionKind = "skip"
	ErrorActionRetry ErrorActionKind = "retry"
)

// ErrorAction is a step's on_error policy. MaxRetries is only
// meaningful when Kind is ErrorActionRetry.
type ErrorAction struct {
	Kind       ErrorActionKind
	MaxRetries int
}

// WorkflowStep is one node of a WorkflowDefinition, executed in
// declaration order.
type WorkflowStep struct {
	ID          string
	Tool        string
	Params      map[string]string
	Output      string
	Condition   string
	OnError     ErrorAction
	Gate        Gate
	TimeoutSecs int
}

// WorkflowDefinition is a named, versioned workflow plan.
type WorkflowDefinition struct {
	Name        string
	Description string
	Version     string
	Inputs      []string
	Steps       []WorkflowStep
	Outputs     []string
}

// WorkflowStatus is a WorkflowState's lifecycle state. Completed,
// Failed, and Cancelled are terminal.
type WorkflowStatus string

const (
	StatusPending         WorkflowStatus = "pending"
	StatusRunning         WorkflowStatus = "running"
	StatusWaitingApproval WorkflowStatus = "waiting_approval"
	StatusPaused          WorkflowStatus = "paused"
	StatusCompleted       WorkflowStatus = "completed"
	StatusFailed          WorkflowStatus = "failed"
	StatusCancelled       WorkflowStatus = "cancelled"
)

func (s WorkflowStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// WorkflowState is the persisted, resumable state of one workflow run.
type WorkflowState struct {
	RunID            string            `json:"run_id"`
	WorkflowName     string            `json:"workflow_name"`
	Status           WorkflowStatus    `json:"status"`
	CurrentStepIndex int               `json:"current_step_index"`
	StepOutputs      map[string]string `json:"step_outputs"`
	Inputs           map[string]string `json:"inputs"`
	StartedAt        time.Time         `json:"started_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Error            string            `json:"error,omitempty"`

	// retryCounts tracks in-progress Retry{max} attempts per step id
	// across Resume calls; it is not part of the spec's persisted
	// WorkflowState shape and is kept unexported so it never appears
	// in the JSON on disk.
	retryCounts map[string]int
}

// ApprovalDecision is supplied by the caller on Resume when a step is
// WaitingApproval.
type ApprovalDecision struct {
	Approved bool
	TimedOut bool
}
