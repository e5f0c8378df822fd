// Package errs holds the runtime's error taxonomy (kind + structured
// fields), matched via errors.As at every public operation boundary.
package errs

import "fmt"

// InvalidArguments is returned by a tool dispatch when the arguments fail
// schema validation.
type InvalidArguments struct {
	Tool   string
	Reason string
}

func (e *InvalidArguments) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// ExecutionFailed wraps a tool's own execution error.
type ExecutionFailed struct {
	Tool string
	Msg  string
	Err  error
}

func (e *ExecutionFailed) Error() string {
	return fmt.Sprintf("%s: execution failed: %s", e.Tool, e.Msg)
}

func (e *ExecutionFailed) Unwrap() error { return e.Err }

// Timeout is returned when a suspending operation exceeds its declared
// deadline (tool timeout, workflow step timeout, cron wall clock).
type Timeout struct {
	Tool string
}

func (e *Timeout) Error() string { return fmt.Sprintf("%s: timed out", e.Tool) }

// NotPermitted is returned by the policy gate on a denied tool call.
type NotPermitted struct {
	Reason string
}

func (e *NotPermitted) Error() string { return fmt.Sprintf("not permitted: %s", e.Reason) }

// NotFound covers missing tools, jobs, agents, checkpoints, workflow runs.
type NotFound struct {
	What string
}

func (e *NotFound) Error() string { return fmt.Sprintf("not found: %s", e.What) }

// Serialization wraps a JSON (de)serialization failure at a persistence
// boundary.
type Serialization struct {
	Msg string
	Err error
}

func (e *Serialization) Error() string { return fmt.Sprintf("serialization: %s", e.Msg) }
func (e *Serialization) Unwrap() error { return e.Err }

// ChannelError reports a channel-transport level failure.
type ChannelError struct {
	Kind string
	Name string
}

func (e *ChannelError) Error() string { return fmt.Sprintf("channel %s: %s", e.Name, e.Kind) }

// SchedulerError reports a cron/job-manager level failure.
type SchedulerError struct {
	Kind string
}

func (e *SchedulerError) Error() string { return fmt.Sprintf("scheduler: %s", e.Kind) }

// WorkflowError reports a workflow-engine level failure.
type WorkflowError struct {
	Kind string
}

func (e *WorkflowError) Error() string { return fmt.Sprintf("workflow: %s", e.Kind) }

// ConsentDenied is returned when a ToolAccess/ChannelAccess/etc. consent
// check fails.
type ConsentDenied struct {
	Scope string
}

func (e *ConsentDenied) Error() string { return fmt.Sprintf("consent denied: %s", e.Scope) }
