package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/toolregistry"
	"github.com/rustant/rustant/internal/workflow"
)

// =============================================================================
// workflow command group
// =============================================================================

func buildWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run and manage workflow engine runs",
		Long: `Start, resume, and inspect workflow runs: a typed step DAG with
approval gates, on_error retry/skip/fail policies, and atomic
per-transition persistence under .rustant/workflow/runs/.`,
	}
	cmd.AddCommand(buildWorkflowRunCmd(), buildWorkflowResumeCmd(), buildWorkflowStatusCmd())
	return cmd
}

func newWorkflowEngine() *workflow.Engine {
	registry := toolregistry.New()
	store := workflow.NewFileStore(workspaceDir)
	return workflow.NewEngine(workflow.RegistryInvoker{Registry: registry}, store)
}

func buildWorkflowRunCmd() *cobra.Command {
	var inputPairs []string

	cmd := &cobra.Command{
		Use:   "run <definition.json>",
		Short: "Start a new workflow run from a definition file",
		Example: `  rustant workflow run deploy.json --input target=staging --input name=ops`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadWorkflowDefinition(args[0])
			if err != nil {
				return err
			}
			inputs, err := parseKeyValuePairs(inputPairs)
			if err != nil {
				return usageErrorf("workflow run: %v", err)
			}
			return startWorkflow(cmd.OutOrStdout(), def, inputs)
		},
	}
	cmd.Flags().StringArrayVar(&inputPairs, "input", nil, "Workflow input as key=value (repeatable)")
	return cmd
}

func buildWorkflowResumeCmd() *cobra.Command {
	var (
		approve bool
		deny    bool
	)

	cmd := &cobra.Command{
		Use:   "resume <definition.json> <run-id>",
		Short: "Resume a paused or waiting-approval workflow run",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if approve == deny {
				return usageErrorf("workflow resume: exactly one of --approve or --deny is required")
			}
			def, err := loadWorkflowDefinition(args[0])
			if err != nil {
				return err
			}
			return resumeWorkflow(cmd.OutOrStdout(), def, args[1], approve)
		},
	}
	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the waiting step")
	cmd.Flags().BoolVar(&deny, "deny", false, "Deny the waiting step")
	return cmd
}

func buildWorkflowStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Print a workflow run's persisted state",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := workflow.NewFileStore(workspaceDir)
			state, err := store.Load(args[0])
			if err != nil {
				return fmt.Errorf("workflow status: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), state)
		},
	}
}

func loadWorkflowDefinition(path string) (*workflow.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, usageErrorf("workflow: read %s: %v", path, err)
	}
	var def workflow.WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, usageErrorf("workflow: parse %s: %v", path, err)
	}
	return &def, nil
}

func startWorkflow(out io.Writer, def *workflow.WorkflowDefinition, inputs map[string]string) error {
	engine := newWorkflowEngine()
	state, err := engine.Start(context.Background(), def, inputs)
	if err != nil {
		return fmt.Errorf("workflow run: %w", err)
	}
	return printJSON(out, state)
}

func resumeWorkflow(out io.Writer, def *workflow.WorkflowDefinition, runID string, approved bool) error {
	store := workflow.NewFileStore(workspaceDir)
	state, err := store.Load(runID)
	if err != nil {
		return fmt.Errorf("workflow resume: %w", err)
	}

	engine := newWorkflowEngine()
	state, err = engine.Resume(context.Background(), def, state, &workflow.ApprovalDecision{Approved: approved})
	if err != nil {
		return fmt.Errorf("workflow resume: %w", err)
	}
	return printJSON(out, state)
}

func parseKeyValuePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
