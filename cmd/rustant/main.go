// Package main provides the CLI entry point for rustant, an agentic
// assistant runtime: a control loop over an LLM provider, a gated tool
// registry, a pause/resume workflow engine, a background job/cron
// scheduler, a multi-agent spawner, and git-backed checkpoints.
//
// # Basic Usage
//
// Run a single prompt through the agent loop:
//
//	rustant run "summarize the open TODOs in this repo"
//
// Start a workflow:
//
//	rustant workflow run workflow.json --input name=ops
//
// Inspect background jobs or cron schedules:
//
//	rustant jobs list
//	rustant cron list
//
// # Environment Variables
//
//   - RUSTANT_*: layered config overrides, e.g. RUSTANT_LLM__MODEL
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY (or whatever llm.api_key_env names)
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/config"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// workspaceDir and userConfigPath are shared persistent flags threaded
// through every subcommand that needs to locate workspace-local state
// under .rustant/.
var (
	workspaceDir string
)

// usageError marks a failure as a CLI usage mistake (bad flags, missing
// required args) rather than a runtime failure, so main can map it to
// exit code 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// exactArgs wraps cobra.ExactArgs so an arity mismatch maps to exit
// code 2 (invalid arguments) rather than 1 (runtime error).
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageErrorf("%s", err)
		}
		return nil
	}
}

func main() {
	rootCmd := buildRootCmd()

	if err := rootCmd.Execute(); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Kept separate from main so tests can exercise command wiring directly.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rustant",
		Short: "rustant - agentic assistant runtime",
		Long: `rustant drives an LLM agent loop over a gated tool registry, with
workflows, background jobs, cron schedules, a multi-agent spawner, and
git-backed checkpoints as collaborating components.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&workspaceDir, "workspace", ".", "Workspace root (state lives under <workspace>/.rustant)")

	rootCmd.AddCommand(
		buildRunCmd(),
		buildWorkflowCmd(),
		buildCronCmd(),
		buildJobsCmd(),
		buildAgentCmd(),
		buildCheckpointCmd(),
		buildConsentCmd(),
		buildSecretCmd(),
	)

	return rootCmd
}

// rustantDir returns <workspace>/.rustant, creating it if absent.
func rustantDir() (string, error) {
	dir := filepath.Join(workspaceDir, ".rustant")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// loadConfig applies the layered config resolution for the current
// workspace: built-in defaults, user config file, workspace config
// file, then RUSTANT_ environment overrides.
func loadConfig() (*config.Config, error) {
	userPath, err := config.UserConfigDir()
	if err != nil {
		userPath = ""
	} else {
		userPath = filepath.Join(userPath, "config.toml")
	}
	return config.Load(userPath, config.WorkspaceConfigPath(workspaceDir))
}
