package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/jobs"
)

// =============================================================================
// jobs command group
// =============================================================================

const defaultMaxJobs = 50

func buildJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
		Long:  "Spawn, list, and finish background jobs persisted to .rustant/scheduler/jobs.json.",
	}
	cmd.AddCommand(
		buildJobsSpawnCmd(),
		buildJobsListCmd(),
		buildJobsCompleteCmd(),
		buildJobsFailCmd(),
		buildJobsCancelCmd(),
	)
	return cmd
}

func jobsStorePath() string {
	return filepath.Join(workspaceDir, ".rustant", "scheduler", "jobs.json")
}

func loadJobsManager() (*jobs.Manager, error) {
	mgr := jobs.NewManager(defaultMaxJobs)
	data, err := os.ReadFile(jobsStorePath())
	if os.IsNotExist(err) {
		return mgr, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jobs: read store: %w", err)
	}
	if err := mgr.FromJSON(data); err != nil {
		return nil, fmt.Errorf("jobs: parse store: %w", err)
	}
	return mgr, nil
}

func saveJobsManager(mgr *jobs.Manager) error {
	if _, err := rustantDir(); err != nil {
		return err
	}
	path := jobsStorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("jobs: create store dir: %w", err)
	}
	data, err := mgr.ToJSON()
	if err != nil {
		return fmt.Errorf("jobs: serialize store: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("jobs: write store: %w", err)
	}
	return os.Rename(tmp, path)
}

func buildJobsSpawnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spawn <name>",
		Short: "Spawn a new background job",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadJobsManager()
			if err != nil {
				return err
			}
			job, err := mgr.Spawn(args[0])
			if err != nil {
				return fmt.Errorf("jobs spawn: %w", err)
			}
			if err := saveJobsManager(mgr); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
}

func buildJobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadJobsManager()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), mgr.List())
		},
	}
}

func buildJobsCompleteCmd() *cobra.Command {
	var result string
	cmd := &cobra.Command{
		Use:   "complete <job-id>",
		Short: "Mark a job completed",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return finishJob(cmd, args[0], func(mgr *jobs.Manager, id string) error {
				return mgr.Complete(id, result)
			})
		},
	}
	cmd.Flags().StringVar(&result, "result", "", "Result text to record")
	return cmd
}

func buildJobsFailCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "fail <job-id>",
		Short: "Mark a job failed",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return finishJob(cmd, args[0], func(mgr *jobs.Manager, id string) error {
				return mgr.Fail(id, reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Failure reason to record")
	return cmd
}

func buildJobsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a job",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return finishJob(cmd, args[0], func(mgr *jobs.Manager, id string) error {
				return mgr.Cancel(id)
			})
		},
	}
}

func finishJob(cmd *cobra.Command, id string, apply func(*jobs.Manager, string) error) error {
	mgr, err := loadJobsManager()
	if err != nil {
		return err
	}
	if err := apply(mgr, id); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	if err := saveJobsManager(mgr); err != nil {
		return err
	}
	job, _ := mgr.Get(id)
	return printJSON(cmd.OutOrStdout(), job)
}
