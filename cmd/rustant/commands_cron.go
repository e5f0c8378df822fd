package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/cron"
)

// =============================================================================
// cron command group
// =============================================================================

func buildCronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Manage cron-scheduled jobs",
		Long:  "Add, list, and remove named cron schedules persisted to .rustant/scheduler/cron.json.",
	}
	cmd.AddCommand(buildCronAddCmd(), buildCronListCmd(), buildCronRemoveCmd(), buildCronDueCmd())
	return cmd
}

func cronStorePath() string {
	return filepath.Join(workspaceDir, ".rustant", "scheduler", "cron.json")
}

func loadCronScheduler() (*cron.Scheduler, error) {
	sched := cron.NewScheduler()
	data, err := os.ReadFile(cronStorePath())
	if os.IsNotExist(err) {
		return sched, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cron: read store: %w", err)
	}
	if err := sched.FromJSON(data); err != nil {
		return nil, fmt.Errorf("cron: parse store: %w", err)
	}
	return sched, nil
}

func saveCronScheduler(sched *cron.Scheduler) error {
	if _, err := rustantDir(); err != nil {
		return err
	}
	path := cronStorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cron: create store dir: %w", err)
	}
	data, err := sched.ToJSON()
	if err != nil {
		return fmt.Errorf("cron: serialize store: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("cron: write store: %w", err)
	}
	return os.Rename(tmp, path)
}

func buildCronAddCmd() *cobra.Command {
	var (
		schedule string
		timezone string
		task     string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a new cron job",
		Example: `  rustant cron add nightly-scan --schedule "0 2 * * *" --task security_scan`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" || task == "" {
				return usageErrorf("cron add: --schedule and --task are required")
			}
			sched, err := loadCronScheduler()
			if err != nil {
				return err
			}
			job, err := sched.Add(args[0], schedule, timezone, task, !disabled)
			if err != nil {
				return fmt.Errorf("cron add: %w", err)
			}
			if err := saveCronScheduler(sched); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule expression (required)")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone (default UTC)")
	cmd.Flags().StringVar(&task, "task", "", "Task identifier to run (required)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Register the job disabled")
	return cmd
}

func buildCronListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered cron jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := loadCronScheduler()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sched.List())
		},
	}
}

func buildCronRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a cron job",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := loadCronScheduler()
			if err != nil {
				return err
			}
			sched.Remove(args[0])
			return saveCronScheduler(sched)
		},
	}
}

func buildCronDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List cron jobs currently due to run",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, err := loadCronScheduler()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sched.DueJobs())
		},
	}
}
