package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/checkpoint"
)

// =============================================================================
// checkpoint command group
// =============================================================================

func buildCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage git-backed workspace checkpoints",
		Long:  "Create, list, restore, undo, and diff snapshots under refs/rustant/checkpoints/.",
	}
	cmd.AddCommand(
		buildCheckpointCreateCmd(),
		buildCheckpointListCmd(),
		buildCheckpointRestoreCmd(),
		buildCheckpointUndoCmd(),
		buildCheckpointDiffCmd(),
	)
	return cmd
}

func openCheckpointManager() (*checkpoint.Manager, error) {
	mgr, err := checkpoint.Open(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	return mgr, nil
}

func buildCheckpointCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <label>",
		Short: "Snapshot the working tree under a new checkpoint",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openCheckpointManager()
			if err != nil {
				return err
			}
			cp, err := mgr.CreateCheckpoint(args[0])
			if err != nil {
				return fmt.Errorf("checkpoint create: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), cp)
		},
	}
}

func buildCheckpointListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded checkpoints, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openCheckpointManager()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), mgr.Checkpoints())
		},
	}
}

func buildCheckpointRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <index>",
		Short: "Reset the working tree to a checkpoint by index (0-based)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return usageErrorf("checkpoint restore: invalid index %q", args[0])
			}
			mgr, err := openCheckpointManager()
			if err != nil {
				return err
			}
			if err := mgr.RestoreCheckpoint(index); err != nil {
				return fmt.Errorf("checkpoint restore: %w", err)
			}
			return nil
		},
	}
}

func buildCheckpointUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the most recently created checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openCheckpointManager()
			if err != nil {
				return err
			}
			if err := mgr.Undo(); err != nil {
				return fmt.Errorf("checkpoint undo: %w", err)
			}
			return nil
		},
	}
}

func buildCheckpointDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show a diff between the working tree and the last checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openCheckpointManager()
			if err != nil {
				return err
			}
			diff, err := mgr.DiffFromLast()
			if err != nil {
				return fmt.Errorf("checkpoint diff: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}
