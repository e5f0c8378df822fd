package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/multiagent"
)

// =============================================================================
// agent command group
//
// Unlike jobs/cron/workflow/consent, there is no on-disk path defined
// for agent contexts: the spawner's forest is
// scoped to one running process (a long-lived agent session), not
// resumed across CLI invocations. These subcommands build and operate on
// a forest declared in a single JSON tree file within one invocation.
// =============================================================================

// agentSpec is the declarative shape of one node (and its descendants)
// in an agent forest file.
type agentSpec struct {
	Name     string      `json:"name"`
	Children []agentSpec `json:"children,omitempty"`
}

func buildAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Spawn and inspect multi-agent forests",
		Long: `Build a multi-agent forest from a declarative JSON tree and
inspect the resulting AgentContext set, including cascading termination.`,
	}
	cmd.AddCommand(buildAgentSpawnTreeCmd(), buildAgentCascadeCmd())
	return cmd
}

func buildAgentSpawnTreeCmd() *cobra.Command {
	var maxAgents int
	cmd := &cobra.Command{
		Use:   "spawn-tree <tree.json>",
		Short: "Spawn a forest of agents from a JSON tree file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadAgentSpec(args[0])
			if err != nil {
				return err
			}
			spawner := multiagent.NewSpawner(maxAgents)
			if _, err := spawnAgentTree(spawner, *spec, ""); err != nil {
				return fmt.Errorf("agent spawn-tree: %w", err)
			}
			return printAgentForest(cmd.OutOrStdout(), spawner)
		},
	}
	cmd.Flags().IntVar(&maxAgents, "max-agents", 100, "Spawner's live-agent cap")
	return cmd
}

func buildAgentCascadeCmd() *cobra.Command {
	var (
		maxAgents int
		terminate string
	)
	cmd := &cobra.Command{
		Use:   "cascade <tree.json> --terminate <name>",
		Short: "Spawn a forest, then cascade-terminate one named agent",
		Long: `Spawns the declared forest, then terminates the first agent whose
Name matches --terminate. Terminate removes that node and, recursively,
every descendant (post-order), matching the spawner's cascade contract.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if terminate == "" {
				return usageErrorf("agent cascade: --terminate is required")
			}
			spec, err := loadAgentSpec(args[0])
			if err != nil {
				return err
			}
			spawner := multiagent.NewSpawner(maxAgents)
			ids, err := spawnAgentTree(spawner, *spec, "")
			if err != nil {
				return fmt.Errorf("agent cascade: %w", err)
			}
			targetID, ok := ids[terminate]
			if !ok {
				return usageErrorf("agent cascade: no agent named %q in the tree", terminate)
			}
			before := spawner.Count()
			spawner.Terminate(targetID)
			after := spawner.Count()
			fmt.Fprintf(cmd.OutOrStdout(), "terminated %q and its descendants: %d -> %d agents\n", terminate, before, after)
			return printAgentForest(cmd.OutOrStdout(), spawner)
		},
	}
	cmd.Flags().IntVar(&maxAgents, "max-agents", 100, "Spawner's live-agent cap")
	cmd.Flags().StringVar(&terminate, "terminate", "", "Name of the agent to cascade-terminate")
	return cmd
}

func loadAgentSpec(path string) (*agentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, usageErrorf("agent: read %s: %v", path, err)
	}
	var spec agentSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, usageErrorf("agent: parse %s: %v", path, err)
	}
	return &spec, nil
}

// spawnAgentTree recursively spawns spec under parentID, returning a
// name->agent-id map for every node spawned.
func spawnAgentTree(spawner *multiagent.Spawner, spec agentSpec, parentID string) (map[string]string, error) {
	var ctx *multiagent.AgentContext
	var err error
	if parentID == "" {
		ctx, err = spawner.Spawn(spec.Name, multiagent.Options{})
	} else {
		ctx, err = spawner.SpawnChild(spec.Name, parentID, multiagent.Options{})
	}
	if err != nil {
		return nil, err
	}

	ids := map[string]string{spec.Name: ctx.AgentID}
	for _, child := range spec.Children {
		childIDs, err := spawnAgentTree(spawner, child, ctx.AgentID)
		if err != nil {
			return nil, err
		}
		for name, id := range childIDs {
			ids[name] = id
		}
	}
	return ids, nil
}

func printAgentForest(out io.Writer, spawner *multiagent.Spawner) error {
	type forestEntry struct {
		AgentID  string                 `json:"agent_id"`
		Name     string                 `json:"name"`
		ParentID string                 `json:"parent_id,omitempty"`
		Status   multiagent.AgentStatus `json:"status"`
	}

	var entries []forestEntry
	for _, status := range []multiagent.AgentStatus{
		multiagent.StatusIdle,
		multiagent.StatusRunning,
		multiagent.StatusSuspended,
		multiagent.StatusTerminated,
	} {
		for _, ctx := range spawner.ListByStatus(status) {
			entries = append(entries, forestEntry{
				AgentID:  ctx.AgentID,
				Name:     ctx.Name,
				ParentID: ctx.ParentID,
				Status:   ctx.Status,
			})
		}
	}
	return printJSON(out, struct {
		Count  int           `json:"count"`
		Agents []forestEntry `json:"agents"`
	}{Count: spawner.Count(), Agents: entries})
}
