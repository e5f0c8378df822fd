package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/consent"
)

// =============================================================================
// consent command group
// =============================================================================

func buildConsentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Manage per-scope consent records",
		Long:  "Grant, revoke, and list consent records persisted to .rustant/consent/records.json.",
	}
	cmd.AddCommand(buildConsentGrantCmd(), buildConsentRevokeCmd(), buildConsentListCmd())
	return cmd
}

func consentStorePath() string {
	return filepath.Join(workspaceDir, ".rustant", "consent", "records.json")
}

func openConsentManager() (*consent.Manager, error) {
	mgr := consent.NewManager(consent.WithPersistPath(consentStorePath()))
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("consent: load: %w", err)
	}
	return mgr, nil
}

func parseConsentScope(kind, name string) (consent.Scope, error) {
	switch kind {
	case "global":
		return consent.GlobalScope(), nil
	case "provider":
		return consent.ProviderScope(name), nil
	case "local_storage":
		return consent.LocalStorageScope(), nil
	case "memory_retention":
		return consent.MemoryRetentionScope(), nil
	case "tool_access":
		return consent.ToolAccessScope(name), nil
	case "channel_access":
		return consent.ChannelAccessScope(name), nil
	default:
		return consent.Scope{}, usageErrorf("consent: unknown scope kind %q", kind)
	}
}

func buildConsentGrantCmd() *cobra.Command {
	var (
		name    string
		reason  string
		ttl     time.Duration
		oneTime bool
	)
	cmd := &cobra.Command{
		Use:   "grant <kind>",
		Short: "Grant consent for a scope",
		Long:  "kind is one of global, provider, local_storage, memory_retention, tool_access, channel_access.",
		Example: `  rustant consent grant tool_access --name shell --reason "approved by operator"
  rustant consent grant provider --name anthropic --ttl 24h`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseConsentScope(args[0], name)
			if err != nil {
				return err
			}
			mgr, err := openConsentManager()
			if err != nil {
				return err
			}
			if oneTime {
				mgr.GrantOneTime(scope, reason)
			} else {
				mgr.Grant(scope, reason, ttl)
			}
			if err := mgr.Persist(); err != nil {
				return fmt.Errorf("consent grant: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %s\n", scope)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Scope name (provider/tool/channel; ignored for global/local_storage/memory_retention)")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the grant")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Time-to-live; 0 means indefinite")
	cmd.Flags().BoolVar(&oneTime, "one-time", false, "Grant is consumed after a single use")
	return cmd
}

func buildConsentRevokeCmd() *cobra.Command {
	var (
		name   string
		reason string
	)
	cmd := &cobra.Command{
		Use:   "revoke <kind>",
		Short: "Revoke consent for a scope",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseConsentScope(args[0], name)
			if err != nil {
				return err
			}
			mgr, err := openConsentManager()
			if err != nil {
				return err
			}
			mgr.Revoke(scope, reason)
			if err := mgr.Persist(); err != nil {
				return fmt.Errorf("consent revoke: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", scope)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Scope name")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the revocation")
	return cmd
}

func buildConsentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List currently valid consent records",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openConsentManager()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), mgr.ListActive())
		},
	}
}
