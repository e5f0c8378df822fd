package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/secretref"
)

// =============================================================================
// secret command group
// =============================================================================

func buildSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage secret references",
	}
	cmd.AddCommand(buildSecretMigrateCmd())
	return cmd
}

func buildSecretMigrateCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move inline-plaintext config secrets into the OS credential store",
		Long: `Reads the active layered config and, for every field that
currently holds inline plaintext (neither keychain: nor env:-prefixed),
writes it to the OS keychain under a stable account name and reports
what changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("secret migrate: load config: %w", err)
			}

			fields := []secretref.FieldValue{
				{Field: "llm.base_url", Value: secretref.Ref(cfg.LLM.BaseURL)},
			}
			if baseURL != "" {
				fields = append(fields, secretref.FieldValue{Field: "llm.override_base_url", Value: secretref.Ref(baseURL)})
			}

			result := secretref.Migrate(fields)
			errs := make(map[string]string, len(result.Errors))
			for field, err := range result.Errors {
				errs[field] = err.Error()
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Migrated      []string          `json:"migrated"`
				AlreadySecure []string          `json:"already_secure"`
				Errors        map[string]string `json:"errors"`
			}{result.Migrated, result.AlreadySecure, errs})
		},
	}
	cmd.Flags().StringVar(&baseURL, "also", "", "An additional inline secret value to migrate alongside the config")
	return cmd
}
