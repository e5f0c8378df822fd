package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rustant/rustant/internal/agentloop"
	"github.com/rustant/rustant/internal/config"
	"github.com/rustant/rustant/internal/consent"
	"github.com/rustant/rustant/internal/findings"
	"github.com/rustant/rustant/internal/llm"
	"github.com/rustant/rustant/internal/observability"
	"github.com/rustant/rustant/internal/safety"
	"github.com/rustant/rustant/internal/toolregistry"
	"github.com/rustant/rustant/pkg/models"
)

// =============================================================================
// run command
// =============================================================================

func buildRunCmd() *cobra.Command {
	var (
		providerOverride string
		modelOverride    string
		system           string
	)

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one prompt through the agent control loop",
		Long: `Drive the agent control loop (Planning -> LlmCall -> Gate -> ExecuteTool
-> AppendToolResult -> Planning) for a single user prompt and print the
assistant's final reply.`,
		Example: `  rustant run "scan this repo for hardcoded secrets"
  rustant run --provider openai --model gpt-4o "summarize the README"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" {
				return usageErrorf("run: a prompt is required")
			}
			return runOnce(cmd.OutOrStdout(), prompt, providerOverride, modelOverride, system)
		},
	}

	cmd.Flags().StringVar(&providerOverride, "provider", "", "Override llm.provider (anthropic|openai)")
	cmd.Flags().StringVar(&modelOverride, "model", "", "Override llm.model")
	cmd.Flags().StringVar(&system, "system", "", "Additional system prompt text")
	return cmd
}

func runOnce(out io.Writer, prompt, providerOverride, modelOverride, system string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("run: load config: %w", err)
	}

	provider := cfg.LLM.Provider
	if providerOverride != "" {
		provider = providerOverride
	}
	model := cfg.LLM.Model
	if modelOverride != "" {
		model = modelOverride
	}

	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	if apiKey == "" {
		return usageErrorf("run: environment variable %s is not set", cfg.LLM.APIKeyEnv)
	}

	metrics := observability.NewMetrics()

	var llmProvider agentloop.Provider
	switch provider {
	case "openai":
		p, err := llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: apiKey, BaseURL: cfg.LLM.BaseURL, DefaultModel: model})
		if err != nil {
			return fmt.Errorf("run: build openai provider: %w", err)
		}
		p.Metrics = metrics
		llmProvider = p
	case "anthropic", "":
		p, err := llm.NewAnthropicProvider(llm.AnthropicConfig{APIKey: apiKey, BaseURL: cfg.LLM.BaseURL, DefaultModel: model})
		if err != nil {
			return fmt.Errorf("run: build anthropic provider: %w", err)
		}
		p.Metrics = metrics
		llmProvider = p
	default:
		return usageErrorf("run: unknown llm.provider %q", provider)
	}

	registry := toolregistry.New()
	if cfg.Tools.EnableBuiltins {
		registry.Register(findings.NewTool(findings.NewOrchestrator(nil, nil)))
	}

	consentMgr := consent.NewManager(consent.WithDefaultPolicy(consent.RequireExplicit))
	gate := safety.NewGate(configApprovalMode(cfg.Safety.ApprovalMode), safety.AllowDenyLists{
		AllowedPaths:    cfg.Safety.AllowedPaths,
		DeniedPaths:     cfg.Safety.DeniedPaths,
		AllowedCommands: cfg.Safety.AllowedCommands,
		DeniedCommands:  cfg.Safety.DeniedCommands,
		AllowedHosts:    cfg.Safety.AllowedHosts,
	}, consentMgr)

	logger := observability.NewLogger(observability.LogConfig{Level: "info", Format: "text"})
	events := observability.NewEventRecorder(observability.NewMemoryEventStore(256), logger)

	loop := &agentloop.Loop{
		Provider:      llmProvider,
		Registry:      registry,
		Gate:          gate,
		MaxIterations: cfg.Safety.MaxIterations,
		MaxRuntime:    5 * time.Minute,
		ContextWindow: cfg.LLM.ContextWindow,
		Model:         model,
		System:        system,
		Metrics:       metrics,
		Events:        events,
		RequestApproval: func(tool string, risk models.RiskLevel) bool {
			fmt.Fprintf(out, "approval required for %s (risk=%v): denying in non-interactive run\n", tool, risk)
			return false
		},
	}

	history := []models.Message{{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   models.TextContent(prompt),
		CreatedAt: time.Now(),
	}}

	result := loop.Run(context.Background(), history)
	switch result.Terminal {
	case agentloop.TerminalEmitText:
		last := result.History[len(result.History)-1]
		fmt.Fprintln(out, last.Content.Text)
		return nil
	case agentloop.TerminalIterationCap:
		fmt.Fprintln(out, "run: iteration cap reached without a final answer")
		return nil
	case agentloop.TerminalCancelled:
		return fmt.Errorf("run: cancelled: %w", result.Err)
	default:
		return fmt.Errorf("run: %w", result.Err)
	}
}

func configApprovalMode(mode config.ApprovalMode) safety.ApprovalMode {
	switch mode {
	case config.ApprovalYolo:
		return safety.Yolo
	case config.ApprovalCautious:
		return safety.Cautious
	case config.ApprovalParanoid:
		return safety.Paranoid
	case config.ApprovalSafe:
		return safety.Safe
	default:
		return safety.Safe
	}
}
