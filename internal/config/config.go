// Package config implements the layered TOML configuration (§6):
// built-in defaults, a user config file, a workspace config file,
// RUSTANT_-prefixed environment variables, and programmatic overrides,
// applied in that order.
package config

// Config is the root configuration, top-level keys llm/safety/memory/ui/tools.
type Config struct {
	LLM    LLMConfig    `toml:"llm"`
	Safety SafetyConfig `toml:"safety"`
	Memory MemoryConfig `toml:"memory"`
	UI     UIConfig     `toml:"ui"`
	Tools  ToolsConfig  `toml:"tools"`
}

type LLMConfig struct {
	Provider              string  `toml:"provider"`
	Model                 string  `toml:"model"`
	APIKeyEnv             string  `toml:"api_key_env"`
	BaseURL               string  `toml:"base_url,omitempty"`
	MaxTokens             int     `toml:"max_tokens"`
	Temperature           float64 `toml:"temperature"`
	ContextWindow         int     `toml:"context_window"`
	InputCostPerMillion   float64 `toml:"input_cost_per_million"`
	OutputCostPerMillion  float64 `toml:"output_cost_per_million"`
	UseStreaming          bool    `toml:"use_streaming"`
}

// ApprovalMode mirrors internal/safety.ApprovalMode's lowercase wire
// form; kept as a plain string here so config decoding never depends on
// the safety package (avoiding an import cycle risk as both packages
// grow).
type ApprovalMode string

const (
	ApprovalYolo     ApprovalMode = "yolo"
	ApprovalSafe     ApprovalMode = "safe"
	ApprovalCautious ApprovalMode = "cautious"
	ApprovalParanoid ApprovalMode = "paranoid"
)

type SafetyConfig struct {
	ApprovalMode    ApprovalMode `toml:"approval_mode"`
	AllowedPaths    []string     `toml:"allowed_paths"`
	DeniedPaths     []string     `toml:"denied_paths"`
	AllowedCommands []string     `toml:"allowed_commands"`
	AskCommands     []string     `toml:"ask_commands"`
	DeniedCommands  []string     `toml:"denied_commands"`
	AllowedHosts    []string     `toml:"allowed_hosts"`
	MaxIterations   int          `toml:"max_iterations"`
}

type MemoryConfig struct {
	WindowSize           int     `toml:"window_size"`
	CompressionThreshold float64 `toml:"compression_threshold"`
	PersistPath          string  `toml:"persist_path,omitempty"`
	EnablePersistence    bool    `toml:"enable_persistence"`
}

type UIConfig struct {
	Theme    string `toml:"theme"`
	VimMode  bool   `toml:"vim_mode"`
	ShowCost bool   `toml:"show_cost"`
	UseTUI   bool   `toml:"use_tui"`
}

type ToolsConfig struct {
	EnableBuiltins    bool  `toml:"enable_builtins"`
	DefaultTimeoutSec int64 `toml:"default_timeout_secs"`
	MaxOutputBytes    int64 `toml:"max_output_bytes"`
}

// Defaults returns the built-in configuration layer applied before any
// file or environment overlay.
func Defaults() Config {
	return Config{
		LLM: LLMConfig{
			Provider:             "anthropic",
			Model:                "claude-sonnet-4-20250514",
			APIKeyEnv:            "ANTHROPIC_API_KEY",
			MaxTokens:            4096,
			Temperature:          0.7,
			ContextWindow:        200_000,
			InputCostPerMillion:  3.0,
			OutputCostPerMillion: 15.0,
			UseStreaming:         true,
		},
		Safety: SafetyConfig{
			ApprovalMode:  ApprovalSafe,
			MaxIterations: 50,
		},
		Memory: MemoryConfig{
			WindowSize:           40,
			CompressionThreshold: 0.75,
			EnablePersistence:    true,
		},
		UI: UIConfig{
			Theme:    "dark",
			ShowCost: true,
			UseTUI:   true,
		},
		Tools: ToolsConfig{
			EnableBuiltins:    true,
			DefaultTimeoutSec: 30,
			MaxOutputBytes:    1 << 20,
		},
	}
}
