package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
)

// Option applies a programmatic override, the final layer in §6's
// ordering.
type Option func(*Config)

// Load builds a Config from, in order: built-in defaults, the user
// config file (if it exists), the workspace config file (if it
// exists), RUSTANT_-prefixed environment variables, then opts. Missing
// files are not an error; a malformed present file is.
func Load(userConfigPath, workspaceConfigPath string, opts ...Option) (*Config, error) {
	cfg := Defaults()

	for _, path := range []string{userConfigPath, workspaceConfigPath} {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := mergeFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg, os.Environ())

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// UserConfigDir returns the platform config directory's rustant/
// subdirectory, per §6's "user config file at platform-appropriate
// config dir" layer.
func UserConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rustant"), nil
}

// WorkspaceConfigPath returns root's .rustant/config.toml path.
func WorkspaceConfigPath(root string) string {
	return filepath.Join(root, ".rustant", "config.toml")
}

// envPrefix is the RUSTANT_ environment overlay's prefix; nesting is
// expressed with a double underscore (RUSTANT_LLM__MODEL -> llm.model).
const envPrefix = "RUSTANT_"

// envField describes one Config field reachable from an environment
// variable's dotted path (lowercased, double-underscore-split).
type envField struct {
	path string
	set  func(cfg *Config, value string) error
}

var envFields = []envField{
	{"llm.provider", func(c *Config, v string) error { c.LLM.Provider = v; return nil }},
	{"llm.model", func(c *Config, v string) error { c.LLM.Model = v; return nil }},
	{"llm.api_key_env", func(c *Config, v string) error { c.LLM.APIKeyEnv = v; return nil }},
	{"llm.base_url", func(c *Config, v string) error { c.LLM.BaseURL = v; return nil }},
	{"llm.max_tokens", intSetter(func(c *Config, n int) { c.LLM.MaxTokens = n })},
	{"llm.temperature", floatSetter(func(c *Config, f float64) { c.LLM.Temperature = f })},
	{"llm.context_window", intSetter(func(c *Config, n int) { c.LLM.ContextWindow = n })},
	{"llm.input_cost_per_million", floatSetter(func(c *Config, f float64) { c.LLM.InputCostPerMillion = f })},
	{"llm.output_cost_per_million", floatSetter(func(c *Config, f float64) { c.LLM.OutputCostPerMillion = f })},
	{"llm.use_streaming", boolSetter(func(c *Config, b bool) { c.LLM.UseStreaming = b })},

	{"safety.approval_mode", func(c *Config, v string) error { c.Safety.ApprovalMode = ApprovalMode(v); return nil }},
	{"safety.allowed_paths", listSetter(func(c *Config, l []string) { c.Safety.AllowedPaths = l })},
	{"safety.denied_paths", listSetter(func(c *Config, l []string) { c.Safety.DeniedPaths = l })},
	{"safety.allowed_commands", listSetter(func(c *Config, l []string) { c.Safety.AllowedCommands = l })},
	{"safety.ask_commands", listSetter(func(c *Config, l []string) { c.Safety.AskCommands = l })},
	{"safety.denied_commands", listSetter(func(c *Config, l []string) { c.Safety.DeniedCommands = l })},
	{"safety.allowed_hosts", listSetter(func(c *Config, l []string) { c.Safety.AllowedHosts = l })},
	{"safety.max_iterations", intSetter(func(c *Config, n int) { c.Safety.MaxIterations = n })},

	{"memory.window_size", intSetter(func(c *Config, n int) { c.Memory.WindowSize = n })},
	{"memory.compression_threshold", floatSetter(func(c *Config, f float64) { c.Memory.CompressionThreshold = f })},
	{"memory.persist_path", func(c *Config, v string) error { c.Memory.PersistPath = v; return nil }},
	{"memory.enable_persistence", boolSetter(func(c *Config, b bool) { c.Memory.EnablePersistence = b })},

	{"ui.theme", func(c *Config, v string) error { c.UI.Theme = v; return nil }},
	{"ui.vim_mode", boolSetter(func(c *Config, b bool) { c.UI.VimMode = b })},
	{"ui.show_cost", boolSetter(func(c *Config, b bool) { c.UI.ShowCost = b })},
	{"ui.use_tui", boolSetter(func(c *Config, b bool) { c.UI.UseTUI = b })},

	{"tools.enable_builtins", boolSetter(func(c *Config, b bool) { c.Tools.EnableBuiltins = b })},
	{"tools.default_timeout_secs", int64Setter(func(c *Config, n int64) { c.Tools.DefaultTimeoutSec = n })},
	{"tools.max_output_bytes", int64Setter(func(c *Config, n int64) { c.Tools.MaxOutputBytes = n })},
}

func intSetter(set func(*Config, int)) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

func int64Setter(set func(*Config, int64)) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

func floatSetter(set func(*Config, float64)) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		set(c, f)
		return nil
	}
}

func boolSetter(set func(*Config, bool)) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		set(c, b)
		return nil
	}
}

func listSetter(set func(*Config, []string)) func(*Config, string) error {
	return func(c *Config, v string) error {
		var out []string
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
		set(c, out)
		return nil
	}
}

// applyEnv overlays RUSTANT_-prefixed environment variables, ignoring
// unrecognized names and malformed values (logged by the caller via the
// returned skipped list, if it cares).
func applyEnv(cfg *Config, environ []string) {
	byPath := make(map[string]envField, len(envFields))
	for _, f := range envFields {
		byPath[f.path] = f
	}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		rest := strings.TrimPrefix(name, envPrefix)
		path := strings.ToLower(strings.ReplaceAll(rest, "__", "."))
		field, ok := byPath[path]
		if !ok {
			continue
		}
		_ = field.set(cfg, value)
	}
}
