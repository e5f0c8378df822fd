package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreComplete(t *testing.T) {
	cfg := Defaults()
	if cfg.LLM.Provider == "" || cfg.LLM.Model == "" {
		t.Fatalf("expected non-empty llm defaults, got %+v", cfg.LLM)
	}
	if cfg.Safety.ApprovalMode != ApprovalSafe {
		t.Fatalf("expected default approval mode safe, got %v", cfg.Safety.ApprovalMode)
	}
	if cfg.Safety.MaxIterations <= 0 {
		t.Fatalf("expected positive max_iterations default")
	}
}

func TestLoadAppliesFileLayerOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "[llm]\nmodel = \"custom-model\"\n\n[safety]\napproval_mode = \"cautious\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Model != "custom-model" {
		t.Fatalf("expected custom model, got %q", cfg.LLM.Model)
	}
	if cfg.Safety.ApprovalMode != ApprovalCautious {
		t.Fatalf("expected cautious mode, got %v", cfg.Safety.ApprovalMode)
	}
	if cfg.LLM.Provider != Defaults().LLM.Provider {
		t.Fatalf("expected unset fields to retain defaults")
	}
}

func TestLoadMissingFilesIsNotAnError(t *testing.T) {
	cfg, err := Load("/nonexistent/user.toml", "/nonexistent/workspace.toml")
	if err != nil {
		t.Fatalf("expected no error for missing files, got %v", err)
	}
	if cfg.LLM.Model != Defaults().LLM.Model {
		t.Fatalf("expected defaults when no files present")
	}
}

func TestWorkspaceLayerOverridesUserLayer(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user.toml")
	workspacePath := filepath.Join(dir, "workspace.toml")
	os.WriteFile(userPath, []byte("[llm]\nmodel = \"user-model\"\n"), 0o600)
	os.WriteFile(workspacePath, []byte("[llm]\nmodel = \"workspace-model\"\n"), 0o600)

	cfg, err := Load(userPath, workspacePath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Model != "workspace-model" {
		t.Fatalf("expected workspace layer to win, got %q", cfg.LLM.Model)
	}
}

func TestEnvOverlayNestedDoubleUnderscore(t *testing.T) {
	t.Setenv("RUSTANT_LLM__MODEL", "env-model")
	t.Setenv("RUSTANT_SAFETY__MAX_ITERATIONS", "7")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Model != "env-model" {
		t.Fatalf("expected env overlay to set model, got %q", cfg.LLM.Model)
	}
	if cfg.Safety.MaxIterations != 7 {
		t.Fatalf("expected env overlay to set max_iterations, got %d", cfg.Safety.MaxIterations)
	}
}

func TestProgrammaticOverrideIsLastLayer(t *testing.T) {
	t.Setenv("RUSTANT_LLM__MODEL", "env-model")

	cfg, err := Load("", "", func(c *Config) { c.LLM.Model = "override-model" })
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Model != "override-model" {
		t.Fatalf("expected programmatic override to win, got %q", cfg.LLM.Model)
	}
}

func TestUnrecognizedEnvVarsAreIgnored(t *testing.T) {
	t.Setenv("RUSTANT_UNKNOWN__FIELD", "x")
	if _, err := Load("", ""); err != nil {
		t.Fatalf("expected unrecognized env vars to be ignored, got %v", err)
	}
}
