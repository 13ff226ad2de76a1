package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/me/goramble/pkg/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Defaults.Redirect != "{log_file}" {
		t.Errorf("Redirect = %q, want {log_file}", cfg.Defaults.Redirect)
	}
	if cfg.Defaults.OutputCapture != model.OutputDefault {
		t.Errorf("OutputCapture = %q, want DEFAULT", cfg.Defaults.OutputCapture)
	}
	if cfg.Defaults.ChainOrder != model.ChainAfter {
		t.Errorf("ChainOrder = %q, want after", cfg.Defaults.ChainOrder)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goramble.yaml")
	content := `
log_level: debug
workers: 2
defaults:
  redirect: "{experiment_run_dir}/out.log"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Workers != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Defaults.Redirect != "{experiment_run_dir}/out.log" {
		t.Errorf("Redirect = %q", cfg.Defaults.Redirect)
	}
	// Keys not present in the file keep their defaults.
	if cfg.Defaults.ChainCommand != "{execute_experiment}" {
		t.Errorf("ChainCommand = %q", cfg.Defaults.ChainCommand)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GORAMBLE_LOG_FORMAT": "json",
		"GORAMBLE_WORKERS":    "8",
		"GORAMBLE_DB":         ":memory:",
	}
	cfg := DefaultConfig()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.LogFormat != "json" || cfg.Workers != 8 || cfg.DBPath != ":memory:" {
		t.Errorf("cfg = %+v", cfg)
	}

	bad := DefaultConfig()
	err = bad.applyEnv(func(k string) (string, bool) {
		if k == "GORAMBLE_WORKERS" {
			return "many", true
		}
		return "", false
	})
	if err == nil {
		t.Error("expected error for non-numeric GORAMBLE_WORKERS")
	}
}

func TestValidate_RejectsUnknownEnums(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.ChainOrder = "during"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for chain_order during")
	}
	cfg = DefaultConfig()
	cfg.Defaults.OutputCapture = "SOMETIMES"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown output capture")
	}
}
