package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileConfigPresetOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	content := "pool:\n  workers: 3\nscenario:\n  preset: demo\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := loadFileConfig(path, "fifo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scenario.Preset != "fifo" {
		t.Errorf("expected preset 'fifo', got '%s'", cfg.Scenario.Preset)
	}
	if cfg.Pool.Workers != 3 {
		t.Errorf("expected workers 3 from file, got %d", cfg.Pool.Workers)
	}
}

func TestLoadFileConfigUnknownPreset(t *testing.T) {
	if _, err := loadFileConfig("", "nope"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestLoadFileConfigEnv(t *testing.T) {
	t.Setenv("BSEMPOOL_WORKERS", "5")

	cfg, err := loadFileConfig("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pool.Workers != 5 {
		t.Errorf("expected workers 5 from env, got %d", cfg.Pool.Workers)
	}
}
