package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Core.StepBudget != 1_000_000 {
		t.Errorf("Expected StepBudget=1000000, got %d", cfg.Core.StepBudget)
	}
	if cfg.Core.PhysicalMemSize != 32*1024*1024 {
		t.Errorf("Expected PhysicalMemSize=32MiB, got %d", cfg.Core.PhysicalMemSize)
	}
	if cfg.Core.DefaultEntryPoint != "0x80001000" {
		t.Errorf("Expected DefaultEntryPoint=0x80001000, got %s", cfg.Core.DefaultEntryPoint)
	}

	if cfg.Allocator.InitialRegionBytes != 64*1024 {
		t.Errorf("Expected InitialRegionBytes=65536, got %d", cfg.Allocator.InitialRegionBytes)
	}

	if !cfg.Monitor.Enabled {
		t.Error("Expected Monitor.Enabled=true")
	}
	if cfg.Monitor.HistorySize != 1000 {
		t.Errorf("Expected Monitor.HistorySize=1000, got %d", cfg.Monitor.HistorySize)
	}

	if cfg.API.Enabled {
		t.Error("Expected API.Enabled=false")
	}
	if cfg.API.ListenAddr != "127.0.0.1:8089" {
		t.Errorf("Expected API.ListenAddr=127.0.0.1:8089, got %s", cfg.API.ListenAddr)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}

	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}

	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "ee2" && path != "config.toml" {
			t.Errorf("Expected path in ee2 directory or fallback, got %s", path)
		}
	}
}

func TestGetLogPath(t *testing.T) {
	path := GetLogPath()

	if path == "" {
		t.Error("GetLogPath returned empty string")
	}

	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "logs" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}

	case "darwin", "linux":
		if filepath.Base(path) != "logs" {
			t.Errorf("Expected path to end with logs, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	cfg := DefaultConfig()
	cfg.Core.StepBudget = 5_000_000
	cfg.Core.EnableTrace = true
	cfg.Monitor.HistorySize = 500
	cfg.API.Enabled = true

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Core.StepBudget != 5_000_000 {
		t.Errorf("Expected StepBudget=5000000, got %d", loaded.Core.StepBudget)
	}
	if !loaded.Core.EnableTrace {
		t.Error("Expected EnableTrace=true")
	}
	if loaded.Monitor.HistorySize != 500 {
		t.Errorf("Expected Monitor.HistorySize=500, got %d", loaded.Monitor.HistorySize)
	}
	if !loaded.API.Enabled {
		t.Error("Expected API.Enabled=true")
	}
}

func TestLoadNonExistent(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}

	if cfg.Core.StepBudget != 1_000_000 {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[core]
step_budget = "not a number"  # Invalid: should be uint64
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "subdir1", "subdir2", "config.toml")

	cfg := DefaultConfig()
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Parent directories were not created")
	}
}
