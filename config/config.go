// Package config loads and saves the TOML-backed settings a binary built
// around ee2.Core needs: step budgets, code-cache sizing, allocator region
// sizing, and the toggles for the monitor/API front ends. Adapted from the
// teacher's config/config.go, replacing its ARM debugger/display sections
// with the Emotion Engine core's settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds every setting a binary embedding ee2.Core reads at startup.
type Config struct {
	// Core settings: step budget, guest physical memory size, code-cache
	// capacity — spec.md §4.6/§5. CacheCapacity is passed to ee.NewCore,
	// which does not use it: the code cache's bound is fixed.
	Core struct {
		StepBudget        uint64 `toml:"step_budget"`
		PhysicalMemSize   uint32 `toml:"physical_mem_size"`
		CacheCapacity     int    `toml:"cache_capacity"`
		DefaultEntryPoint string `toml:"default_entry_point"`
		EnableTrace       bool   `toml:"enable_trace"`
	} `toml:"core"`

	// Allocator settings for the JIT's executable-memory regions, per
	// spec.md §4.7. InitialRegionBytes is loaded and saved but not read by
	// the allocator: execmem sizes its first region from the first request
	// (rounded up to the host page size) and doubles from there.
	Allocator struct {
		InitialRegionBytes uint32 `toml:"initial_region_bytes"`
	} `toml:"allocator"`

	// Monitor settings for the tcell/tview TUI stepper (spec.md §4.9).
	Monitor struct {
		Enabled       bool `toml:"enabled"`
		HistorySize   int  `toml:"history_size"`
		ShowRegisters bool `toml:"show_registers"`
	} `toml:"monitor"`

	// API settings for the HTTP remote-control surface (spec.md §6).
	API struct {
		Enabled    bool   `toml:"enabled"`
		ListenAddr string `toml:"listen_addr"`
	} `toml:"api"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Core.StepBudget = 1_000_000
	cfg.Core.PhysicalMemSize = 32 * 1024 * 1024
	cfg.Core.CacheCapacity = 4096
	cfg.Core.DefaultEntryPoint = "0x80001000"
	cfg.Core.EnableTrace = false

	cfg.Allocator.InitialRegionBytes = 64 * 1024

	cfg.Monitor.Enabled = true
	cfg.Monitor.HistorySize = 1000
	cfg.Monitor.ShowRegisters = true

	cfg.API.Enabled = false
	cfg.API.ListenAddr = "127.0.0.1:8089"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "ee2")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "ee2")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "ee2", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "ee2", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file, falling back to
// defaults if it does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
