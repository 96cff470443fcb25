package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config populated with all default values. This supports zero-config use
// where everything comes from environment variables.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables.
// CLI flags are applied by the command layer on top of the result.
func Resolve(cliConfigPath string) (*Config, error) {
	env := ReadEnvOverrides()

	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cliConfigPath != "" {
		cfgPath = cliConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, env)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks bounds that would otherwise fail far from their cause.
func Validate(cfg *Config) error {
	if cfg.Limits.PageSize < 1 || cfg.Limits.PageSize > cfg.Limits.MaxResults {
		return fmt.Errorf("limits.page_size %d out of range [1, %d]",
			cfg.Limits.PageSize, cfg.Limits.MaxResults)
	}

	if cfg.Limits.MaxTreeDepth < 1 {
		return fmt.Errorf("limits.max_tree_depth must be at least 1, got %d", cfg.Limits.MaxTreeDepth)
	}

	if cfg.Limits.TreeFanout < 1 {
		return fmt.Errorf("limits.tree_fanout must be at least 1, got %d", cfg.Limits.TreeFanout)
	}

	if cfg.Network.TimeoutSeconds < 1 {
		return fmt.Errorf("network.timeout_seconds must be at least 1, got %d", cfg.Network.TimeoutSeconds)
	}

	return nil
}
