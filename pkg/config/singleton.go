package config

import (
	"fmt"
	"sync/atomic"
)

// current holds the process-wide configuration.
var current atomic.Pointer[Config]

// Initialize loads configuration from path with environment variable
// overrides and stores it as the process-wide configuration.
func Initialize(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	current.Store(cfg)
	return cfg, nil
}

// GetConfig returns the process-wide configuration, nil before Initialize.
// It is safe for concurrent use.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the process-wide configuration. Intended for tests.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig reloads the configuration from path. The new configuration
// replaces the current one only if loading and validation succeed; on error
// the current configuration stays in place. Returns the previous and the
// new configuration.
func ReloadConfig(path string) (old, updated *Config, err error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	return current.Swap(cfg), cfg, nil
}

// MustGetConfig returns the process-wide configuration and panics if it has
// not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
