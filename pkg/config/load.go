package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "CHRONICLE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It decodes the file over the defaults, validates the result and returns
// any errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CHRONICLE_SECTION_FIELD (e.g., CHRONICLE_CLEANUP_BATCH_SIZE)
// and take precedence over the file.
//
// The loading sequence is:
// 1. Apply default values
// 2. Decode YAML from file
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// An empty path loads the defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Malformed numbers, booleans and durations are reported as
// validation errors.
func applyEnvOverrides(cfg *Config) error {
	var errs []FieldError

	str := func(name string, dst *string) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}
	integer := func(name string, dst *int) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid integer %q", val)})
				return
			}
			*dst = i
		}
	}
	boolean := func(name string, dst *bool) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid boolean %q", val)})
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *time.Duration) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid duration %q", val)})
				return
			}
			*dst = d
		}
	}

	float := func(name string, dst *float64) {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				errs = append(errs, FieldError{Field: EnvPrefix + name, Message: fmt.Sprintf("invalid number %q", val)})
				return
			}
			*dst = f
		}
	}

	// History overrides
	str("HISTORY_LEVEL", &cfg.History.Level)
	str("HISTORY_REMOVAL_TIME_STRATEGY", &cfg.History.RemovalTimeStrategy)
	str("HISTORY_BATCH_OPERATION_TTL_DEFAULT", &cfg.History.BatchOperationTTL.Default)
	str("HISTORY_TASK_METRICS_TTL", &cfg.History.TaskMetricsTTL)
	boolean("HISTORY_ENABLE_HISTORIC_INSTANCE_PERMISSIONS", &cfg.History.EnableHistoricInstancePermissions)

	// Cleanup overrides
	boolean("CLEANUP_ENABLED", &cfg.Cleanup.Enabled)
	str("CLEANUP_SCHEDULE", &cfg.Cleanup.Schedule)
	integer("CLEANUP_BATCH_SIZE", &cfg.Cleanup.BatchSize)
	integer("CLEANUP_BATCH_SIZE_THRESHOLD", &cfg.Cleanup.BatchSizeThreshold)
	integer("CLEANUP_DEGREE_OF_PARALLELISM", &cfg.Cleanup.DegreeOfParallelism)
	integer("CLEANUP_MINUTE_FROM", &cfg.Cleanup.MinuteFrom)
	integer("CLEANUP_MINUTE_TO", &cfg.Cleanup.MinuteTo)
	str("CLEANUP_BATCH_WINDOW_START", &cfg.Cleanup.BatchWindow.Start)
	str("CLEANUP_BATCH_WINDOW_END", &cfg.Cleanup.BatchWindow.End)

	// Storage overrides
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STORAGE_DSN", &cfg.Storage.DSN)
	integer("STORAGE_MAX_OPEN_CONNS", &cfg.Storage.MaxOpenConns)
	duration("STORAGE_BUSY_TIMEOUT", &cfg.Storage.BusyTimeout)

	// Telemetry overrides
	str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	str("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	boolean("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	boolean("TELEMETRY_HEALTH_ENABLED", &cfg.Telemetry.Health.Enabled)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
