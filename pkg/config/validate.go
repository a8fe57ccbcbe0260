package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/chronicle/pkg/history/cleanup"
	"mercator-hq/chronicle/pkg/history/store"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "cleanup.batch_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together. An unknown removal time strategy or history level is
// reported here, at load time, never at runtime.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateCleanup(&cfg.Cleanup)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	if _, err := cfg.ParseLevel(); err != nil {
		errs = append(errs, FieldError{Field: "history.level", Message: err.Error()})
	}
	if _, err := cfg.Strategy(); err != nil {
		errs = append(errs, FieldError{Field: "history.removal_time_strategy", Message: err.Error()})
	}
	if _, err := cfg.BatchTimeToLive(); err != nil {
		errs = append(errs, FieldError{Field: "history.batch_operation_ttl", Message: err.Error()})
	}
	if _, err := cfg.TaskMetricsTimeToLive(); err != nil {
		errs = append(errs, FieldError{Field: "history.task_metrics_ttl", Message: err.Error()})
	}

	return errs
}

func validateCleanup(cfg *CleanupConfig) []FieldError {
	var errs []FieldError

	if cfg.BatchSize < 1 || cfg.BatchSize > cleanup.MaxBatchSize {
		errs = append(errs, FieldError{
			Field:   "cleanup.batch_size",
			Message: fmt.Sprintf("batch size must be between 1 and %d", cleanup.MaxBatchSize),
		})
	}
	if cfg.BatchSizeThreshold < 0 {
		errs = append(errs, FieldError{
			Field:   "cleanup.batch_size_threshold",
			Message: "batch size threshold must not be negative",
		})
	}
	if cfg.DegreeOfParallelism < 1 || cfg.DegreeOfParallelism > cleanup.MaxDegreeOfParallelism {
		errs = append(errs, FieldError{
			Field:   "cleanup.degree_of_parallelism",
			Message: fmt.Sprintf("degree of parallelism must be between 1 and %d", cleanup.MaxDegreeOfParallelism),
		})
	}
	if cfg.MinuteFrom < 0 || cfg.MinuteTo > 59 || cfg.MinuteFrom > cfg.MinuteTo {
		errs = append(errs, FieldError{
			Field:   "cleanup.minute_from",
			Message: fmt.Sprintf("minute window [%d, %d] must satisfy 0 <= minute_from <= minute_to <= 59", cfg.MinuteFrom, cfg.MinuteTo),
		})
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "cleanup.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Schedule, err),
			})
		}
	}
	if _, err := cfg.Window(); err != nil {
		errs = append(errs, FieldError{Field: "cleanup.batch_window", Message: err.Error()})
	}

	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	validDrivers := map[string]bool{
		store.DriverSQLite:   true,
		store.DriverSQLite3:  true,
		store.DriverPostgres: true,
		store.DriverMemory:   true,
	}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, FieldError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver %q: must be 'sqlite', 'sqlite3', 'pgx' or 'memory'", cfg.Driver),
		})
	}
	if cfg.Driver != store.DriverMemory && cfg.DSN == "" {
		errs = append(errs, FieldError{
			Field:   "storage.dsn",
			Message: "dsn is required for SQL drivers",
		})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.max_open_conns",
			Message: "max open connections must not be negative",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.busy_timeout",
			Message: "busy timeout must not be negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" || !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with '/' when metrics are enabled",
			})
		}
		if _, _, err := net.SplitHostPort(cfg.Metrics.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: fmt.Sprintf("invalid listen address %q: %v", cfg.Metrics.ListenAddress, err),
			})
		}
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %v", cfg.Tracing.SampleRatio),
			})
		}
	}

	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must not be negative",
		})
	}

	return errs
}
