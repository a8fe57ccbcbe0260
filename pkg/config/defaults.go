package config

import "time"

// Default values for configuration fields.
const (
	// History defaults
	DefaultHistoryLevel        = "full"
	DefaultRemovalTimeStrategy = "end"

	DefaultHistoricInstancePermissions = false

	// Cleanup defaults
	DefaultCleanupEnabled             = true
	DefaultCleanupBatchSize           = 500
	DefaultCleanupBatchSizeThreshold  = 10
	DefaultCleanupDegreeOfParallelism = 1
	DefaultCleanupMinuteFrom          = 0
	DefaultCleanupMinuteTo            = 59

	// Storage defaults
	DefaultStorageDriver      = "sqlite"
	DefaultStorageDSN         = "data/history.db"
	DefaultStorageBusyTimeout = 5 * time.Second

	// Telemetry defaults
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultMetricsPath          = "/metrics"
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingServiceName   = "chronicle"
	DefaultTracingTimeout       = 10 * time.Second
	DefaultHealthEnabled        = true
	DefaultHealthCheckTimeout   = 2 * time.Second
)

// DefaultConfig returns a configuration with every default applied.
// LoadConfig decodes the YAML file over it, so booleans that default to
// true keep their default unless the file sets them.
func DefaultConfig() *Config {
	cfg := &Config{
		History: HistoryConfig{
			EnableHistoricInstancePermissions: DefaultHistoricInstancePermissions,
		},
		Cleanup: CleanupConfig{
			Enabled:    DefaultCleanupEnabled,
			MinuteFrom: DefaultCleanupMinuteFrom,
			MinuteTo:   DefaultCleanupMinuteTo,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{SampleRatio: DefaultTracingSampleRatio},
			Health:  HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills empty fields with their default values. Booleans, the
// minute window and the sample ratio are left alone since their zero values
// are valid settings; use DefaultConfig for a fully defaulted configuration.
func ApplyDefaults(cfg *Config) {
	// History defaults
	if cfg.History.Level == "" {
		cfg.History.Level = DefaultHistoryLevel
	}
	if cfg.History.RemovalTimeStrategy == "" {
		cfg.History.RemovalTimeStrategy = DefaultRemovalTimeStrategy
	}

	// Cleanup defaults
	if cfg.Cleanup.BatchSize == 0 {
		cfg.Cleanup.BatchSize = DefaultCleanupBatchSize
	}
	if cfg.Cleanup.BatchSizeThreshold == 0 {
		cfg.Cleanup.BatchSizeThreshold = DefaultCleanupBatchSizeThreshold
	}
	if cfg.Cleanup.DegreeOfParallelism == 0 {
		cfg.Cleanup.DegreeOfParallelism = DefaultCleanupDegreeOfParallelism
	}

	// Storage defaults
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}
	if cfg.Storage.DSN == "" && cfg.Storage.Driver != "memory" {
		cfg.Storage.DSN = DefaultStorageDSN
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
