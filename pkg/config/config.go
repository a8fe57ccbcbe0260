package config

import "time"

// Config is the root configuration structure for chronicle.
// It contains the history production settings, the cleanup scheduler, the
// storage backend and the telemetry settings.
type Config struct {
	// History controls how removal times are computed and which history is
	// produced.
	History HistoryConfig `yaml:"history"`

	// Cleanup contains configuration for the background removal of expired
	// history.
	Cleanup CleanupConfig `yaml:"cleanup"`

	// Storage selects and configures the history store.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// health probes.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// HistoryConfig contains history production settings.
type HistoryConfig struct {
	// Level is the history level of the execution engine. Job logs are
	// only written at full history.
	// Options: "none", "activity", "audit", "full"
	// Default: "full"
	Level string `yaml:"level"`

	// RemovalTimeStrategy selects when removal times are computed.
	// Options: "none" (never), "start" (when a root instance starts),
	// "end" (when a root instance ends)
	// Default: "end"
	RemovalTimeStrategy string `yaml:"removal_time_strategy"`

	// BatchOperationTTL is the history time-to-live of batches.
	BatchOperationTTL BatchTTLConfig `yaml:"batch_operation_ttl"`

	// TaskMetricsTTL is the time-to-live of task meter logs, in days or as
	// a PnD period. Empty keeps them forever.
	// Default: ""
	TaskMetricsTTL string `yaml:"task_metrics_ttl"`

	// EnableHistoricInstancePermissions lets authorizations on historic
	// process instances and tasks inherit the root and removal time of
	// their resource, so they are cleaned up with it. When off,
	// authorizations carry neither.
	// Default: false
	EnableHistoricInstancePermissions bool `yaml:"enable_historic_instance_permissions"`
}

// BatchTTLConfig contains the history time-to-live of batches, in days or as
// a PnD period.
type BatchTTLConfig struct {
	// Default applies to batch types without a specific entry.
	// Empty keeps batch history forever.
	// Default: ""
	Default string `yaml:"default"`

	// PerType overrides the default per batch type
	// (e.g., "set-removal-time": "P1D").
	PerType map[string]string `yaml:"per_type"`
}

// CleanupConfig contains configuration for history cleanup.
type CleanupConfig struct {
	// Enabled controls whether the run command schedules cleanup.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is a standard cron expression. Empty runs continuous
	// workers that back off while there is little to remove.
	// Default: ""
	Schedule string `yaml:"schedule"`

	// BatchSize is the maximum number of candidates removed per kind and
	// sweep (1-500).
	// Default: 500
	BatchSize int `yaml:"batch_size"`

	// BatchSizeThreshold is the number of removed rows below which a
	// continuous worker backs off.
	// Default: 10
	BatchSizeThreshold int `yaml:"batch_size_threshold"`

	// DegreeOfParallelism is the number of concurrent workers, each owning
	// a disjoint minute-of-hour shard (1-8).
	// Default: 1
	DegreeOfParallelism int `yaml:"degree_of_parallelism"`

	// MinuteFrom and MinuteTo bound manual cleanup runs to a minute-of-hour
	// window of the removal time.
	// Default: 0 and 59
	MinuteFrom int `yaml:"minute_from"`
	MinuteTo   int `yaml:"minute_to"`

	// BatchWindow restricts scheduled cleanup to a daily time of day.
	BatchWindow BatchWindowConfig `yaml:"batch_window"`
}

// BatchWindowConfig is a daily "HH:MM" window. Both empty means always.
// An end before the start wraps midnight.
type BatchWindowConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// StorageConfig selects the history store.
type StorageConfig struct {
	// Driver is the database driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo), "pgx" (PostgreSQL),
	// "memory"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// DSN is the data source name: a file path for SQLite, a connection
	// URL for PostgreSQL. Ignored by the memory store.
	// Default: "data/history.db"
	DSN string `yaml:"dsn"`

	// MaxOpenConns limits open connections. 0 selects 1 for SQLite and 10
	// for PostgreSQL.
	// Default: 0
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry span export configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains the liveness and readiness probe configuration.
	// Probes are served on the metrics listener.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the Prometheus endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address of the metrics HTTP server.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of sweeps and backfills traced (0.0-1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as service.name.
	// Default: "chronicle"
	ServiceName string `yaml:"service_name"`

	// Timeout bounds each span export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health probe configuration.
type HealthConfig struct {
	// Enabled mounts /health, /ready and /version next to the metrics
	// endpoint.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
