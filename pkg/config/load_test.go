package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/removaltime"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chronicle.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
history:
  level: audit
  removal_time_strategy: start
  batch_operation_ttl:
    default: P5D
    per_type:
      set-removal-time: P1D
  task_metrics_ttl: P180D
cleanup:
  enabled: false
  schedule: "*/5 * * * *"
  batch_size: 100
  degree_of_parallelism: 4
  batch_window:
    start: "22:00"
    end: "04:00"
storage:
  driver: pgx
  dsn: postgres://chronicle@localhost/history
  max_open_conns: 20
telemetry:
  logging:
    level: debug
    format: text
  metrics:
    listen_address: ":9100"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.History.Level != "audit" {
		t.Errorf("expected level %q, got %q", "audit", cfg.History.Level)
	}
	if s, _ := cfg.History.Strategy(); s != removaltime.StrategyStart {
		t.Errorf("expected strategy start, got %s", s)
	}
	if cfg.Cleanup.Enabled {
		t.Error("expected cleanup to be disabled")
	}
	if cfg.Cleanup.BatchSize != 100 {
		t.Errorf("expected batch size 100, got %d", cfg.Cleanup.BatchSize)
	}
	if cfg.Cleanup.BatchSizeThreshold != DefaultCleanupBatchSizeThreshold {
		t.Errorf("expected default threshold, got %d", cfg.Cleanup.BatchSizeThreshold)
	}
	if cfg.Cleanup.MinuteTo != 59 {
		t.Errorf("expected default minute_to 59, got %d", cfg.Cleanup.MinuteTo)
	}
	if cfg.Storage.MaxOpenConns != 20 {
		t.Errorf("expected 20 max open conns, got %d", cfg.Storage.MaxOpenConns)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to stay enabled by default")
	}

	ttl, err := cfg.History.BatchTimeToLive()
	if err != nil {
		t.Fatalf("BatchTimeToLive failed: %v", err)
	}
	if got := ttl.For("set-removal-time"); got == nil || *got != 1 {
		t.Errorf("expected per-type ttl of 1 day, got %v", got)
	}
	if got := ttl.For("migration"); got == nil || *got != 5 {
		t.Errorf("expected default ttl of 5 days, got %v", got)
	}

	days, err := cfg.History.TaskMetricsTimeToLive()
	if err != nil || days == nil || *days != 180 {
		t.Errorf("expected task metrics ttl of 180 days, got %v (%v)", days, err)
	}

	sc, err := cfg.Cleanup.SchedulerConfig()
	if err != nil {
		t.Fatalf("SchedulerConfig failed: %v", err)
	}
	if sc.DegreeOfParallelism != 4 || sc.Schedule != "*/5 * * * *" {
		t.Errorf("unexpected scheduler config: %+v", sc)
	}
	if sc.Window.String() != "22:00-04:00" {
		t.Errorf("expected window 22:00-04:00, got %s", sc.Window.String())
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if level, _ := cfg.History.ParseLevel(); level != history.LevelFull {
		t.Errorf("expected full history level, got %s", level)
	}
	if cfg.History.RemovalTimeStrategy != DefaultRemovalTimeStrategy {
		t.Errorf("expected strategy %q, got %q", DefaultRemovalTimeStrategy, cfg.History.RemovalTimeStrategy)
	}
	if !cfg.Cleanup.Enabled {
		t.Error("expected cleanup enabled by default")
	}
	if cfg.History.EnableHistoricInstancePermissions {
		t.Error("expected historic instance permissions disabled by default")
	}
	if cfg.Cleanup.BatchSize != DefaultCleanupBatchSize {
		t.Errorf("expected batch size %d, got %d", DefaultCleanupBatchSize, cfg.Cleanup.BatchSize)
	}
	if cfg.Storage.Driver != DefaultStorageDriver || cfg.Storage.DSN != DefaultStorageDSN {
		t.Errorf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Storage.BusyTimeout != 5*time.Second {
		t.Errorf("expected busy timeout 5s, got %v", cfg.Storage.BusyTimeout)
	}
	if cfg.Telemetry.Metrics.Path != "/metrics" {
		t.Errorf("expected metrics path /metrics, got %q", cfg.Telemetry.Metrics.Path)
	}
	if cfg.Telemetry.Tracing.Enabled || cfg.Telemetry.Tracing.SampleRatio != 1.0 {
		t.Errorf("expected tracing disabled with full sampling, got %+v", cfg.Telemetry.Tracing)
	}
	if !cfg.Telemetry.Health.Enabled || cfg.Telemetry.Health.CheckTimeout != 2*time.Second {
		t.Errorf("unexpected health defaults: %+v", cfg.Telemetry.Health)
	}

	days, err := cfg.History.TaskMetricsTimeToLive()
	if err != nil || days != nil {
		t.Errorf("expected task meter logs kept by default, got %v (%v)", days, err)
	}
	if p := cfg.Cleanup.Params(); p.MinuteFrom != 0 || p.MinuteTo != 59 || p.BatchSize != 500 {
		t.Errorf("unexpected manual cleanup params: %+v", p)
	}
}

func TestLoadConfig_InvalidStrategyIsFatal(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "history:\n  removal_time_strategy: sometimes\n"))
	if err == nil {
		t.Fatal("expected invalid strategy to fail loading")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Errors[0].Field != "history.removal_time_strategy" {
		t.Errorf("expected strategy field error, got %s", verr.Errors[0].Field)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "cleanup: [unclosed\n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
cleanup:
  batch_size: 100
storage:
  driver: sqlite
  dsn: file.db
`)

	t.Setenv("CHRONICLE_CLEANUP_BATCH_SIZE", "250")
	t.Setenv("CHRONICLE_CLEANUP_ENABLED", "false")
	t.Setenv("CHRONICLE_STORAGE_DRIVER", "memory")
	t.Setenv("CHRONICLE_STORAGE_BUSY_TIMEOUT", "2s")
	t.Setenv("CHRONICLE_HISTORY_REMOVAL_TIME_STRATEGY", "none")
	t.Setenv("CHRONICLE_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("CHRONICLE_TELEMETRY_TRACING_ENABLED", "true")
	t.Setenv("CHRONICLE_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("CHRONICLE_HISTORY_ENABLE_HISTORIC_INSTANCE_PERMISSIONS", "true")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Cleanup.BatchSize != 250 {
		t.Errorf("expected batch size 250 from env, got %d", cfg.Cleanup.BatchSize)
	}
	if cfg.Cleanup.Enabled {
		t.Error("expected cleanup disabled from env")
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory driver from env, got %q", cfg.Storage.Driver)
	}
	if cfg.Storage.BusyTimeout != 2*time.Second {
		t.Errorf("expected busy timeout 2s from env, got %v", cfg.Storage.BusyTimeout)
	}
	if cfg.History.RemovalTimeStrategy != "none" {
		t.Errorf("expected strategy none from env, got %q", cfg.History.RemovalTimeStrategy)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected log level warn from env, got %q", cfg.Telemetry.Logging.Level)
	}
	if !cfg.Telemetry.Tracing.Enabled || cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("expected tracing enabled at 0.25 from env, got %+v", cfg.Telemetry.Tracing)
	}
	if !cfg.History.EnableHistoricInstancePermissions {
		t.Error("expected historic instance permissions enabled from env")
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("CHRONICLE_CLEANUP_DEGREE_OF_PARALLELISM", "8")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Cleanup.DegreeOfParallelism != 8 {
		t.Errorf("expected degree 8 from env, got %d", cfg.Cleanup.DegreeOfParallelism)
	}
}

func TestLoadConfigWithEnvOverrides_MalformedValue(t *testing.T) {
	t.Setenv("CHRONICLE_CLEANUP_BATCH_SIZE", "lots")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil {
		t.Fatal("expected error for malformed integer")
	}
	if !strings.Contains(err.Error(), "CHRONICLE_CLEANUP_BATCH_SIZE") {
		t.Errorf("expected error to name the variable, got %v", err)
	}
}

func TestLoadConfigWithEnvOverrides_OverrideInvalidates(t *testing.T) {
	t.Setenv("CHRONICLE_CLEANUP_BATCH_SIZE", "501")

	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Fatal("expected validation to fail after override")
	}
}
