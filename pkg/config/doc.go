// Package config provides configuration management for chronicle.
//
// This package handles loading, validating, and hot-reloading configuration
// from YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("chronicle.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("chronicle.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CHRONICLE_SECTION_FIELD.
// For example:
//
//   - CHRONICLE_HISTORY_REMOVAL_TIME_STRATEGY overrides history.removal_time_strategy
//   - CHRONICLE_CLEANUP_BATCH_SIZE overrides cleanup.batch_size
//   - CHRONICLE_STORAGE_DSN overrides storage.dsn
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// An unrecognized removal time strategy or history level fails validation.
// It is a configuration error reported at startup, never at runtime.
//
// # Hot Reload
//
// A Watcher reloads the file when it changes and replaces the process-wide
// configuration returned by GetConfig. Invalid edits are logged and leave
// the current configuration in place:
//
//	w, err := config.NewWatcher(path, 0, func(old, updated *config.Config) {
//	    // apply updated.Cleanup
//	})
//	go w.Watch(ctx)
//	defer w.Stop()
//
// # Example Configuration
//
//	history:
//	  level: full
//	  removal_time_strategy: end
//	  batch_operation_ttl:
//	    default: P5D
//	    per_type:
//	      set-removal-time: P1D
//	  task_metrics_ttl: P180D
//
//	cleanup:
//	  schedule: "*/5 * * * *"
//	  batch_size: 500
//	  degree_of_parallelism: 4
//	  batch_window:
//	    start: "22:00"
//	    end: "04:00"
//
//	storage:
//	  driver: sqlite
//	  dsn: data/history.db
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
//	    listen_address: ":9090"
//	  tracing:
//	    enabled: true
//	    endpoint: otel-collector:4317
//	    sample_ratio: 0.1
//	  health:
//	    check_timeout: 2s
package config
