// Package telemetry groups the observability packages of chronicle.
//
//   - logging: slog setup with root instance, batch and shard context fields
//   - metrics: Prometheus counters and histograms for backfill and cleanup
//   - tracing: OpenTelemetry spans around sweeps and backfill passes
//   - health: liveness and readiness probes for the daemon
//
// Each subpackage is configured from the telemetry section of the
// configuration file and wired together by the chronicle command.
package telemetry
