// Package metrics exposes retention metrics to Prometheus.
//
// A Collector records how many rows were backfilled and removed, how sweeps
// ended and how often optimistic locking rejected a stale update. It
// implements both propagation.Metrics and cleanup.Metrics, and serves its
// private registry over HTTP:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	go collector.Serve(ctx, cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
package metrics
