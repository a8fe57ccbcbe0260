package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history/cleanup"
	"mercator-hq/chronicle/pkg/history/propagation"
)

// Namespace prefixes every chronicle metric.
const Namespace = "chronicle"

var (
	_ propagation.Metrics = (*Collector)(nil)
	_ cleanup.Metrics     = (*Collector)(nil)
)

// Collector owns the Prometheus registry and records retention metrics.
// It is passed to the propagator and the sweeper as their Metrics.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	backfill *BackfillMetrics
	cleanup  *CleanupMetrics
}

// NewCollector creates a collector registering its metrics with registry.
// A nil registry creates a private one that also exposes the Go runtime and
// process collectors.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	propagator := propagation.New(propagation.Options{Metrics: collector})
//	sweeper := cleanup.NewSweeper(st, cleanup.Options{Metrics: collector})
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		enabled:  cfg.Enabled,
		registry: registry,
		backfill: NewBackfillMetrics(registry),
		cleanup:  NewCleanupMetrics(registry),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordBackfill counts rows whose removal time was backfilled.
func (c *Collector) RecordBackfill(kind string, rows int64) {
	if !c.enabled || rows <= 0 {
		return
	}
	c.backfill.rowsTotal.WithLabelValues(kind).Add(float64(rows))
}

// RecordConflict counts an optimistic locking conflict.
func (c *Collector) RecordConflict() {
	if !c.enabled {
		return
	}
	c.backfill.conflictsTotal.Inc()
}

// RecordCleanup counts rows removed by cleanup.
func (c *Collector) RecordCleanup(kind string, rows int64) {
	if !c.enabled || rows <= 0 {
		return
	}
	c.cleanup.rowsTotal.WithLabelValues(kind).Add(float64(rows))
}

// RecordRun records the outcome ("success", "error", "canceled") and
// duration of a sweep.
func (c *Collector) RecordRun(result string, duration time.Duration) {
	if !c.enabled {
		return
	}
	c.cleanup.runsTotal.WithLabelValues(result).Inc()
	c.cleanup.duration.WithLabelValues(result).Observe(duration.Seconds())
}
