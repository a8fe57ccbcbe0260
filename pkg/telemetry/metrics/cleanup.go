package metrics

import "github.com/prometheus/client_golang/prometheus"

// CleanupMetrics tracks history cleanup.
//
// Metrics:
//   - chronicle_cleanup_rows_total: Removed candidates by kind
//   - chronicle_cleanup_runs_total: Sweeps by result
//   - chronicle_cleanup_duration_seconds: Sweep duration histogram by result
type CleanupMetrics struct {
	rowsTotal *prometheus.CounterVec
	runsTotal *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewCleanupMetrics creates and registers cleanup metrics with the provided registry.
func NewCleanupMetrics(registry *prometheus.Registry) *CleanupMetrics {
	cm := &CleanupMetrics{
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cleanup_rows_total",
				Help:      "Total number of expired historic rows removed",
			},
			[]string{"kind"},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cleanup_runs_total",
				Help:      "Total number of cleanup sweeps",
			},
			[]string{"result"},
		),

		// Sweeps range from milliseconds on an idle store to tens of
		// seconds for full batches on every kind.
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "cleanup_duration_seconds",
				Help:      "Duration of cleanup sweeps in seconds",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 10, 30},
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(cm.rowsTotal, cm.runsTotal, cm.duration)
	return cm
}
