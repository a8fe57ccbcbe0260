package metrics

import "github.com/prometheus/client_golang/prometheus"

// BackfillMetrics tracks removal time propagation.
//
// Metrics:
//   - chronicle_backfill_rows_total: Rows stamped with a removal time by kind
//   - chronicle_optimistic_lock_conflicts_total: Rejected stale updates
type BackfillMetrics struct {
	rowsTotal      *prometheus.CounterVec
	conflictsTotal prometheus.Counter
}

// NewBackfillMetrics creates and registers backfill metrics with the provided registry.
func NewBackfillMetrics(registry *prometheus.Registry) *BackfillMetrics {
	bm := &BackfillMetrics{
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "backfill_rows_total",
				Help:      "Total number of historic rows whose removal time was backfilled",
			},
			[]string{"kind"},
		),

		conflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "optimistic_lock_conflicts_total",
				Help:      "Total number of updates rejected because the row revision changed",
			},
		),
	}

	registry.MustRegister(bm.rowsTotal, bm.conflictsTotal)
	return bm
}
