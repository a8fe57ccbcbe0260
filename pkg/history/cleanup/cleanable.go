package cleanup

import (
	"context"
	"time"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/store"
)

// KindCount is the cleanable state of one kind.
type KindCount struct {
	Kind history.Kind

	// Expired counts rows whose removal time has passed within the minute
	// window.
	Expired int64

	// Total counts all stored rows of the kind.
	Total int64
}

// CleanableReport tells how much history a sweep over the same window
// would remove, without a batch size cap.
type CleanableReport struct {
	Now    time.Time
	Params Params
	Kinds  []KindCount

	// TaskMeterLogs is nil when task meter logs are kept.
	TaskMeterLogs *KindCount
}

// Expired sums the expired rows over all kinds and task meter logs.
func (r *CleanableReport) Expired() int64 {
	var n int64
	for _, k := range r.Kinds {
		n += k.Expired
	}
	if r.TaskMeterLogs != nil {
		n += r.TaskMeterLogs.Expired
	}
	return n
}

// Cleanable counts the expired and stored rows of every kind the sweeper
// cleans, in pipeline order. It reads in one transaction and deletes
// nothing. params.BatchSize is ignored.
func (s *Sweeper) Cleanable(ctx context.Context, params Params) (*CleanableReport, error) {
	now := s.now()
	cp := store.CleanupParams{Now: now, MinuteFrom: params.MinuteFrom, MinuteTo: params.MinuteTo}
	if err := cp.Validate(); err != nil {
		return nil, err
	}

	report := &CleanableReport{Now: now, Params: params}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		for _, p := range s.pipelines {
			expired, err := tx.CountExpired(ctx, p.Kind, cp)
			if err != nil {
				return history.NewCleanupError(p.Kind, "count_expired", now, err)
			}
			total, err := tx.Count(ctx, p.Kind)
			if err != nil {
				return history.NewCleanupError(p.Kind, "count", now, err)
			}
			report.Kinds = append(report.Kinds, KindCount{Kind: p.Kind, Expired: expired, Total: total})
		}

		if s.metricTTL == nil {
			return nil
		}
		cutoff := cp
		cutoff.Now = now.AddDate(0, 0, -*s.metricTTL)
		expired, err := tx.CountExpiredTaskMeterLogs(ctx, cutoff)
		if err != nil {
			return history.NewCleanupError(history.KindTaskMeterLog, "count_expired", now, err)
		}
		total, err := tx.CountTaskMeterLogs(ctx)
		if err != nil {
			return history.NewCleanupError(history.KindTaskMeterLog, "count", now, err)
		}
		report.TaskMeterLogs = &KindCount{Kind: history.KindTaskMeterLog, Expired: expired, Total: total}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
