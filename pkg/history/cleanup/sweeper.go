package cleanup

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/store"
	"mercator-hq/chronicle/pkg/telemetry/tracing"
)

// MaxBatchSize is the largest accepted cleanup batch size.
const MaxBatchSize = 500

// Metrics receives cleanup observations.
type Metrics interface {
	RecordCleanup(kind string, rows int64)
	RecordRun(result string, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordCleanup(string, int64)     {}
func (nopMetrics) RecordRun(string, time.Duration) {}

// Params bounds one sweep.
type Params struct {
	MinuteFrom int
	MinuteTo   int
	BatchSize  int
}

// FullHour returns params covering every minute of the hour.
func FullHour(batchSize int) Params {
	return Params{MinuteFrom: store.FullHourMinuteFrom, MinuteTo: store.FullHourMinuteTo, BatchSize: batchSize}
}

// KindResult is the outcome of one kind's pipeline.
type KindResult struct {
	Kind history.Kind

	// IDs are the expired candidates selected, in selection order.
	IDs []string

	// Removed counts the candidates actually deleted. It is lower than
	// len(IDs) when a concurrent sweep removed some of them first.
	Removed int64

	// Deleted counts rows removed per pipeline step.
	Deleted map[string]int64
}

// Report summarizes one sweep.
type Report struct {
	Now           time.Time
	Params        Params
	Kinds         []*KindResult
	TaskMeterLogs int64

	// Total counts deleted candidates across kinds plus task meter logs.
	Total int64

	// More reports that at least one kind filled the batch size, so more
	// candidates may remain.
	More bool
}

// Options configures a Sweeper.
type Options struct {
	// TaskMetricsTimeToLive enables task meter log cleanup. Nil keeps them.
	TaskMetricsTimeToLive *int

	// Metrics receives observations. Optional.
	Metrics Metrics
}

// Sweeper physically removes expired historic data.
type Sweeper struct {
	store     store.Store
	pipelines []Pipeline
	metricTTL *int
	metrics   Metrics
	now       func() time.Time
	logger    *slog.Logger
}

// NewSweeper creates a sweeper over st.
func NewSweeper(st store.Store, opts Options) *Sweeper {
	s := &Sweeper{
		store:     st,
		pipelines: Pipelines(),
		metricTTL: opts.TaskMetricsTimeToLive,
		metrics:   opts.Metrics,
		now:       time.Now,
		logger:    slog.Default().With("component", "history.cleanup"),
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	return s
}

// Run sweeps every kind once. Each kind runs in its own transaction and the
// context is checked between kinds, so cancellation never interrupts a
// batch half way. Sweeping with nothing expired is a no-op.
func (s *Sweeper) Run(ctx context.Context, params Params) (report *Report, err error) {
	ctx, span := tracing.Start(ctx, "cleanup.sweep",
		append(tracing.MinuteWindow(params.MinuteFrom, params.MinuteTo),
			attribute.Int(tracing.AttrBatchSize, params.BatchSize))...)
	defer func() {
		if report != nil {
			span.SetAttributes(tracing.Rows(report.Total), attribute.Bool(tracing.AttrMore, report.More))
		}
		tracing.End(span, err)
	}()

	start := time.Now()
	now := s.now()
	report = &Report{Now: now, Params: params}

	cp := store.CleanupParams{
		Now:        now,
		MinuteFrom: params.MinuteFrom,
		MinuteTo:   params.MinuteTo,
		BatchSize:  params.BatchSize,
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}

	for _, p := range s.pipelines {
		if err := ctx.Err(); err != nil {
			s.metrics.RecordRun("canceled", time.Since(start))
			return report, err
		}

		res, err := s.runPipeline(ctx, p, cp)
		if err != nil {
			s.metrics.RecordRun("error", time.Since(start))
			return report, err
		}
		if res == nil {
			continue
		}
		report.Kinds = append(report.Kinds, res)
		report.Total += res.Removed
		if params.BatchSize > 0 && len(res.IDs) >= params.BatchSize {
			report.More = true
		}
	}

	if s.metricTTL != nil {
		if err := ctx.Err(); err != nil {
			s.metrics.RecordRun("canceled", time.Since(start))
			return report, err
		}
		n, err := s.cleanTaskMeterLogs(ctx, cp)
		if err != nil {
			s.metrics.RecordRun("error", time.Since(start))
			return report, err
		}
		report.TaskMeterLogs = n
		report.Total += n
		if params.BatchSize > 0 && n >= int64(params.BatchSize) {
			report.More = true
		}
	}

	s.metrics.RecordRun("success", time.Since(start))
	if report.Total > 0 {
		s.logger.InfoContext(ctx, "history cleanup completed",
			"removed", report.Total,
			"minute_from", params.MinuteFrom,
			"minute_to", params.MinuteTo,
			"more", report.More,
		)
	} else {
		s.logger.DebugContext(ctx, "history cleanup found nothing to remove",
			"minute_from", params.MinuteFrom,
			"minute_to", params.MinuteTo,
		)
	}
	return report, nil
}

// runPipeline selects one batch of expired candidates of the pipeline's
// kind and runs its delete steps. Returns nil when there is nothing to do.
func (s *Sweeper) runPipeline(ctx context.Context, p Pipeline, cp store.CleanupParams) (*KindResult, error) {
	ctx, span := tracing.Start(ctx, "cleanup.kind", tracing.Kind(string(p.Kind)))
	var res *KindResult

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		ids, err := tx.SelectExpired(ctx, p.Kind, cp)
		if err != nil {
			return history.NewCleanupError(p.Kind, "select", cp.Now, err)
		}
		if len(ids) == 0 {
			return nil
		}

		r := &KindResult{Kind: p.Kind, IDs: ids, Deleted: make(map[string]int64, len(p.Steps))}
		for _, step := range p.Steps {
			n, err := step.Run(ctx, tx, ids)
			if err != nil {
				return history.NewCleanupError(p.Kind, step.Name, cp.Now, err)
			}
			r.Deleted[step.Name] = n
		}
		r.Removed = r.Deleted[string(p.Kind)]
		res = r
		return nil
	})
	if err != nil {
		tracing.End(span, err)
		return nil, err
	}

	if res != nil {
		span.SetAttributes(tracing.Rows(res.Removed))
		s.metrics.RecordCleanup(string(p.Kind), res.Removed)
		s.logger.DebugContext(ctx, "expired records removed",
			"kind", p.Kind,
			"selected", len(res.IDs),
			"count", res.Removed,
			"steps", res.Deleted,
		)
	}
	tracing.End(span, nil)
	return res, nil
}

// cleanTaskMeterLogs deletes task meter logs older than the task metrics
// time-to-live.
func (s *Sweeper) cleanTaskMeterLogs(ctx context.Context, cp store.CleanupParams) (int64, error) {
	cutoff := cp
	cutoff.Now = cp.Now.AddDate(0, 0, -*s.metricTTL)

	var n int64
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteTaskMeterLogs(ctx, cutoff)
		if err != nil {
			return history.NewCleanupError(history.KindTaskMeterLog, "delete", cp.Now, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.RecordCleanup(string(history.KindTaskMeterLog), n)
	}
	return n, nil
}
