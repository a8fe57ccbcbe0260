package cleanup

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/telemetry/logging"
)

// Worker sweeps one minute shard. Workers of different shards never select
// the same candidates, so they run without coordination.
type Worker struct {
	sweeper   *Sweeper
	shard     Shard
	batchSize int
	window    BatchWindow
	backoff   *Backoff
	clock     func() time.Time
	logger    *slog.Logger
}

// NewWorker creates a worker for shard.
func NewWorker(sweeper *Sweeper, shard Shard, batchSize int, window BatchWindow, backoff *Backoff) *Worker {
	return &Worker{
		sweeper:   sweeper,
		shard:     shard,
		batchSize: batchSize,
		window:    window,
		backoff:   backoff,
		clock:     time.Now,
		logger:    slog.Default().With("component", "history.cleanup.worker"),
	}
}

// Shard returns the worker's minute window.
func (w *Worker) Shard() Shard {
	return w.shard
}

// Run sweeps until ctx is canceled, sleeping between sweeps according to the
// batch window and the backoff.
func (w *Worker) Run(ctx context.Context) {
	ctx = logging.WithShard(ctx, w.shard.String())
	w.logger.InfoContext(ctx, "cleanup worker started", "batch_size", w.batchSize, "window", w.window.String())
	defer w.logger.InfoContext(ctx, "cleanup worker stopped")

	for {
		if !sleep(ctx, w.step(ctx)) {
			return
		}
	}
}

// step runs one sweep and returns the delay before the next.
func (w *Worker) step(ctx context.Context) time.Duration {
	if wait := w.window.UntilOpen(w.clock()); wait > 0 {
		w.backoff.Reset()
		w.logger.DebugContext(ctx, "outside batch window", "wait", wait)
		return wait
	}

	report, err := w.sweeper.Run(ctx, w.shard.Params(w.batchSize))
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		if history.IsRetryable(err) {
			w.logger.WarnContext(ctx, "cleanup conflict, retrying later", "error", err)
		} else {
			w.logger.ErrorContext(ctx, "cleanup failed", "error", err)
		}
		return w.backoff.Next(0)
	}

	if report.More {
		w.backoff.Reset()
		return 0
	}
	delay := w.backoff.Next(report.Total)
	if delay > 0 {
		w.logger.DebugContext(ctx, "cleanup idle, backing off", "removed", report.Total, "delay", delay)
	}
	return delay
}

// Drain sweeps repeatedly while candidates remain and the batch window is
// open. Returns the number of removed rows.
func (w *Worker) Drain(ctx context.Context) (int64, error) {
	ctx = logging.WithShard(ctx, w.shard.String())
	var total int64
	for {
		if !w.window.Contains(w.clock()) {
			return total, nil
		}
		report, err := w.sweeper.Run(ctx, w.shard.Params(w.batchSize))
		if err != nil {
			return total, err
		}
		total += report.Total
		if !report.More {
			return total, nil
		}
	}
}

// sleep waits for d or until ctx is done. Reports false when ctx is done.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
