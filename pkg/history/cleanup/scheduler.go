package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerConfig configures scheduled cleanup.
type SchedulerConfig struct {
	// Schedule is a standard cron expression triggering a sweep of all
	// shards. Empty runs one continuous worker per shard instead.
	//
	// Common cron expressions:
	//   - "*/5 * * * *"  - Every 5 minutes
	//   - "0 * * * *"    - Hourly
	//   - "0 3 * * *"    - Daily at 3 AM
	Schedule string

	// DegreeOfParallelism is the number of minute shards (1-8).
	DegreeOfParallelism int

	// BatchSize caps the candidates per kind and sweep (1-500).
	BatchSize int

	// BatchSizeThreshold is the removed-row count below which a continuous
	// worker backs off.
	BatchSizeThreshold int

	// Window restricts scheduled cleanup to a time of day.
	Window BatchWindow
}

// Scheduler runs the sweeper on a cron schedule or continuously.
type Scheduler struct {
	cfg     SchedulerConfig
	workers []*Worker
	cron    *cron.Cron
	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	logger  *slog.Logger
	running bool
	// gen identifies the current run so that a finished run's context
	// watcher cannot stop a later one.
	gen uint64
}

// NewScheduler validates cfg and creates one worker per shard.
func NewScheduler(sweeper *Sweeper, cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		return nil, fmt.Errorf("batch size must be between 1 and %d, got %d", MaxBatchSize, cfg.BatchSize)
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q: %w", cfg.Schedule, err)
		}
	}
	shards, err := Shards(cfg.DegreeOfParallelism)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "history.cleanup.scheduler")
	s := &Scheduler{
		cfg:    cfg,
		logger: logger,
	}
	for _, shard := range shards {
		s.workers = append(s.workers,
			NewWorker(sweeper, shard, cfg.BatchSize, cfg.Window, NewBackoff(int64(cfg.BatchSizeThreshold))))
	}
	return s, nil
}

// Start begins scheduled cleanup. It stops when ctx is canceled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("cleanup scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.cfg.Schedule == "" {
		for _, w := range s.workers {
			w := w
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				w.Run(runCtx)
			}()
		}
	} else {
		s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})))
		if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.sweepAll(runCtx) }); err != nil {
			cancel()
			return fmt.Errorf("failed to schedule cleanup: %w", err)
		}
		s.cron.Start()
	}
	s.running = true

	s.logger.Info("cleanup scheduler started",
		"schedule", s.cfg.Schedule,
		"degree_of_parallelism", len(s.workers),
		"batch_size", s.cfg.BatchSize,
		"batch_window", s.cfg.Window.String(),
	)

	s.gen++
	gen := s.gen
	go func() {
		<-runCtx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen == gen {
			s.stopLocked()
		}
	}()
	return nil
}

// sweepAll drains every shard concurrently.
func (s *Scheduler) sweepAll(ctx context.Context) {
	if !s.cfg.Window.Contains(time.Now()) {
		s.logger.Debug("scheduled cleanup skipped outside batch window", "window", s.cfg.Window.String())
		return
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
	)
	for _, w := range s.workers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := w.Drain(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.Error("scheduled cleanup failed", "shard", w.Shard().String(), "error", err)
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total > 0 {
		s.logger.Info("scheduled cleanup completed", "removed", total)
	} else {
		s.logger.Debug("scheduled cleanup completed, nothing removed")
	}
}

// Stop stops the scheduler and waits for running sweeps to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
	s.wg.Wait()
	s.running = false
	s.logger.Info("cleanup scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled sweep, nil in continuous mode.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// Shards returns the minute windows of the scheduler's workers.
func (s *Scheduler) Shards() []Shard {
	out := make([]Shard, len(s.workers))
	for i, w := range s.workers {
		out[i] = w.Shard()
	}
	return out
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
