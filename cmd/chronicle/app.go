package main

import (
	"context"
	"fmt"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history/cleanup"
	"mercator-hq/chronicle/pkg/history/propagation"
	"mercator-hq/chronicle/pkg/history/removaltime"
	"mercator-hq/chronicle/pkg/history/store"
	"mercator-hq/chronicle/pkg/telemetry/metrics"
)

// app holds what every command needs: the configuration, the opened store
// and the metrics collector.
type app struct {
	cfg     *config.Config
	store   store.Store
	metrics *metrics.Collector
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.MaxOpenConns, cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	return &app{
		cfg:     cfg,
		store:   st,
		metrics: metrics.NewCollector(cfg.Telemetry.Metrics, nil),
	}, nil
}

// propagator builds a propagator from the history settings. batchSize caps
// the rows updated per step and pass; 0 updates everything in one pass.
func (a *app) propagator(batchSize int) (*propagation.Propagator, error) {
	strategy, err := a.cfg.History.Strategy()
	if err != nil {
		return nil, err
	}
	level, err := a.cfg.History.ParseLevel()
	if err != nil {
		return nil, err
	}
	batchTTL, err := a.cfg.History.BatchTimeToLive()
	if err != nil {
		return nil, err
	}
	return propagation.New(propagation.Options{
		Provider:        removaltime.NewDefaultProvider(strategy),
		BatchTimeToLive: batchTTL,
		Level:           level,
		BatchSize:       batchSize,
		Metrics:         a.metrics,

		HistoricInstancePermissions: a.cfg.History.EnableHistoricInstancePermissions,
	}), nil
}

// sweeper builds a sweeper from cfg, which may be newer than the
// configuration the app was opened with.
func (a *app) sweeper(cfg *config.Config) (*cleanup.Sweeper, error) {
	ttl, err := cfg.History.TaskMetricsTimeToLive()
	if err != nil {
		return nil, err
	}
	return cleanup.NewSweeper(a.store, cleanup.Options{
		TaskMetricsTimeToLive: ttl,
		Metrics:               a.metrics,
	}), nil
}

func (a *app) Close() error {
	return a.store.Close()
}
