package config

import (
	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/cleanup"
	"mercator-hq/chronicle/pkg/history/removaltime"
)

// ParseLevel returns the configured history level.
func (h HistoryConfig) ParseLevel() (history.Level, error) {
	return history.ParseLevel(h.Level)
}

// Strategy returns the configured removal time strategy. An unknown name
// yields a *removaltime.StrategyError.
func (h HistoryConfig) Strategy() (removaltime.Strategy, error) {
	return removaltime.ParseStrategy(h.RemovalTimeStrategy)
}

// BatchTimeToLive returns the per batch type time-to-live resolver.
func (h HistoryConfig) BatchTimeToLive() (*removaltime.BatchTimeToLive, error) {
	return removaltime.NewBatchTimeToLive(h.BatchOperationTTL.Default, h.BatchOperationTTL.PerType)
}

// TaskMetricsTimeToLive returns the task meter log time-to-live in days,
// nil when task meter logs are kept.
func (h HistoryConfig) TaskMetricsTimeToLive() (*int, error) {
	return removaltime.ParseTimeToLive(h.TaskMetricsTTL)
}

// Window returns the daily batch window.
func (c CleanupConfig) Window() (cleanup.BatchWindow, error) {
	return cleanup.ParseBatchWindow(c.BatchWindow.Start, c.BatchWindow.End)
}

// SchedulerConfig returns the cleanup scheduler settings.
func (c CleanupConfig) SchedulerConfig() (cleanup.SchedulerConfig, error) {
	window, err := c.Window()
	if err != nil {
		return cleanup.SchedulerConfig{}, err
	}
	return cleanup.SchedulerConfig{
		Schedule:            c.Schedule,
		DegreeOfParallelism: c.DegreeOfParallelism,
		BatchSize:           c.BatchSize,
		BatchSizeThreshold:  c.BatchSizeThreshold,
		Window:              window,
	}, nil
}

// Params returns the sweep params for a manual cleanup run.
func (c CleanupConfig) Params() cleanup.Params {
	return cleanup.Params{MinuteFrom: c.MinuteFrom, MinuteTo: c.MinuteTo, BatchSize: c.BatchSize}
}
