package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sync"

	"github.com/spf13/cobra"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history/cleanup"
	"mercator-hq/chronicle/pkg/telemetry/health"
	"mercator-hq/chronicle/pkg/telemetry/tracing"
)

var runFlags struct {
	dryRun bool
	watch  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the history cleanup daemon",
	Long: `Run history cleanup in the background until interrupted.

With cleanup.schedule set, every shard is swept on the cron schedule. Without
it, one worker per shard sweeps continuously and backs off while there is
little to remove. Both honor the daily batch window.

The Prometheus endpoint and, when enabled, the health probes are served on
telemetry.metrics.listen_address. With --watch the configuration file is
reloaded on change and cleanup restarts with the new settings.

Examples:
  # Start with a config file
  chronicle run --config /etc/chronicle/chronicle.yaml

  # Reload cleanup settings when the file changes
  chronicle run --config chronicle.yaml --watch

  # Validate config without starting
  chronicle run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and open the store without starting cleanup")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload the config file when it changes")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownTracing, err := tracing.Setup(ctx, tracingConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("failed to flush spans", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctrl := newCleanupController(a)
	if err := ctrl.apply(ctx, cfg); err != nil {
		return err
	}
	defer ctrl.stop()

	if runFlags.watch && cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, 0, func(old, updated *config.Config) {
			ctrl.reload(ctx, old, updated)
		})
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("configuration watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	errCh := make(chan error, 1)
	if cfg.Telemetry.Metrics.Enabled {
		var routes []func(*http.ServeMux)
		if cfg.Telemetry.Health.Enabled {
			checker := health.New(cfg.Telemetry.Health.CheckTimeout)
			checker.RegisterCheck("store", health.StoreCheck(a.store))
			checker.RegisterCheck("cleanup", health.RunningCheck("cleanup scheduler", ctrl))
			info := health.VersionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate}
			routes = append(routes, func(mux *http.ServeMux) { health.Register(mux, checker, info) })
		}
		go func() {
			errCh <- a.metrics.Serve(ctx, cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path, routes...)
		}()
	}

	slog.Info("chronicle started",
		"version", Version,
		"store", a.store.Backend(),
		"strategy", cfg.History.RemovalTimeStrategy,
		"cleanup", cfg.Cleanup.Enabled,
	)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}

func tracingConfig(cfg *config.Config) tracing.Config {
	t := cfg.Telemetry.Tracing
	return tracing.Config{
		Enabled:     t.Enabled,
		Endpoint:    t.Endpoint,
		Insecure:    t.Insecure,
		SampleRatio: t.SampleRatio,
		ServiceName: t.ServiceName,
		Version:     Version,
		Timeout:     t.Timeout,
	}
}

// cleanupController owns the running cleanup scheduler and replaces it when
// the configuration changes.
type cleanupController struct {
	app    *app
	logger *slog.Logger

	mu        sync.Mutex
	enabled   bool
	scheduler *cleanup.Scheduler
}

func newCleanupController(a *app) *cleanupController {
	return &cleanupController{
		app:    a,
		logger: slog.Default().With("component", "cleanup.controller"),
	}
}

// apply stops the current scheduler, if any, and starts one for cfg.
func (c *cleanupController) apply(ctx context.Context, cfg *config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheduler != nil {
		c.scheduler.Stop()
		c.scheduler = nil
	}
	c.enabled = cfg.Cleanup.Enabled
	if !c.enabled {
		c.logger.Info("history cleanup disabled")
		return nil
	}

	sweeper, err := c.app.sweeper(cfg)
	if err != nil {
		return err
	}
	sc, err := cfg.Cleanup.SchedulerConfig()
	if err != nil {
		return err
	}
	scheduler, err := cleanup.NewScheduler(sweeper, sc)
	if err != nil {
		return err
	}
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	c.scheduler = scheduler
	return nil
}

// reload restarts cleanup when its settings changed. Storage changes need a
// restart of the process.
func (c *cleanupController) reload(ctx context.Context, old, updated *config.Config) {
	if err := setupLogging(updated); err != nil {
		c.logger.Error("failed to apply logging settings", "error", err)
	}
	if old != nil && !reflect.DeepEqual(old.Storage, updated.Storage) {
		c.logger.Warn("storage settings changed, restart to apply them")
	}
	if old != nil && reflect.DeepEqual(old.Cleanup, updated.Cleanup) && old.History.TaskMetricsTTL == updated.History.TaskMetricsTTL {
		return
	}
	if err := c.apply(ctx, updated); err != nil {
		c.logger.Error("failed to restart history cleanup", "error", err)
	}
}

// IsRunning reports whether cleanup runs. Disabled cleanup counts as
// running so that readiness does not depend on it.
func (c *cleanupController) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return true
	}
	return c.scheduler != nil && c.scheduler.IsRunning()
}

func (c *cleanupController) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler != nil {
		c.scheduler.Stop()
		c.scheduler = nil
	}
}
