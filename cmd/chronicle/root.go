package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/chronicle/pkg/cli"
	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Chronicle - history retention for BPMN process engines",
	Long: `Chronicle computes removal times for the history of a BPMN process engine
and removes historic data once it expires.

Removal times are derived from the end of root process instances, standalone
decision evaluations and batches. Cleanup runs on a cron schedule or as
continuous workers, each owning a disjoint minute-of-hour shard.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() {
	ctx, stop := cli.SetupSignalHandler(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and CHRONICLE_* environment when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig loads the process-wide configuration and installs the logger
// it describes.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Initialize(cfgFile)
	if err != nil {
		return nil, cli.ConfigErrorFrom(err)
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) error {
	_, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	return nil
}
