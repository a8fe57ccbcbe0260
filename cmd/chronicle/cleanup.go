package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/chronicle/pkg/cli"
	"mercator-hq/chronicle/pkg/history/cleanup"
)

var cleanupFlags struct {
	minuteFrom int
	minuteTo   int
	batchSize  int
	untilDone  bool
	format     string
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired history once",
	Long: `Remove historic data whose removal time has passed.

Each kind is swept in its own transaction and at most --batch-size
candidates are removed per kind. Only removal times whose minute of the hour
lies in [--minute-from, --minute-to] are considered, so several processes can
share the work. With --until-done the sweep repeats while a kind filled its
batch.

Examples:
  # One sweep with the configured batch size
  chronicle cleanup

  # Remove everything expired in the first quarter of each hour
  chronicle cleanup --minute-from 0 --minute-to 14 --until-done

  # Machine readable report
  chronicle cleanup --output json`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().IntVar(&cleanupFlags.minuteFrom, "minute-from", -1, "first minute of the hour to sweep (default cleanup.minute_from)")
	cleanupCmd.Flags().IntVar(&cleanupFlags.minuteTo, "minute-to", -1, "last minute of the hour to sweep (default cleanup.minute_to)")
	cleanupCmd.Flags().IntVar(&cleanupFlags.batchSize, "batch-size", 0, "candidates removed per kind and sweep (default cleanup.batch_size)")
	cleanupCmd.Flags().BoolVar(&cleanupFlags.untilDone, "until-done", false, "repeat sweeps until no kind fills its batch")
	cleanupCmd.Flags().StringVarP(&cleanupFlags.format, "output", "o", "text", "output format: text, json")
}

// cleanupSummary aggregates the reports of one cleanup command.
type cleanupSummary struct {
	Sweeps        int              `json:"sweeps"`
	Removed       int64            `json:"removed"`
	Kinds         map[string]int64 `json:"kinds"`
	TaskMeterLogs int64            `json:"task_meter_logs"`
	More          bool             `json:"more"`
}

func (s *cleanupSummary) add(r *cleanup.Report) {
	s.Sweeps++
	s.Removed += r.Total
	s.TaskMeterLogs += r.TaskMeterLogs
	s.More = r.More
	for _, k := range r.Kinds {
		s.Kinds[string(k.Kind)] += k.Removed
	}
}

func (s *cleanupSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Removed %d expired records in %d sweep(s)\n", s.Removed, s.Sweeps)

	kinds := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&sb, "  %-20s %d\n", k, s.Kinds[k])
	}
	if s.TaskMeterLogs > 0 {
		fmt.Fprintf(&sb, "  %-20s %d\n", "task_meter_log", s.TaskMeterLogs)
	}
	if s.More {
		sb.WriteString("More expired records remain; run again or pass --until-done\n")
	}
	return sb.String()
}

func runCleanup(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(cleanupFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	params := cfg.Cleanup.Params()
	if cleanupFlags.minuteFrom >= 0 {
		params.MinuteFrom = cleanupFlags.minuteFrom
	}
	if cleanupFlags.minuteTo >= 0 {
		params.MinuteTo = cleanupFlags.minuteTo
	}
	if cleanupFlags.batchSize > 0 {
		params.BatchSize = cleanupFlags.batchSize
	}
	if params.BatchSize > cleanup.MaxBatchSize {
		return cli.NewConfigError("--batch-size", fmt.Sprintf("must be between 1 and %d", cleanup.MaxBatchSize))
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sweeper, err := a.sweeper(cfg)
	if err != nil {
		return err
	}

	summary := &cleanupSummary{Kinds: make(map[string]int64)}
	for {
		report, err := sweeper.Run(ctx, params)
		if report != nil {
			summary.add(report)
		}
		if err != nil {
			return cli.NewCommandError("cleanup", err)
		}
		if !cleanupFlags.untilDone || !report.More {
			break
		}
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summary)
}
