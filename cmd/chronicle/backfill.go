package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/chronicle/pkg/cli"
	"mercator-hq/chronicle/pkg/history/propagation"
	"mercator-hq/chronicle/pkg/history/store"
)

var backfillFlags struct {
	end         string
	removalTime string
	batchSize   int
	format      string
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill removal times of historic data",
	Long: `Stamp historic data with the removal time of its owner.

Each pass runs in its own transaction and updates at most --batch-size rows
per step. Passes repeat until every step is complete.

Examples:
  # End a root process instance and backfill everything it owns
  chronicle backfill root 8f14e45f --end 2024-03-02T17:30:00Z

  # End a batch and backfill its job logs and incidents
  chronicle backfill batch b-42 --end 2024-03-02T18:00:00Z

  # Set an explicit removal time on a single process instance
  chronicle backfill process-instance p-7 --removal-time 2024-06-01T00:00:00Z`,
}

var backfillRootCmd = &cobra.Command{
	Use:   "root <root-process-instance-id>",
	Short: "Backfill the history of a root process instance",
	Long: `Backfill the removal time of every record owned by a root process instance.
With --end the instance is ended first. Only the END removal time strategy
backfills; under START records were stamped when they were created.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		end, err := parseTimeFlag("--end", backfillFlags.end, false)
		if err != nil {
			return err
		}
		id := args[0]
		return runBackfill(cmd, func(ctx context.Context, p *propagation.Propagator, tx store.Tx, first bool) (*propagation.Report, error) {
			if first && end != nil {
				return p.OnRootInstanceEnded(ctx, tx, id, *end)
			}
			return p.BackfillRoot(ctx, tx, id)
		})
	},
}

var backfillBatchCmd = &cobra.Command{
	Use:   "batch <batch-id>",
	Short: "Backfill the job logs and incidents of a batch",
	Long: `Backfill the removal time of the job logs and incidents of a batch. With
--end the batch is ended first and its own removal time is computed from the
batch operation time-to-live of its type.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		end, err := parseTimeFlag("--end", backfillFlags.end, false)
		if err != nil {
			return err
		}
		id := args[0]
		return runBackfill(cmd, func(ctx context.Context, p *propagation.Propagator, tx store.Tx, first bool) (*propagation.Report, error) {
			if first && end != nil {
				return p.OnBatchEnded(ctx, tx, id, *end)
			}
			return p.BackfillBatch(ctx, tx, id)
		})
	},
}

var backfillProcessInstanceCmd = &cobra.Command{
	Use:   "process-instance <process-instance-id>",
	Short: "Set an explicit removal time on one process instance",
	Long: `Set the removal time of every record of a single process instance, without
descending into called process instances.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removal, err := parseTimeFlag("--removal-time", backfillFlags.removalTime, true)
		if err != nil {
			return err
		}
		id := args[0]
		return runBackfill(cmd, func(ctx context.Context, p *propagation.Propagator, tx store.Tx, _ bool) (*propagation.Report, error) {
			return p.BackfillProcessInstance(ctx, tx, id, *removal)
		})
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.AddCommand(backfillRootCmd, backfillBatchCmd, backfillProcessInstanceCmd)

	backfillCmd.PersistentFlags().IntVar(&backfillFlags.batchSize, "batch-size", 0, "rows updated per step and pass (0 updates all in one pass)")
	backfillCmd.PersistentFlags().StringVarP(&backfillFlags.format, "output", "o", "text", "output format: text, json")
	backfillRootCmd.Flags().StringVar(&backfillFlags.end, "end", "", "end the root instance at this time first (RFC3339)")
	backfillBatchCmd.Flags().StringVar(&backfillFlags.end, "end", "", "end the batch at this time first (RFC3339)")
	backfillProcessInstanceCmd.Flags().StringVar(&backfillFlags.removalTime, "removal-time", "", "removal time to set (RFC3339)")
}

func parseTimeFlag(name, value string, required bool) (*time.Time, error) {
	if value == "" {
		if required {
			return nil, cli.NewConfigError(name, "is required")
		}
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, cli.NewConfigError(name, fmt.Sprintf("invalid RFC3339 time %q", value))
	}
	t = t.UTC()
	return &t, nil
}

// backfillPass runs one pass in tx. first is true for the first pass only.
type backfillPass func(ctx context.Context, p *propagation.Propagator, tx store.Tx, first bool) (*propagation.Report, error)

// backfillSummary aggregates the passes of one backfill command.
type backfillSummary struct {
	Pipeline    string           `json:"pipeline"`
	ScopeID     string           `json:"scope_id"`
	RemovalTime *time.Time       `json:"removal_time"`
	Passes      int              `json:"passes"`
	Rows        int64            `json:"rows"`
	Steps       map[string]int64 `json:"steps"`
}

func (s *backfillSummary) add(r *propagation.Report) {
	s.Passes++
	s.Pipeline = r.Pipeline
	s.ScopeID = r.ScopeID
	s.RemovalTime = r.RemovalTime
	s.Rows += r.Total
	for step, n := range r.Steps {
		s.Steps[step] += n
	}
}

func (s *backfillSummary) String() string {
	var sb strings.Builder
	if s.RemovalTime == nil {
		fmt.Fprintf(&sb, "No removal time for %s %s, nothing to backfill\n", s.Pipeline, s.ScopeID)
		return sb.String()
	}
	fmt.Fprintf(&sb, "Backfilled %d rows of %s %s in %d pass(es)\n", s.Rows, s.Pipeline, s.ScopeID, s.Passes)
	fmt.Fprintf(&sb, "Removal time: %s\n", s.RemovalTime.UTC().Format(time.RFC3339))

	steps := make([]string, 0, len(s.Steps))
	for step := range s.Steps {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	for _, step := range steps {
		if s.Steps[step] > 0 {
			fmt.Fprintf(&sb, "  %-32s %d\n", step, s.Steps[step])
		}
	}
	return sb.String()
}

func runBackfill(cmd *cobra.Command, pass backfillPass) error {
	format, err := cli.ParseFormat(backfillFlags.format)
	if err != nil {
		return err
	}
	if backfillFlags.batchSize < 0 {
		return cli.NewConfigError("--batch-size", "must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.propagator(backfillFlags.batchSize)
	if err != nil {
		return err
	}

	summary := &backfillSummary{Steps: make(map[string]int64)}
	for first := true; ; first = false {
		if err := ctx.Err(); err != nil {
			return err
		}
		var report *propagation.Report
		err := a.store.InTx(ctx, func(tx store.Tx) error {
			var err error
			report, err = pass(ctx, p, store.NewSession(tx), first)
			return err
		})
		if err != nil {
			return cli.NewCommandError("backfill", err)
		}
		summary.add(report)
		if report.Complete || report.RemovalTime == nil {
			break
		}
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), summary)
}
