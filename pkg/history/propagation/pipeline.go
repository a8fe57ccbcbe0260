package propagation

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/store"
	"mercator-hq/chronicle/pkg/telemetry/tracing"
)

// Step is one bulk removal-time statement of a backfill pipeline. It
// touches exactly one table: the rows of Kind, or the byte arrays
// referenced by rows of Kind when ByteArrays is set.
type Step struct {
	Kind       history.Kind
	ByteArrays bool
	Scope      store.Scope
}

// Name identifies the step in reports and logs.
func (s Step) Name() string {
	if s.ByteArrays {
		return string(s.Kind) + ".bytearray"
	}
	return string(s.Kind)
}

// Pipeline is an ordered list of backfill steps sharing one scope.
type Pipeline struct {
	Name  string
	Scope store.Scope
	Steps []Step
}

// RootPipeline backfills every record kind owned by a root process
// instance. Each byte array owning kind is followed by its byte arrays.
func RootPipeline(rootID string) Pipeline {
	return scopedPipeline("root", store.Scope{By: store.ByRootProcessInstance, ID: rootID}, rootKinds())
}

// ProcessInstancePipeline backfills the records of a single process
// instance without descending into its call hierarchy.
func ProcessInstancePipeline(processInstanceID string) Pipeline {
	return scopedPipeline("process_instance", store.Scope{By: store.ByProcessInstance, ID: processInstanceID}, rootKinds())
}

// BatchPipeline backfills the job logs and incidents of a batch. The batch
// row itself is updated by the caller under optimistic locking.
func BatchPipeline(batchID string) Pipeline {
	return scopedPipeline("batch", store.Scope{By: store.ByBatch, ID: batchID},
		[]history.Kind{history.KindJobLog, history.KindIncident})
}

func scopedPipeline(name string, scope store.Scope, kinds []history.Kind) Pipeline {
	p := Pipeline{Name: name, Scope: scope}
	for _, k := range kinds {
		p.Steps = append(p.Steps, Step{Kind: k, Scope: scope})
		if k.OwnsByteArrays() {
			p.Steps = append(p.Steps, Step{Kind: k, ByteArrays: true, Scope: scope})
		}
	}
	return p
}

// rootKinds are the kinds that may carry a root process instance id.
func rootKinds() []history.Kind {
	var out []history.Kind
	for _, k := range history.Kinds() {
		if k != history.KindBatch {
			out = append(out, k)
		}
	}
	return out
}

// Report summarizes one pass of a backfill pipeline.
type Report struct {
	Pipeline    string
	ScopeID     string
	RemovalTime *time.Time
	Steps       map[string]int64
	Total       int64

	// Complete is false when a step hit the batch size cap; the caller
	// must run the pipeline again until it is complete.
	Complete bool
}

func newReport(p Pipeline, removal *time.Time) *Report {
	return &Report{
		Pipeline:    p.Name,
		ScopeID:     p.Scope.ID,
		RemovalTime: removal,
		Steps:       make(map[string]int64, len(p.Steps)),
		Complete:    true,
	}
}

// run executes every step of the pipeline once.
func (p *Propagator) run(ctx context.Context, tx store.Tx, pl Pipeline, removal time.Time) (report *Report, err error) {
	ctx, span := tracing.Start(ctx, "backfill."+pl.Name,
		tracing.Pipeline(pl.Name),
		tracing.ScopeID(pl.Scope.ID),
		attribute.String(tracing.AttrRemovalTime, removal.UTC().Format(time.RFC3339)),
	)
	defer func() {
		span.SetAttributes(tracing.Rows(report.Total), attribute.Bool(tracing.AttrComplete, report.Complete))
		tracing.End(span, err)
	}()

	report = newReport(pl, &removal)

	for _, step := range pl.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var (
			n   int64
			err error
		)
		if step.ByteArrays {
			n, err = tx.UpdateByteArrayRemovalTime(ctx, step.Kind, step.Scope, removal, p.batchSize)
		} else {
			n, err = tx.UpdateRemovalTime(ctx, step.Kind, step.Scope, removal, p.batchSize)
		}
		if err != nil {
			return report, history.NewBackfillError(step.Kind, step.Scope.ID, err)
		}

		report.Steps[step.Name()] = n
		report.Total += n
		if p.batchSize > 0 && n >= int64(p.batchSize) {
			report.Complete = false
		}
		if n > 0 {
			p.metrics.RecordBackfill(string(step.Kind), n)
		}
	}

	p.logger.DebugContext(ctx, "backfill pass finished",
		"pipeline", pl.Name,
		"scope", pl.Scope.String(),
		"removal_time", removal,
		"rows", report.Total,
		"complete", report.Complete,
	)
	return report, nil
}
