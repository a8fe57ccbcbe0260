package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/bytearray"
	"mercator-hq/chronicle/pkg/history/removaltime"
	"mercator-hq/chronicle/pkg/history/store"
	"mercator-hq/chronicle/pkg/telemetry/logging"
)

// Metrics receives backfill and locking observations.
type Metrics interface {
	RecordBackfill(kind string, rows int64)
	RecordConflict()
}

type nopMetrics struct{}

func (nopMetrics) RecordBackfill(string, int64) {}
func (nopMetrics) RecordConflict()              {}

// Options configures a Propagator.
type Options struct {
	// Provider computes removal times. Default: END strategy.
	Provider removaltime.Provider

	// BatchTimeToLive resolves the time-to-live of batches by type.
	BatchTimeToLive *removaltime.BatchTimeToLive

	// Level is the history level gating job logs.
	Level history.Level

	// BatchSize caps every backfill statement. Zero means unbounded.
	BatchSize int

	// ByteArrays manages payloads created with records.
	ByteArrays *bytearray.Manager

	// HistoricInstancePermissions lets authorizations inherit the root and
	// removal time of the historic process instance or task they grant
	// access to. Off by default.
	HistoricInstancePermissions bool

	// Metrics receives observations. Optional.
	Metrics Metrics
}

// Propagator stamps removal times on historic records as they are created
// and backfills them when the owning root process instance or batch ends.
// All operations run inside the caller's transaction and read through a
// store.Session. Callers pass their own session to share its cache across
// operations of one transaction.
type Propagator struct {
	provider  removaltime.Provider
	batchTTL  *removaltime.BatchTimeToLive
	level     history.Level
	batchSize int
	bytes     *bytearray.Manager
	metrics   Metrics
	perms     bool
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Propagator.
func New(opts Options) *Propagator {
	p := &Propagator{
		provider:  opts.Provider,
		batchTTL:  opts.BatchTimeToLive,
		level:     opts.Level,
		batchSize: opts.BatchSize,
		bytes:     opts.ByteArrays,
		metrics:   opts.Metrics,
		perms:     opts.HistoricInstancePermissions,
		now:       time.Now,
		logger:    slog.Default().With("component", "history.propagation"),
	}
	if p.provider == nil {
		p.provider = removaltime.NewDefaultProvider(removaltime.DefaultStrategy)
	}
	if p.bytes == nil {
		p.bytes = bytearray.NewManager()
	}
	if p.metrics == nil {
		p.metrics = nopMetrics{}
	}
	return p
}

// Strategy returns the configured removal-time strategy.
func (p *Propagator) Strategy() removaltime.Strategy {
	return p.provider.Strategy()
}

// OnRootInstanceStarted registers a root process instance.
func (p *Propagator) OnRootInstanceStarted(ctx context.Context, tx store.Tx, root *history.RootInstance) error {
	tx = store.WithSession(tx)
	if err := tx.InsertRoot(ctx, root); err != nil {
		return fmt.Errorf("failed to register root instance %s: %w", root.ID, err)
	}
	return nil
}

// OnRootInstanceEnded records the end of a root process instance and, under
// the END strategy, backfills the removal time of everything it owns. When
// the backfill batch size is set the report may be incomplete; callers
// continue with BackfillRoot.
func (p *Propagator) OnRootInstanceEnded(ctx context.Context, tx store.Tx, rootID string, end time.Time) (*Report, error) {
	tx = store.WithSession(tx)
	if err := tx.UpdateRootEnd(ctx, rootID, end); err != nil {
		return nil, fmt.Errorf("failed to end root instance %s: %w", rootID, err)
	}
	return p.BackfillRoot(ctx, tx, rootID)
}

// BackfillRoot runs one pass of the root backfill pipeline. Records created
// under START were stamped eagerly, so only END triggers statements.
func (p *Propagator) BackfillRoot(ctx context.Context, tx store.Tx, rootID string) (*Report, error) {
	tx = store.WithSession(tx)
	ctx = logging.WithRootInstanceID(ctx, rootID)
	pl := RootPipeline(rootID)
	root, err := tx.GetRoot(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to load root instance %s: %w", rootID, err)
	}
	if p.provider.Strategy() != removaltime.StrategyEnd {
		return newReport(pl, nil), nil
	}
	removal := p.provider.ForRoot(root)
	if removal == nil {
		return newReport(pl, nil), nil
	}
	return p.run(ctx, tx, pl, *removal)
}

// BackfillProcessInstance sets removalTime on the records of one process
// instance that do not carry a removal time yet.
func (p *Propagator) BackfillProcessInstance(ctx context.Context, tx store.Tx, processInstanceID string, removalTime time.Time) (*Report, error) {
	tx = store.WithSession(tx)
	return p.run(ctx, tx, ProcessInstancePipeline(processInstanceID), removalTime)
}

// OnHistoricRecordCreated stamps a new record with the removal time of its
// owner and inserts it. value, when non-nil, is stored as the record's byte
// array and mirrors the record's root and removal time. Authorizations are
// routed through SaveAuthorization.
func (p *Propagator) OnHistoricRecordCreated(ctx context.Context, tx store.Tx, rec history.HistoricRecord, value *bytearray.Value) error {
	tx = store.WithSession(tx)
	if auth, ok := rec.(*history.Authorization); ok {
		return p.SaveAuthorization(ctx, tx, auth)
	}

	removal, err := p.resolve(ctx, tx, rec)
	if err != nil {
		return err
	}
	rec.SetRemovalTime(removal)
	return p.insert(ctx, tx, rec, value)
}

// resolve finds the removal time a new record inherits from its owner: the
// root process instance, else the batch, else the root decision instance.
// Records without an owner are retained until deleted explicitly.
func (p *Propagator) resolve(ctx context.Context, tx store.Tx, rec history.HistoricRecord) (*time.Time, error) {
	b := rec.Common()
	switch {
	case b.RootProcessInstance != "":
		root, err := tx.GetRoot(ctx, b.RootProcessInstance)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve removal time of %s %s from root %s: %w",
				rec.Kind(), b.ID, b.RootProcessInstance, err)
		}
		return p.provider.ForRoot(root), nil

	case b.BatchID != "":
		batch, err := tx.Get(ctx, history.KindBatch, b.BatchID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve removal time of %s %s from batch %s: %w",
				rec.Kind(), b.ID, b.BatchID, err)
		}
		return batch.RemovalTime, nil

	case b.RootDecisionInstanceID != "" && b.RootDecisionInstanceID != b.ID:
		decision, err := tx.Get(ctx, history.KindDecisionInstance, b.RootDecisionInstanceID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve removal time of %s %s from decision %s: %w",
				rec.Kind(), b.ID, b.RootDecisionInstanceID, err)
		}
		return decision.RemovalTime, nil

	default:
		return rec.RemovalTime(), nil
	}
}

func (p *Propagator) insert(ctx context.Context, tx store.Tx, rec history.HistoricRecord, value *bytearray.Value) error {
	b := rec.Common()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreateTime.IsZero() {
		b.CreateTime = p.now().UTC()
	}

	if value != nil {
		if _, err := p.bytes.Attach(ctx, tx, rec, *value); err != nil {
			return fmt.Errorf("failed to attach byte array to %s %s: %w", rec.Kind(), b.ID, err)
		}
	}
	if err := store.InsertRecord(ctx, tx, rec); err != nil {
		return fmt.Errorf("failed to insert %s %s: %w", rec.Kind(), b.ID, err)
	}
	return nil
}

// DecisionEvaluation is a standalone decision evaluation: the evaluated
// decision instance with its inputs and outputs. Values holds optional
// byte array payloads keyed by input or output id.
type DecisionEvaluation struct {
	Instance *history.DecisionInstance
	Inputs   []*history.DecisionInput
	Outputs  []*history.DecisionOutput
	Values   map[string]bytearray.Value
}

// OnStandaloneDecisionEvaluated stamps and inserts a decision evaluated
// outside any process instance. The removal time derives from the
// decision's own time-to-live and evaluation time.
func (p *Propagator) OnStandaloneDecisionEvaluated(ctx context.Context, tx store.Tx, eval DecisionEvaluation, ttl *int) error {
	tx = store.WithSession(tx)
	inst := eval.Instance
	if inst == nil {
		return errors.New("decision evaluation without instance")
	}
	if inst.RootProcessInstance != "" {
		return fmt.Errorf("decision instance %s belongs to root %s and is not standalone", inst.ID, inst.RootProcessInstance)
	}
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.RootDecisionInstanceID == "" {
		inst.RootDecisionInstanceID = inst.ID
	}

	removal := p.provider.ForStandaloneDecision(ttl, inst.EvaluationTime)
	inst.SetRemovalTime(removal)
	if err := p.insert(ctx, tx, inst, nil); err != nil {
		return err
	}

	for _, in := range eval.Inputs {
		in.DecisionInstanceID = inst.ID
		in.RootDecisionInstanceID = inst.RootDecisionInstanceID
		in.SetRemovalTime(removal)
		if err := p.insert(ctx, tx, in, valueFor(eval.Values, in.ID)); err != nil {
			return err
		}
	}
	for _, out := range eval.Outputs {
		out.DecisionInstanceID = inst.ID
		out.RootDecisionInstanceID = inst.RootDecisionInstanceID
		out.SetRemovalTime(removal)
		if err := p.insert(ctx, tx, out, valueFor(eval.Values, out.ID)); err != nil {
			return err
		}
	}
	return nil
}

func valueFor(values map[string]bytearray.Value, id string) *bytearray.Value {
	if v, ok := values[id]; ok && id != "" {
		return &v
	}
	return nil
}

// OnBatchCreated stamps and inserts a new batch. Under START the removal
// time resolves immediately from the batch type's time-to-live.
func (p *Propagator) OnBatchCreated(ctx context.Context, tx store.Tx, batch *history.Batch) error {
	tx = store.WithSession(tx)
	if batch.StartTime.IsZero() {
		batch.StartTime = p.now().UTC()
	}
	batch.SetRemovalTime(p.provider.ForBatch(p.batchTTL.For(batch.Type), batch.StartTime, batch.EndTime))
	return p.insert(ctx, tx, batch, nil)
}

// OnBatchEnded records the end of a batch and backfills the removal time of
// its job logs and incidents.
func (p *Propagator) OnBatchEnded(ctx context.Context, tx store.Tx, batchID string, end time.Time) (*Report, error) {
	tx = store.WithSession(tx)
	batch, err := p.loadBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}

	batch.EndTime = &end
	if batch.RemovalTime() == nil {
		batch.SetRemovalTime(p.provider.ForBatch(p.batchTTL.For(batch.Type), batch.StartTime, &end))
	}
	if err := p.observe(store.UpdateRecord(ctx, tx, batch)); err != nil {
		return nil, fmt.Errorf("failed to end batch %s: %w", batchID, err)
	}

	return p.BackfillBatch(ctx, tx, batchID)
}

// BackfillBatch runs one pass of the batch backfill pipeline using the
// batch's stored removal time.
func (p *Propagator) BackfillBatch(ctx context.Context, tx store.Tx, batchID string) (*Report, error) {
	tx = store.WithSession(tx)
	ctx = logging.WithBatchID(ctx, batchID)
	pl := BatchPipeline(batchID)
	batch, err := p.loadBatch(ctx, tx, batchID)
	if err != nil {
		return nil, err
	}
	removal := batch.RemovalTime()
	if removal == nil {
		return newReport(pl, nil), nil
	}
	return p.run(ctx, tx, pl, *removal)
}

func (p *Propagator) loadBatch(ctx context.Context, tx store.Tx, batchID string) (*history.Batch, error) {
	rec, err := store.GetRecord(ctx, tx, history.KindBatch, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	return rec.(*history.Batch), nil
}

// JobEvent is a job lifecycle event reported by the execution engine.
type JobEvent struct {
	Log *history.JobLog

	// Exception is the stack trace of a failed job, stored as a byte array.
	Exception []byte
}

// OnJobEvent writes a job log for the event when the history level
// produces one. It reports whether a job log was written.
func (p *Propagator) OnJobEvent(ctx context.Context, tx store.Tx, ev JobEvent) (bool, error) {
	tx = store.WithSession(tx)
	if ev.Log == nil || !p.level.ProducesJobLog(ev.Log.State) {
		return false, nil
	}

	var value *bytearray.Value
	if len(ev.Exception) > 0 {
		value = &bytearray.Value{Name: "job.exception_stacktrace", Content: ev.Exception}
	}
	if err := p.OnHistoricRecordCreated(ctx, tx, ev.Log, value); err != nil {
		return false, err
	}
	return true, nil
}

// observe counts optimistic locking conflicts.
func (p *Propagator) observe(err error) error {
	var conflict *history.ConflictError
	if errors.As(err, &conflict) {
		p.metrics.RecordConflict()
		p.logger.Warn("optimistic locking conflict",
			"kind", conflict.Kind,
			"id", conflict.ID,
			"revision", conflict.Revision,
		)
	}
	return err
}
