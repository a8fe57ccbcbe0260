package store

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// ScopeBy names the column a bulk removal-time update is scoped by.
type ScopeBy string

const (
	// ByRootProcessInstance scopes by the root process instance of a call hierarchy.
	ByRootProcessInstance ScopeBy = "root_proc_inst_id"

	// ByProcessInstance scopes by a single (possibly non-root) process instance.
	ByProcessInstance ScopeBy = "proc_inst_id"

	// ByBatch scopes by batch id.
	ByBatch ScopeBy = "batch_id"

	// ByRootDecisionInstance scopes by the root decision instance of an evaluation.
	ByRootDecisionInstance ScopeBy = "root_decision_inst_id"
)

// Scope selects the rows a bulk update applies to.
type Scope struct {
	By ScopeBy
	ID string
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	return fmt.Sprintf("%s=%s", s.By, s.ID)
}

// Validate checks the scope column and id.
func (s Scope) Validate() error {
	switch s.By {
	case ByRootProcessInstance, ByProcessInstance, ByBatch, ByRootDecisionInstance:
	default:
		return fmt.Errorf("unknown scope column %q", s.By)
	}
	if s.ID == "" {
		return fmt.Errorf("scope %s requires an id", s.By)
	}
	return nil
}

// FullHourMinuteFrom and FullHourMinuteTo delimit the unfiltered window.
const (
	FullHourMinuteFrom = 0
	FullHourMinuteTo   = 59
)

// CleanupParams bounds one cleanup selection.
type CleanupParams struct {
	// Now is the reference time; rows with removal time <= Now are expired.
	// For task meter logs it is the cutoff instead (timestamp < Now).
	Now time.Time

	// MinuteFrom and MinuteTo restrict candidates to removal times whose
	// minute-of-hour lies in [MinuteFrom, MinuteTo]. The full hour (0-59)
	// disables the filter.
	MinuteFrom int
	MinuteTo   int

	// BatchSize caps the number of candidates. Zero or negative means no cap.
	BatchSize int
}

// Validate checks the minute window.
func (p CleanupParams) Validate() error {
	if p.MinuteFrom < 0 || p.MinuteTo > 59 || p.MinuteFrom > p.MinuteTo {
		return fmt.Errorf("invalid minute window [%d, %d]: expected 0 <= from <= to <= 59", p.MinuteFrom, p.MinuteTo)
	}
	return nil
}

// MinuteFiltered reports whether the minute-of-hour filter applies. Only
// the full hour is treated as unfiltered.
func (p CleanupParams) MinuteFiltered() bool {
	return p.MinuteTo-p.MinuteFrom+1 < 60
}

// InMinuteWindow reports whether t falls into the params' minute window.
func (p CleanupParams) InMinuteWindow(t time.Time) bool {
	if !p.MinuteFiltered() {
		return true
	}
	m := t.UTC().Minute()
	return m >= p.MinuteFrom && m <= p.MinuteTo
}

// Tx is the unit of work every retention operation runs in. It is passed
// explicitly; there is no ambient transaction context.
//
// Bulk operations (UpdateRemovalTime, UpdateByteArrayRemovalTime,
// SelectExpired, CountExpired, DeleteByIDs) touch exactly one table each.
type Tx interface {
	// InsertRoot stores a root process instance.
	InsertRoot(ctx context.Context, root *history.RootInstance) error

	// GetRoot loads a root process instance. Returns history.ErrNotFound.
	GetRoot(ctx context.Context, id string) (*history.RootInstance, error)

	// UpdateRootEnd records the end time of a root process instance.
	UpdateRootEnd(ctx context.Context, id string, end time.Time) error

	// Insert stores a new row. The row revision is set to 1.
	Insert(ctx context.Context, row *history.Row) error

	// Get loads a row. Returns history.ErrNotFound.
	Get(ctx context.Context, kind history.Kind, id string) (*history.Row, error)

	// Update writes a row if its revision still matches the stored one and
	// increments the revision. A mismatch or a missing row yields a
	// *history.ConflictError.
	Update(ctx context.Context, row *history.Row) error

	// ListByScope returns the rows of a kind in a scope ordered by id.
	ListByScope(ctx context.Context, kind history.Kind, scope Scope) ([]*history.Row, error)

	// InsertByteArray stores a new byte array. The revision is set to 1.
	InsertByteArray(ctx context.Context, ba *history.ByteArray) error

	// GetByteArray loads a byte array. Returns history.ErrNotFound.
	GetByteArray(ctx context.Context, id string) (*history.ByteArray, error)

	// UpdateByteArray writes content, owner reference and removal time of
	// a byte array with a revision check.
	UpdateByteArray(ctx context.Context, ba *history.ByteArray) error

	// DeleteByteArray deletes a byte array without a revision check.
	// Deleting a missing byte array is not an error.
	DeleteByteArray(ctx context.Context, id string) error

	// UpdateRemovalTime sets removalTime on up to batchSize rows of kind in
	// scope whose removal time is still null, in id order. Returns the
	// number of rows updated.
	UpdateRemovalTime(ctx context.Context, kind history.Kind, scope Scope, removalTime time.Time, batchSize int) (int64, error)

	// UpdateByteArrayRemovalTime sets removalTime on up to batchSize byte
	// arrays referenced by rows of ownerKind in scope whose removal time is
	// still null, in byte array id order.
	UpdateByteArrayRemovalTime(ctx context.Context, ownerKind history.Kind, scope Scope, removalTime time.Time, batchSize int) (int64, error)

	// SelectExpired returns ids of expired rows of kind ordered by removal
	// time then id. kind is a record kind or history.KindByteArray.
	SelectExpired(ctx context.Context, kind history.Kind, params CleanupParams) ([]string, error)

	// CountExpired counts the rows of kind SelectExpired would return
	// without a batch size cap. kind is a record kind or
	// history.KindByteArray.
	CountExpired(ctx context.Context, kind history.Kind, params CleanupParams) (int64, error)

	// Count returns the number of stored rows of kind. kind is a record
	// kind or history.KindByteArray.
	Count(ctx context.Context, kind history.Kind) (int64, error)

	// SelectIDsByBatch returns ids of rows of kind belonging to the given
	// batches ordered by id.
	SelectIDsByBatch(ctx context.Context, kind history.Kind, batchIDs []string) ([]string, error)

	// DeleteByteArraysOf deletes the byte arrays referenced by the given
	// rows of ownerKind without revision checks.
	DeleteByteArraysOf(ctx context.Context, ownerKind history.Kind, ids []string) (int64, error)

	// DeleteByIDs deletes rows of kind by id. Missing ids are ignored.
	// kind is a record kind or history.KindByteArray.
	DeleteByIDs(ctx context.Context, kind history.Kind, ids []string) (int64, error)

	// InsertTaskMeterLog stores a task meter log entry.
	InsertTaskMeterLog(ctx context.Context, log *history.TaskMeterLog) error

	// DeleteTaskMeterLogs deletes up to BatchSize entries with a timestamp
	// before params.Now within the minute window.
	DeleteTaskMeterLogs(ctx context.Context, params CleanupParams) (int64, error)

	// CountTaskMeterLogs returns the number of stored task meter log entries.
	CountTaskMeterLogs(ctx context.Context) (int64, error)

	// CountExpiredTaskMeterLogs counts the entries DeleteTaskMeterLogs
	// would remove without a batch size cap.
	CountExpiredTaskMeterLogs(ctx context.Context, params CleanupParams) (int64, error)
}

// Store is a transactional historic data store. Implementations must be
// safe for concurrent use.
type Store interface {
	// InTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Backend names the backend ("memory", "sqlite", "sqlite3", "pgx").
	Backend() string

	// Close releases any resources held by the store.
	Close() error
}
