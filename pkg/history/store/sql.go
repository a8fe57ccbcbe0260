package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"mercator-hq/chronicle/pkg/history"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3  = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverPostgres = "pgx"     // github.com/jackc/pgx/v5/stdlib
)

// maxInParams bounds the number of ids bound into a single IN clause.
const maxInParams = 500

// SQLConfig contains configuration for the SQL storage backend.
type SQLConfig struct {
	// Driver is one of DriverSQLite, DriverSQLite3 or DriverPostgres.
	Driver string

	// DSN is the driver-specific data source name. For the SQLite drivers
	// this is the database file path.
	DSN string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 1 for SQLite, 10 for PostgreSQL
	MaxOpenConns int

	// BusyTimeout is how long SQLite waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLStore implements Store on top of database/sql using sqlx for scanning
// and squirrel for statement building.
type SQLStore struct {
	db      *sqlx.DB
	driver  string
	dialect dialect
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

// NewSQLStore opens the database, applies the schema and returns the store.
func NewSQLStore(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	s := &SQLStore{
		driver: cfg.Driver,
		logger: slog.Default().With("component", "history.store.sql", "driver", cfg.Driver),
	}

	switch cfg.Driver {
	case DriverSQLite, DriverSQLite3:
		s.dialect = sqliteDialect
		s.builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
		if cfg.MaxOpenConns <= 0 {
			cfg.MaxOpenConns = 1
		}
	case DriverPostgres:
		s.dialect = postgresDialect
		s.builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
		if cfg.MaxOpenConns <= 0 {
			cfg.MaxOpenConns = 10
		}
	default:
		return nil, history.NewStorageError(cfg.Driver, "open", errors.Errorf("unsupported driver %q", cfg.Driver))
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, history.NewStorageError(cfg.Driver, "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	s.db = db

	if err := s.initialize(ctx, cfg); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("SQL history store initialized",
		"dialect", s.dialect.name,
		"max_open_conns", cfg.MaxOpenConns,
		"schema_version", SchemaVersion,
	)
	return s, nil
}

// initialize applies connection pragmas and creates the schema.
func (s *SQLStore) initialize(ctx context.Context, cfg SQLConfig) error {
	if err := s.db.PingContext(ctx); err != nil {
		return history.NewStorageError(s.driver, "ping", err)
	}

	if s.dialect.name == sqliteDialect.name {
		if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return history.NewStorageError(s.driver, "enable_wal", err)
		}
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return history.NewStorageError(s.driver, "set_busy_timeout", err)
		}
	}

	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return history.NewStorageError(s.driver, "create_schema", errors.Wrapf(err, "failed to apply %q", firstLine(stmt)))
		}
	}

	_, err := s.execBuilder(ctx, s.db, s.builder.
		Insert(tableVersion).
		Columns("version", "applied_at").
		Values(SchemaVersion, time.Now().UnixMilli()).
		Suffix("ON CONFLICT (version) DO NOTHING"))
	if err != nil {
		return history.NewStorageError(s.driver, "schema_version", err)
	}
	return nil
}

// InTx implements Store.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return history.NewStorageError(s.driver, "begin", err)
	}

	if err := fn(&sqlTx{s: s, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return history.NewStorageError(s.driver, "commit", err)
	}
	return nil
}

// Backend implements Store.
func (s *SQLStore) Backend() string { return s.driver }

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// builder is anything squirrel can render.
type builder interface {
	ToSql() (string, []interface{}, error)
}

func (s *SQLStore) selectBuilder(ctx context.Context, q sqlx.QueryerContext, dest interface{}, b builder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build sql")
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

func (s *SQLStore) getBuilder(ctx context.Context, q sqlx.QueryerContext, dest interface{}, b builder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build sql")
	}
	return sqlx.GetContext(ctx, q, dest, query, args...)
}

func (s *SQLStore) execBuilder(ctx context.Context, e sqlx.ExecerContext, b builder) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build sql")
	}
	return e.ExecContext(ctx, query, args...)
}

// rowColumns are the shared record columns in select order.
var rowColumns = []string{
	"id", "root_proc_inst_id", "proc_inst_id", "batch_id", "root_decision_inst_id",
	"bytearray_id", "create_time", "removal_time", "rev", "data",
}

type dbRow struct {
	ID                     string         `db:"id"`
	RootProcessInstanceID  string         `db:"root_proc_inst_id"`
	ProcessInstanceID      string         `db:"proc_inst_id"`
	BatchID                string         `db:"batch_id"`
	RootDecisionInstanceID string         `db:"root_decision_inst_id"`
	ByteArrayID            string         `db:"bytearray_id"`
	CreateTime             int64          `db:"create_time"`
	RemovalTime            sql.NullInt64  `db:"removal_time"`
	Revision               int            `db:"rev"`
	Data                   sql.NullString `db:"data"`
}

func (r *dbRow) toRow(kind history.Kind) *history.Row {
	out := &history.Row{
		Kind:                   kind,
		ID:                     r.ID,
		RootProcessInstanceID:  r.RootProcessInstanceID,
		ProcessInstanceID:      r.ProcessInstanceID,
		BatchID:                r.BatchID,
		RootDecisionInstanceID: r.RootDecisionInstanceID,
		ByteArrayID:            r.ByteArrayID,
		CreateTime:             fromMillis(r.CreateTime),
		RemovalTime:            fromNullMillis(r.RemovalTime),
		Revision:               r.Revision,
	}
	if r.Data.Valid {
		out.Data = []byte(r.Data.String)
	}
	return out
}

type dbRoot struct {
	ID                   string        `db:"id"`
	ProcessDefinitionKey string        `db:"proc_def_key"`
	StartTime            int64         `db:"start_time"`
	EndTime              sql.NullInt64 `db:"end_time"`
	TTLDays              sql.NullInt64 `db:"ttl_days"`
}

type dbByteArray struct {
	ID                    string        `db:"id"`
	Name                  string        `db:"name"`
	Content               []byte        `db:"content"`
	OwnerKind             string        `db:"owner_kind"`
	RootProcessInstanceID string        `db:"root_proc_inst_id"`
	RemovalTime           sql.NullInt64 `db:"removal_time"`
	CreateTime            int64         `db:"create_time"`
	Revision              int           `db:"rev"`
}

// sqlTx implements Tx within one database transaction.
type sqlTx struct {
	s  *SQLStore
	tx *sqlx.Tx
}

func (t *sqlTx) fail(operation string, err error) error {
	return history.NewStorageError(t.s.driver, operation, err)
}

// affected returns the number of rows a statement changed.
func (t *sqlTx) affected(operation string, res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, t.fail(operation, errors.Wrap(err, "failed to read affected rows"))
	}
	return n, nil
}

func (t *sqlTx) InsertRoot(ctx context.Context, root *history.RootInstance) error {
	var ttl interface{}
	if root.HistoryTimeToLiveDays != nil {
		ttl = int64(*root.HistoryTimeToLiveDays)
	}
	_, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Insert(tableRoots).
		Columns("id", "proc_def_key", "start_time", "end_time", "ttl_days").
		Values(root.ID, root.ProcessDefinitionKey, millis(root.StartTime), nullMillis(root.EndTime), ttl))
	if err != nil {
		return t.fail("insert_root", errors.Wrapf(err, "failed to insert root instance %s", root.ID))
	}
	return nil
}

func (t *sqlTx) GetRoot(ctx context.Context, id string) (*history.RootInstance, error) {
	var r dbRoot
	err := t.s.getBuilder(ctx, t.tx, &r, t.s.builder.
		Select("id", "proc_def_key", "start_time", "end_time", "ttl_days").
		From(tableRoots).
		Where(sq.Eq{"id": id}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, t.fail("get_root", errors.Wrapf(err, "failed to get root instance %s", id))
	}

	out := &history.RootInstance{
		ID:                   r.ID,
		ProcessDefinitionKey: r.ProcessDefinitionKey,
		StartTime:            fromMillis(r.StartTime),
		EndTime:              fromNullMillis(r.EndTime),
	}
	if r.TTLDays.Valid {
		out.HistoryTimeToLiveDays = history.IntPtr(int(r.TTLDays.Int64))
	}
	return out, nil
}

func (t *sqlTx) UpdateRootEnd(ctx context.Context, id string, end time.Time) error {
	res, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Update(tableRoots).
		Set("end_time", millis(end)).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return t.fail("update_root", errors.Wrapf(err, "failed to end root instance %s", id))
	}
	n, err := t.affected("update_root", res)
	if err != nil {
		return err
	}
	if n == 0 {
		return history.ErrNotFound
	}
	return nil
}

func (t *sqlTx) Insert(ctx context.Context, row *history.Row) error {
	if !row.Kind.Valid() {
		return t.fail("insert", errUnknownKind(row.Kind))
	}
	_, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Insert(tableFor(row.Kind)).
		Columns(rowColumns...).
		Values(row.ID, row.RootProcessInstanceID, row.ProcessInstanceID, row.BatchID, row.RootDecisionInstanceID,
			row.ByteArrayID, millis(row.CreateTime), nullMillis(row.RemovalTime), 1, nullData(row.Data)))
	if err != nil {
		return t.fail("insert", errors.Wrapf(err, "failed to insert %s %s", row.Kind, row.ID))
	}
	row.Revision = 1
	return nil
}

func (t *sqlTx) Get(ctx context.Context, kind history.Kind, id string) (*history.Row, error) {
	if !kind.Valid() {
		return nil, t.fail("get", errUnknownKind(kind))
	}
	var r dbRow
	err := t.s.getBuilder(ctx, t.tx, &r, t.s.builder.
		Select(rowColumns...).
		From(tableFor(kind)).
		Where(sq.Eq{"id": id}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, t.fail("get", errors.Wrapf(err, "failed to get %s %s", kind, id))
	}
	return r.toRow(kind), nil
}

func (t *sqlTx) Update(ctx context.Context, row *history.Row) error {
	if !row.Kind.Valid() {
		return t.fail("update", errUnknownKind(row.Kind))
	}
	res, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Update(tableFor(row.Kind)).
		Set("root_proc_inst_id", row.RootProcessInstanceID).
		Set("proc_inst_id", row.ProcessInstanceID).
		Set("batch_id", row.BatchID).
		Set("root_decision_inst_id", row.RootDecisionInstanceID).
		Set("bytearray_id", row.ByteArrayID).
		Set("removal_time", nullMillis(row.RemovalTime)).
		Set("data", nullData(row.Data)).
		Set("rev", sq.Expr("rev + 1")).
		Where(sq.Eq{"id": row.ID, "rev": row.Revision}))
	if err != nil {
		return t.fail("update", errors.Wrapf(err, "failed to update %s %s", row.Kind, row.ID))
	}
	n, err := t.affected("update", res)
	if err != nil {
		return err
	}
	if n == 0 {
		return history.NewConflictError(row.Kind, row.ID, row.Revision)
	}
	row.Revision++
	return nil
}

func (t *sqlTx) ListByScope(ctx context.Context, kind history.Kind, scope Scope) ([]*history.Row, error) {
	if !kind.Valid() {
		return nil, t.fail("list", errUnknownKind(kind))
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var rows []dbRow
	err := t.s.selectBuilder(ctx, t.tx, &rows, t.s.builder.
		Select(rowColumns...).
		From(tableFor(kind)).
		Where(sq.Eq{string(scope.By): scope.ID}).
		OrderBy("id"))
	if err != nil {
		return nil, t.fail("list", errors.Wrapf(err, "failed to list %s by %s", kind, scope))
	}
	out := make([]*history.Row, len(rows))
	for i := range rows {
		out[i] = rows[i].toRow(kind)
	}
	return out, nil
}

func (t *sqlTx) InsertByteArray(ctx context.Context, ba *history.ByteArray) error {
	_, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Insert(tableByteArrays).
		Columns("id", "name", "content", "owner_kind", "root_proc_inst_id", "removal_time", "create_time", "rev").
		Values(ba.ID, ba.Name, ba.Content, string(ba.OwnerKind), ba.RootProcessInstanceID,
			nullMillis(ba.RemovalTime), millis(ba.CreateTime), 1))
	if err != nil {
		return t.fail("insert_bytearray", errors.Wrapf(err, "failed to insert byte array %s", ba.ID))
	}
	ba.Revision = 1
	return nil
}

func (t *sqlTx) GetByteArray(ctx context.Context, id string) (*history.ByteArray, error) {
	var b dbByteArray
	err := t.s.getBuilder(ctx, t.tx, &b, t.s.builder.
		Select("id", "name", "content", "owner_kind", "root_proc_inst_id", "removal_time", "create_time", "rev").
		From(tableByteArrays).
		Where(sq.Eq{"id": id}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, t.fail("get_bytearray", errors.Wrapf(err, "failed to get byte array %s", id))
	}
	return &history.ByteArray{
		ID:                    b.ID,
		Name:                  b.Name,
		Content:               b.Content,
		OwnerKind:             history.Kind(b.OwnerKind),
		RootProcessInstanceID: b.RootProcessInstanceID,
		RemovalTime:           fromNullMillis(b.RemovalTime),
		CreateTime:            fromMillis(b.CreateTime),
		Revision:              b.Revision,
	}, nil
}

func (t *sqlTx) UpdateByteArray(ctx context.Context, ba *history.ByteArray) error {
	res, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Update(tableByteArrays).
		Set("name", ba.Name).
		Set("content", ba.Content).
		Set("owner_kind", string(ba.OwnerKind)).
		Set("root_proc_inst_id", ba.RootProcessInstanceID).
		Set("removal_time", nullMillis(ba.RemovalTime)).
		Set("rev", sq.Expr("rev + 1")).
		Where(sq.Eq{"id": ba.ID, "rev": ba.Revision}))
	if err != nil {
		return t.fail("update_bytearray", errors.Wrapf(err, "failed to update byte array %s", ba.ID))
	}
	n, err := t.affected("update_bytearray", res)
	if err != nil {
		return err
	}
	if n == 0 {
		return history.NewConflictError(history.KindByteArray, ba.ID, ba.Revision)
	}
	ba.Revision++
	return nil
}

func (t *sqlTx) DeleteByteArray(ctx context.Context, id string) error {
	_, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Delete(tableByteArrays).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return t.fail("delete_bytearray", errors.Wrapf(err, "failed to delete byte array %s", id))
	}
	return nil
}

func (t *sqlTx) UpdateRemovalTime(ctx context.Context, kind history.Kind, scope Scope, removalTime time.Time, batchSize int) (int64, error) {
	if !kind.Valid() {
		return 0, t.fail("backfill", errUnknownKind(kind))
	}
	if err := scope.Validate(); err != nil {
		return 0, err
	}
	table := tableFor(kind)

	candidates := sq.Select("id").
		From(table).
		Where(sq.Eq{string(scope.By): scope.ID}).
		Where("removal_time IS NULL").
		OrderBy("id")
	if batchSize > 0 {
		candidates = candidates.Limit(uint64(batchSize))
	}

	res, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Update(table).
		Set("removal_time", millis(removalTime)).
		Where(sq.Expr("id IN (?)", candidates)))
	if err != nil {
		return 0, t.fail("backfill", errors.Wrapf(err, "failed to set removal time on %s by %s", kind, scope))
	}
	return t.affected("backfill", res)
}

func (t *sqlTx) UpdateByteArrayRemovalTime(ctx context.Context, ownerKind history.Kind, scope Scope, removalTime time.Time, batchSize int) (int64, error) {
	if !ownerKind.Valid() {
		return 0, t.fail("backfill_bytearray", errUnknownKind(ownerKind))
	}
	if err := scope.Validate(); err != nil {
		return 0, err
	}

	candidates := sq.Select("o.bytearray_id").
		From(tableFor(ownerKind) + " o").
		Join(tableByteArrays + " b ON b.id = o.bytearray_id").
		Where(sq.Eq{"o." + string(scope.By): scope.ID}).
		Where("b.removal_time IS NULL").
		OrderBy("o.bytearray_id")
	if batchSize > 0 {
		candidates = candidates.Limit(uint64(batchSize))
	}

	res, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Update(tableByteArrays).
		Set("removal_time", millis(removalTime)).
		Where(sq.Expr("id IN (?)", candidates)))
	if err != nil {
		return 0, t.fail("backfill_bytearray", errors.Wrapf(err, "failed to set removal time on byte arrays of %s by %s", ownerKind, scope))
	}
	return t.affected("backfill_bytearray", res)
}

// minuteFilter restricts a millisecond column to the params' minute window.
func minuteFilter(column string, params CleanupParams) sq.Sqlizer {
	return sq.Expr(fmt.Sprintf("(%s / 60000) %% 60 BETWEEN ? AND ?", column), params.MinuteFrom, params.MinuteTo)
}

// sweepTable returns the table of a record kind or of the byte arrays.
func sweepTable(kind history.Kind) (string, bool) {
	if kind == history.KindByteArray {
		return tableByteArrays, true
	}
	if kind.Valid() {
		return tableFor(kind), true
	}
	return "", false
}

// expiredWhere restricts a query to removal times up to params.Now within
// the minute window.
func expiredWhere(q sq.SelectBuilder, params CleanupParams) sq.SelectBuilder {
	q = q.Where(sq.LtOrEq{"removal_time": millis(params.Now)})
	if params.MinuteFiltered() {
		q = q.Where(minuteFilter("removal_time", params))
	}
	return q
}

func (t *sqlTx) SelectExpired(ctx context.Context, kind history.Kind, params CleanupParams) ([]string, error) {
	table, ok := sweepTable(kind)
	if !ok {
		return nil, t.fail("select_expired", errUnknownKind(kind))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	q := expiredWhere(t.s.builder.Select("id").From(table), params).
		OrderBy("removal_time", "id")
	if params.BatchSize > 0 {
		q = q.Limit(uint64(params.BatchSize))
	}

	var ids []string
	if err := t.s.selectBuilder(ctx, t.tx, &ids, q); err != nil {
		return nil, t.fail("select_expired", errors.Wrapf(err, "failed to select expired %s", kind))
	}
	return ids, nil
}

func (t *sqlTx) CountExpired(ctx context.Context, kind history.Kind, params CleanupParams) (int64, error) {
	table, ok := sweepTable(kind)
	if !ok {
		return 0, t.fail("count_expired", errUnknownKind(kind))
	}
	if err := params.Validate(); err != nil {
		return 0, err
	}

	var n int64
	err := t.s.getBuilder(ctx, t.tx, &n, expiredWhere(t.s.builder.Select("COUNT(*)").From(table), params))
	if err != nil {
		return 0, t.fail("count_expired", errors.Wrapf(err, "failed to count expired %s", kind))
	}
	return n, nil
}

func (t *sqlTx) Count(ctx context.Context, kind history.Kind) (int64, error) {
	table, ok := sweepTable(kind)
	if !ok {
		return 0, t.fail("count", errUnknownKind(kind))
	}
	var n int64
	if err := t.s.getBuilder(ctx, t.tx, &n, t.s.builder.Select("COUNT(*)").From(table)); err != nil {
		return 0, t.fail("count", errors.Wrapf(err, "failed to count %s", kind))
	}
	return n, nil
}

func (t *sqlTx) SelectIDsByBatch(ctx context.Context, kind history.Kind, batchIDs []string) ([]string, error) {
	if !kind.Valid() {
		return nil, t.fail("select_by_batch", errUnknownKind(kind))
	}
	var out []string
	for _, chunk := range chunks(batchIDs) {
		var ids []string
		err := t.s.selectBuilder(ctx, t.tx, &ids, t.s.builder.
			Select("id").
			From(tableFor(kind)).
			Where(sq.Eq{"batch_id": chunk}).
			OrderBy("id"))
		if err != nil {
			return nil, t.fail("select_by_batch", errors.Wrapf(err, "failed to select %s by batch", kind))
		}
		out = append(out, ids...)
	}
	return out, nil
}

func (t *sqlTx) DeleteByteArraysOf(ctx context.Context, ownerKind history.Kind, ids []string) (int64, error) {
	if !ownerKind.Valid() {
		return 0, t.fail("delete_bytearrays", errUnknownKind(ownerKind))
	}
	var total int64
	for _, chunk := range chunks(ids) {
		refs := sq.Select("bytearray_id").
			From(tableFor(ownerKind)).
			Where(sq.Eq{"id": chunk}).
			Where(sq.NotEq{"bytearray_id": ""})

		res, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
			Delete(tableByteArrays).
			Where(sq.Expr("id IN (?)", refs)))
		if err != nil {
			return total, t.fail("delete_bytearrays", errors.Wrapf(err, "failed to delete byte arrays of %s", ownerKind))
		}
		n, err := t.affected("delete_bytearrays", res)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *sqlTx) DeleteByIDs(ctx context.Context, kind history.Kind, ids []string) (int64, error) {
	table, ok := sweepTable(kind)
	if !ok {
		return 0, t.fail("delete", errUnknownKind(kind))
	}
	var total int64
	for _, chunk := range chunks(ids) {
		res, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
			Delete(table).
			Where(sq.Eq{"id": chunk}))
		if err != nil {
			return total, t.fail("delete", errors.Wrapf(err, "failed to delete %s", kind))
		}
		n, err := t.affected("delete", res)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (t *sqlTx) InsertTaskMeterLog(ctx context.Context, log *history.TaskMeterLog) error {
	_, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Insert(tableMeterLogs).
		Columns("id", "assignee_hash", "log_time").
		Values(log.ID, log.AssigneeHash, millis(log.Timestamp)))
	if err != nil {
		return t.fail("insert_meter_log", errors.Wrapf(err, "failed to insert task meter log %s", log.ID))
	}
	return nil
}

func (t *sqlTx) DeleteTaskMeterLogs(ctx context.Context, params CleanupParams) (int64, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}

	candidates := sq.Select("id").
		From(tableMeterLogs).
		Where(sq.Lt{"log_time": millis(params.Now)}).
		OrderBy("log_time", "id")
	if params.MinuteFiltered() {
		candidates = candidates.Where(minuteFilter("log_time", params))
	}
	if params.BatchSize > 0 {
		candidates = candidates.Limit(uint64(params.BatchSize))
	}

	res, err := t.s.execBuilder(ctx, t.tx, t.s.builder.
		Delete(tableMeterLogs).
		Where(sq.Expr("id IN (?)", candidates)))
	if err != nil {
		return 0, t.fail("delete_meter_logs", errors.Wrap(err, "failed to delete task meter logs"))
	}
	return t.affected("delete_meter_logs", res)
}

func (t *sqlTx) CountExpiredTaskMeterLogs(ctx context.Context, params CleanupParams) (int64, error) {
	if err := params.Validate(); err != nil {
		return 0, err
	}

	q := t.s.builder.
		Select("COUNT(*)").
		From(tableMeterLogs).
		Where(sq.Lt{"log_time": millis(params.Now)})
	if params.MinuteFiltered() {
		q = q.Where(minuteFilter("log_time", params))
	}

	var n int64
	if err := t.s.getBuilder(ctx, t.tx, &n, q); err != nil {
		return 0, t.fail("count_meter_logs", errors.Wrap(err, "failed to count expired task meter logs"))
	}
	return n, nil
}

func (t *sqlTx) CountTaskMeterLogs(ctx context.Context) (int64, error) {
	var n int64
	err := t.s.getBuilder(ctx, t.tx, &n, t.s.builder.
		Select("COUNT(*)").
		From(tableMeterLogs))
	if err != nil {
		return 0, t.fail("count_meter_logs", errors.Wrap(err, "failed to count task meter logs"))
	}
	return n, nil
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func nullMillis(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullData(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

func chunks(ids []string) [][]string {
	var out [][]string
	for len(ids) > 0 {
		n := len(ids)
		if n > maxInParams {
			n = maxInParams
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

func firstLine(stmt string) string {
	for i, c := range stmt {
		if c == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}
