package store

import (
	"fmt"

	"mercator-hq/chronicle/pkg/history"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Table names outside the per-kind record tables.
const (
	tableRoots      = "hi_root_instance"
	tableByteArrays = "hi_bytearray"
	tableMeterLogs  = "hi_task_meter_log"
	tableVersion    = "hi_schema_version"
)

// dialect captures the column types that differ between backends.
type dialect struct {
	name    string
	text    string
	integer string
	blob    string
}

var (
	sqliteDialect   = dialect{name: "sqlite", text: "TEXT", integer: "INTEGER", blob: "BLOB"}
	postgresDialect = dialect{name: "postgres", text: "TEXT", integer: "BIGINT", blob: "BYTEA"}
)

// tableFor returns the record table of a kind.
func tableFor(kind history.Kind) string {
	return "hi_" + string(kind)
}

// Schema returns the DDL statements for the given dialect. Times are stored
// as unix milliseconds so that the minute-of-hour filter is plain integer
// arithmetic on every backend.
func (d dialect) Schema() []string {
	var stmts []string

	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version %s PRIMARY KEY,
    applied_at %s NOT NULL
)`, tableVersion, d.integer, d.integer))

	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id %s PRIMARY KEY,
    proc_def_key %s NOT NULL DEFAULT '',
    start_time %s NOT NULL,
    end_time %s,
    ttl_days %s
)`, tableRoots, d.text, d.text, d.integer, d.integer, d.integer))

	for _, kind := range history.Kinds() {
		table := tableFor(kind)
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id %s PRIMARY KEY,
    root_proc_inst_id %s NOT NULL DEFAULT '',
    proc_inst_id %s NOT NULL DEFAULT '',
    batch_id %s NOT NULL DEFAULT '',
    root_decision_inst_id %s NOT NULL DEFAULT '',
    bytearray_id %s NOT NULL DEFAULT '',
    create_time %s NOT NULL,
    removal_time %s,
    rev %s NOT NULL,
    data %s
)`, table, d.text, d.text, d.text, d.text, d.text, d.text, d.integer, d.integer, d.integer, d.text))

		for _, col := range []string{"removal_time", "root_proc_inst_id", "proc_inst_id", "batch_id", "root_decision_inst_id"} {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", table, col, table, col))
		}
	}

	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id %s PRIMARY KEY,
    name %s NOT NULL DEFAULT '',
    content %s,
    owner_kind %s NOT NULL DEFAULT '',
    root_proc_inst_id %s NOT NULL DEFAULT '',
    removal_time %s,
    create_time %s NOT NULL,
    rev %s NOT NULL
)`, tableByteArrays, d.text, d.text, d.blob, d.text, d.text, d.integer, d.integer, d.integer))
	stmts = append(stmts,
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_removal_time ON %s(removal_time)", tableByteArrays, tableByteArrays),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_root_proc_inst_id ON %s(root_proc_inst_id)", tableByteArrays, tableByteArrays),
	)

	stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id %s PRIMARY KEY,
    assignee_hash %s NOT NULL,
    log_time %s NOT NULL
)`, tableMeterLogs, d.text, d.integer, d.integer))
	stmts = append(stmts,
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_log_time ON %s(log_time)", tableMeterLogs, tableMeterLogs),
	)

	return stmts
}
