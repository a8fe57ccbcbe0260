// Package store persists historic records, their byte arrays, root process
// instances and task meter logs.
//
// # Backends
//
//   - MemoryStore: maps guarded by a mutex, with copy-on-begin transactions.
//     Used by tests and the "memory" storage driver.
//   - SQLStore: database/sql through sqlx, statements built with squirrel.
//     Supports modernc.org/sqlite ("sqlite"), mattn/go-sqlite3 ("sqlite3")
//     and PostgreSQL through pgx ("pgx").
//
// # Removal time columns
//
// Every record table carries a nullable removal_time column holding unix
// milliseconds. Bulk statements match on one scope column (root process
// instance, process instance, batch or root decision instance) and only
// touch rows whose removal time is still null, which keeps repeated
// backfills idempotent:
//
//	UPDATE hi_job_log SET removal_time = ?
//	 WHERE id IN (SELECT id FROM hi_job_log
//	               WHERE batch_id = ? AND removal_time IS NULL
//	               ORDER BY id LIMIT 500)
//
// Cleanup selects expired ids ordered by removal time and id, optionally
// restricted to a minute-of-hour window so that several workers can split
// the table without coordination:
//
//	SELECT id FROM hi_detail
//	 WHERE removal_time <= ? AND (removal_time / 60000) % 60 BETWEEN ? AND ?
//	 ORDER BY removal_time, id LIMIT 500
//
// # Optimistic locking
//
// Single-row updates carry the revision read earlier and fail with a
// *history.ConflictError when it no longer matches. Byte array deletes are
// exempt: a byte array may already be gone when its owner is cleaned.
package store
