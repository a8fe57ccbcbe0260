// Package history defines the historic record model shared by the retention
// engine: the closed set of record kinds, the HistoricRecord contract, the
// row codec used by store backends, and the error types surfaced by the
// propagation and cleanup layers.
//
// # Architecture
//
// The retention engine consists of four layers:
//
//  1. Removal-time policy - computes when data expires (removaltime)
//  2. Entity store - persists rows, byte arrays and root instances (store)
//  3. Propagator - stamps and backfills removal times (propagation, bytearray)
//  4. Sweeper - deletes expired rows in bounded batches (cleanup)
//
// # Record Lifecycle
//
// Historic records are created once by the execution engine. The retention
// engine only ever writes their removal time (and root reference), until the
// sweeper physically deletes them:
//
//	Execution engine → Propagator (eager stamp) → Store
//	     ↓
//	Root instance ends → Propagator (scoped backfill, one statement per kind)
//	     ↓
//	Sweeper (cron) → SelectExpired → delete byte arrays → delete rows
//
// # Removal Time
//
// A removal time is either nil (unknown yet, or retention disabled) or equal
// to trigger time + history time-to-live days. Once set it only changes back
// to nil when the record is disconnected from its root, which today only
// happens for authorizations widened to the "*" resource.
package history
