// Package propagation keeps the removal time of historic records in sync
// with the retention policy.
//
// Two paths write removal times:
//
//   - Eager: when a record is created its owner (root process instance,
//     batch or root decision instance) is looked up and, if the owner's
//     removal time is already resolvable, the record is stamped before it is
//     inserted. This runs inside the creating transaction.
//   - Lazy: when a root process instance or batch ends under the END
//     strategy, a backfill pipeline issues one bulk UPDATE per dependent
//     table, guarded by removal_time IS NULL. Byte arrays are updated by a
//     separate statement per owning kind.
//
// Pipelines are plain step lists (see RootPipeline and BatchPipeline) so the
// statement order can be reviewed and tested. With a batch size configured
// each step is capped and a Report signals when another pass is needed.
//
// Authorizations on historic process instances and tasks re-derive their
// root and removal time from the resource id on every save.
package propagation
