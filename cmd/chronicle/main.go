// Chronicle keeps the history of a BPMN process engine bounded.
//
// It stamps historic records with the time they become removable and
// physically deletes them once that time has passed:
//   - Removal time backfill when root process instances and batches end
//   - Scheduled or continuous cleanup sharded by minute of the hour
//   - Task meter log cleanup by time-to-live
//   - Prometheus metrics, OpenTelemetry spans and health probes
//
// Usage:
//
//	# Run the cleanup daemon
//	chronicle run --config chronicle.yaml
//
//	# Remove everything that is expired now
//	chronicle cleanup --until-done
//
//	# Backfill the removal time of an ended root process instance
//	chronicle backfill root 8f14e45f --end 2024-03-02T17:30:00Z
//
//	# Check a configuration file
//	chronicle config validate --config chronicle.yaml
package main

func main() {
	Execute()
}
