// Package cleanup physically removes historic data whose removal time has
// passed.
//
// A Sweeper runs one pipeline per record kind. Each pipeline selects a batch
// of expired candidates and deletes their byte arrays before the rows
// themselves, all inside one transaction per kind. Batches cascade to the
// job logs and incidents they produced. Task meter logs are not historic
// records and are deleted by timestamp once they are older than the task
// metrics time-to-live.
//
// Work is partitioned by the minute-of-hour of the removal time. Shards
// splits the hour into up to eight disjoint windows, and each Worker owns
// one, so concurrent workers never select the same row.
//
// # Scheduling
//
// A Scheduler either sweeps every shard on a cron schedule or runs one
// continuous worker per shard. Continuous workers back off exponentially
// while sweeps remove fewer rows than the batch size threshold, from 10s up
// to one hour. Both modes honor an optional daily batch window:
//
//	window, _ := cleanup.ParseBatchWindow("22:00", "04:00")
//	sched, err := cleanup.NewScheduler(sweeper, cleanup.SchedulerConfig{
//	    DegreeOfParallelism: 4,
//	    BatchSize:           500,
//	    BatchSizeThreshold:  10,
//	    Window:              window,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	defer sched.Stop()
package cleanup
