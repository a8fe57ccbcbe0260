// Package removaltime computes when historic data becomes eligible for
// deletion.
//
// # Strategies
//
//   - none:  no removal time is ever computed
//   - start: removal time = instance start + history time-to-live days,
//     resolvable as soon as the instance starts
//   - end:   removal time = instance end + history time-to-live days,
//     unknown while the instance is running (default)
//
// A missing time-to-live always means "retain forever", regardless of the
// strategy. Standalone decision evaluations and batches use their own
// time-to-live and their own evaluation or creation time; they never inherit
// a process root.
//
// # Basic Usage
//
//	strategy, err := removaltime.ParseStrategy(cfg.History.RemovalTimeStrategy)
//	if err != nil {
//	    return err // fatal configuration error
//	}
//	provider := removaltime.NewDefaultProvider(strategy)
//
//	if t := provider.ForRoot(root); t != nil {
//	    // stamp dependent records with *t
//	}
package removaltime
