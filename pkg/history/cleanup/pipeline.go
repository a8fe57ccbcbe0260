package cleanup

import (
	"context"

	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/store"
)

// Step deletes the rows of one table that belong to a set of expired
// candidate ids. Steps run in order inside one transaction.
type Step struct {
	Name string
	Run  func(ctx context.Context, tx store.Tx, ids []string) (int64, error)
}

// Pipeline is the ordered list of delete steps for one candidate kind.
type Pipeline struct {
	Kind  history.Kind
	Steps []Step
}

// Pipelines returns the cleanup pipelines for every historic record kind
// in dependency-safe order, followed by the batch pipeline and finally the
// byte array pipeline. The byte array pipeline removes expired byte arrays
// whose owners were deleted without them.
func Pipelines() []Pipeline {
	var out []Pipeline
	for _, k := range history.Kinds() {
		if k == history.KindBatch {
			out = append(out, batchPipeline())
			continue
		}
		out = append(out, kindPipeline(k))
	}
	return append(out, byteArrayPipeline())
}

// byteArrayPipeline deletes byte arrays by their own removal time.
func byteArrayPipeline() Pipeline {
	return Pipeline{
		Kind:  history.KindByteArray,
		Steps: []Step{deleteRows(history.KindByteArray, string(history.KindByteArray))},
	}
}

// kindPipeline deletes a kind's byte arrays before its rows.
func kindPipeline(kind history.Kind) Pipeline {
	p := Pipeline{Kind: kind}
	if kind.OwnsByteArrays() {
		p.Steps = append(p.Steps, deleteByteArrays(kind, string(kind)+".bytearray"))
	}
	p.Steps = append(p.Steps, deleteRows(kind, string(kind)))
	return p
}

// batchPipeline deletes the incidents and job logs of expired batches, then
// the batches.
func batchPipeline() Pipeline {
	return Pipeline{
		Kind: history.KindBatch,
		Steps: []Step{
			byBatch(history.KindIncident, deleteRows(history.KindIncident, "incident.by_batch")),
			byBatch(history.KindJobLog, deleteByteArrays(history.KindJobLog, "job_log.bytearray.by_batch")),
			byBatch(history.KindJobLog, deleteRows(history.KindJobLog, "job_log.by_batch")),
			deleteRows(history.KindBatch, string(history.KindBatch)),
		},
	}
}

func deleteByteArrays(owner history.Kind, name string) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context, tx store.Tx, ids []string) (int64, error) {
			return tx.DeleteByteArraysOf(ctx, owner, ids)
		},
	}
}

func deleteRows(kind history.Kind, name string) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context, tx store.Tx, ids []string) (int64, error) {
			return tx.DeleteByIDs(ctx, kind, ids)
		},
	}
}

// byBatch maps batch ids to the ids of kind's rows in those batches before
// running inner.
func byBatch(kind history.Kind, inner Step) Step {
	return Step{
		Name: inner.Name,
		Run: func(ctx context.Context, tx store.Tx, batchIDs []string) (int64, error) {
			ids, err := tx.SelectIDsByBatch(ctx, kind, batchIDs)
			if err != nil || len(ids) == 0 {
				return 0, err
			}
			return inner.Run(ctx, tx, ids)
		},
	}
}
