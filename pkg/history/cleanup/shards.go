package cleanup

import "fmt"

// MaxDegreeOfParallelism is the largest number of minute shards.
const MaxDegreeOfParallelism = 8

// Shard is a minute-of-hour window owned by one cleanup worker.
type Shard struct {
	MinuteFrom int
	MinuteTo   int
}

// String implements fmt.Stringer.
func (s Shard) String() string {
	return fmt.Sprintf("%d-%d", s.MinuteFrom, s.MinuteTo)
}

// Params returns sweep params for the shard.
func (s Shard) Params(batchSize int) Params {
	return Params{MinuteFrom: s.MinuteFrom, MinuteTo: s.MinuteTo, BatchSize: batchSize}
}

// Shards splits the hour into degree disjoint minute windows of 60/degree
// minutes each. The last window absorbs the remainder, so degree 8 yields
// 0-6, 7-13, ..., 49-59.
func Shards(degree int) ([]Shard, error) {
	if degree < 1 || degree > MaxDegreeOfParallelism {
		return nil, fmt.Errorf("degree of parallelism must be between 1 and %d, got %d", MaxDegreeOfParallelism, degree)
	}

	size := 60 / degree
	shards := make([]Shard, degree)
	for i := range shards {
		shards[i] = Shard{MinuteFrom: i * size, MinuteTo: (i+1)*size - 1}
	}
	shards[degree-1].MinuteTo = 59
	return shards, nil
}
