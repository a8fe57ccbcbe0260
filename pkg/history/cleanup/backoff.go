package cleanup

import "time"

// Backoff delays the next sweep after runs that removed little. A run
// removing fewer rows than Threshold is empty; consecutive empty runs double
// the delay from Base up to Max. A productive run resets it.
type Backoff struct {
	Base      time.Duration
	Max       time.Duration
	Threshold int64

	emptyRuns int
}

// Default backoff bounds.
const (
	DefaultBackoffBase = 10 * time.Second
	DefaultBackoffMax  = time.Hour
)

// NewBackoff creates a backoff with the default bounds.
func NewBackoff(threshold int64) *Backoff {
	return &Backoff{Base: DefaultBackoffBase, Max: DefaultBackoffMax, Threshold: threshold}
}

// Next returns the delay before the next sweep given the rows removed by
// the last one.
func (b *Backoff) Next(removed int64) time.Duration {
	if removed >= b.Threshold && removed > 0 {
		b.emptyRuns = 0
		return 0
	}

	delay := b.Max
	if b.emptyRuns < 32 {
		if d := b.Base << uint(b.emptyRuns); d > 0 && d < b.Max {
			delay = d
		}
	}
	b.emptyRuns++
	return delay
}

// Reset clears the empty-run count.
func (b *Backoff) Reset() {
	b.emptyRuns = 0
}
