package removaltime

import "fmt"

// BatchTimeToLive resolves the history time-to-live of batches by batch
// type. Batches do not inherit a process definition's time-to-live.
type BatchTimeToLive struct {
	Default *int
	PerType map[string]int
}

// NewBatchTimeToLive parses the default and per-type time-to-live strings
// (plain days or PnD).
func NewBatchTimeToLive(def string, perType map[string]string) (*BatchTimeToLive, error) {
	d, err := ParseTimeToLive(def)
	if err != nil {
		return nil, fmt.Errorf("batch operation default time to live: %w", err)
	}

	b := &BatchTimeToLive{Default: d, PerType: make(map[string]int, len(perType))}
	for typ, raw := range perType {
		v, err := ParseTimeToLive(raw)
		if err != nil {
			return nil, fmt.Errorf("batch operation time to live for %q: %w", typ, err)
		}
		if v != nil {
			b.PerType[typ] = *v
		}
	}
	return b, nil
}

// For returns the time-to-live for a batch type, falling back to the
// default. A nil result means batches of this type are kept forever.
func (b *BatchTimeToLive) For(batchType string) *int {
	if b == nil {
		return nil
	}
	if v, ok := b.PerType[batchType]; ok {
		return &v
	}
	return b.Default
}
