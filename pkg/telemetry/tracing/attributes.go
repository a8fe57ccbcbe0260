package tracing

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys. Custom keys use the "chronicle.*" namespace.
const (
	AttrKind        = "chronicle.kind"
	AttrPipeline    = "chronicle.pipeline"
	AttrScopeID     = "chronicle.scope.id"
	AttrRows        = "chronicle.rows"
	AttrComplete    = "chronicle.complete"
	AttrMinuteFrom  = "chronicle.minute.from"
	AttrMinuteTo    = "chronicle.minute.to"
	AttrBatchSize   = "chronicle.batch_size"
	AttrMore        = "chronicle.more"
	AttrRemovalTime = "chronicle.removal_time"
)

// Kind tags a span with the history kind it works on.
func Kind(kind string) attribute.KeyValue {
	return attribute.String(AttrKind, kind)
}

// Pipeline tags a span with a backfill pipeline name.
func Pipeline(name string) attribute.KeyValue {
	return attribute.String(AttrPipeline, name)
}

// ScopeID tags a span with the owner a pipeline is scoped to.
func ScopeID(id string) attribute.KeyValue {
	return attribute.String(AttrScopeID, id)
}

// Rows tags a span with the number of rows touched.
func Rows(n int64) attribute.KeyValue {
	return attribute.Int64(AttrRows, n)
}

// MinuteWindow tags a span with a cleanup minute window.
func MinuteWindow(from, to int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrMinuteFrom, from),
		attribute.Int(AttrMinuteTo, to),
	}
}
