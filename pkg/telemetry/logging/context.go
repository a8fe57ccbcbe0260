package logging

import (
	"context"
	"log/slog"
)

// Context keys for retention log fields.
type contextKey string

const (
	// RootInstanceIDKey is the context key for root process instance ids.
	RootInstanceIDKey contextKey = "root_instance_id"

	// BatchIDKey is the context key for batch ids.
	BatchIDKey contextKey = "batch_id"

	// ShardKey is the context key for cleanup shards.
	ShardKey contextKey = "shard"
)

// WithRootInstanceID adds a root process instance id to the context.
func WithRootInstanceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RootInstanceIDKey, id)
}

// GetRootInstanceID retrieves the root process instance id from the context.
func GetRootInstanceID(ctx context.Context) string {
	if id, ok := ctx.Value(RootInstanceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithBatchID adds a batch id to the context.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, BatchIDKey, id)
}

// GetBatchID retrieves the batch id from the context.
func GetBatchID(ctx context.Context) string {
	if id, ok := ctx.Value(BatchIDKey).(string); ok {
		return id
	}
	return ""
}

// WithShard adds a cleanup shard ("0-29") to the context.
func WithShard(ctx context.Context, shard string) context.Context {
	return context.WithValue(ctx, ShardKey, shard)
}

// GetShard retrieves the cleanup shard from the context.
func GetShard(ctx context.Context) string {
	if shard, ok := ctx.Value(ShardKey).(string); ok {
		return shard
	}
	return ""
}

// contextAttrs extracts the retention fields present in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id := GetRootInstanceID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(RootInstanceIDKey), id))
	}
	if id := GetBatchID(ctx); id != "" {
		attrs = append(attrs, slog.String(string(BatchIDKey), id))
	}
	if shard := GetShard(ctx); shard != "" {
		attrs = append(attrs, slog.String(string(ShardKey), shard))
	}
	return attrs
}

// contextHandler adds the retention fields of the record's context.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if attrs := contextAttrs(ctx); len(attrs) > 0 {
			r.AddAttrs(attrs...)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
