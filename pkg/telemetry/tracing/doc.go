// Package tracing exports OpenTelemetry spans for history backfill and
// cleanup.
//
// Library code opens spans with Start on the global tracer and closes them
// with End, which also records the error status. The binary decides where
// the spans go by calling Setup once at startup:
//
//	shutdown, err := tracing.Setup(ctx, tracing.Config{
//	    Enabled:     true,
//	    Endpoint:    "localhost:4317",
//	    Insecure:    true,
//	    SampleRatio: 0.1,
//	    ServiceName: "chronicle",
//	})
//	defer shutdown(context.Background())
//
// Without Setup the global provider is a no-op and spans cost close to
// nothing. Sampling is parent based: a child span follows its parent and a
// root span is kept with probability SampleRatio.
//
// Span names:
//
//   - cleanup.sweep: one Sweeper.Run
//   - cleanup.kind: one kind of one sweep, child of cleanup.sweep
//   - backfill.<pipeline>: one pass of a backfill pipeline
package tracing
