package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installRecorder routes the global tracer provider into a span recorder for
// the duration of the test.
func installRecorder(t *testing.T, ratio float64) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider, err := NewProvider(Config{ServiceName: "chronicle-test", Version: "test", SampleRatio: ratio},
		sdktrace.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Expected no-op shutdown, got %v", err)
	}
}

func TestSetup_InvalidRatio(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.5} {
		if _, err := Setup(context.Background(), Config{Enabled: true, Endpoint: "localhost:4317", SampleRatio: ratio}); err == nil {
			t.Errorf("Expected error for sample ratio %v", ratio)
		}
	}
}

func TestStart_RecordsSpan(t *testing.T) {
	recorder := installRecorder(t, 1)

	ctx, span := Start(context.Background(), "cleanup.sweep", Kind("task_instance"), Rows(3))
	if TraceID(ctx) == "" {
		t.Error("Expected trace ID in span context")
	}
	End(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name() != "cleanup.sweep" {
		t.Errorf("Expected span name cleanup.sweep, got %s", got.Name())
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("Expected status Ok, got %v", got.Status().Code)
	}
	if got.InstrumentationScope().Name != InstrumentationName {
		t.Errorf("Expected instrumentation %s, got %s", InstrumentationName, got.InstrumentationScope().Name)
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[AttrKind].AsString() != "task_instance" {
		t.Errorf("Expected kind attribute task_instance, got %q", attrs[AttrKind].AsString())
	}
	if attrs[AttrRows].AsInt64() != 3 {
		t.Errorf("Expected rows attribute 3, got %d", attrs[AttrRows].AsInt64())
	}
}

func TestEnd_RecordsError(t *testing.T) {
	recorder := installRecorder(t, 1)

	_, span := Start(context.Background(), "backfill.root")
	End(span, errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("Expected status Error, got %v", spans[0].Status().Code)
	}
	if spans[0].Status().Description != "boom" {
		t.Errorf("Expected description boom, got %q", spans[0].Status().Description)
	}
	if len(spans[0].Events()) != 1 {
		t.Errorf("Expected 1 exception event, got %d", len(spans[0].Events()))
	}
}

func TestNewProvider_ZeroRatioDropsRootSpans(t *testing.T) {
	recorder := installRecorder(t, 0)

	ctx, span := Start(context.Background(), "cleanup.sweep")
	End(span, nil)

	if len(recorder.Ended()) != 0 {
		t.Errorf("Expected no recorded spans, got %d", len(recorder.Ended()))
	}
	if TraceID(ctx) == "" {
		t.Error("Expected unsampled span to still carry a trace ID")
	}
}

func TestTraceID_NoSpan(t *testing.T) {
	if id := TraceID(context.Background()); id != "" {
		t.Errorf("Expected empty trace ID, got %q", id)
	}
}

func TestMinuteWindow(t *testing.T) {
	attrs := MinuteWindow(5, 10)
	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != AttrMinuteFrom || attrs[0].Value.AsInt64() != 5 {
		t.Errorf("Expected %s=5, got %s=%d", AttrMinuteFrom, attrs[0].Key, attrs[0].Value.AsInt64())
	}
	if attrs[1].Key != AttrMinuteTo || attrs[1].Value.AsInt64() != 10 {
		t.Errorf("Expected %s=10, got %s=%d", AttrMinuteTo, attrs[1].Key, attrs[1].Value.AsInt64())
	}
}
