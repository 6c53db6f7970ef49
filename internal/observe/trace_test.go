package observe

import (
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// withRecordingTracer installs an in-memory span recorder as the global
// tracer provider for the duration of the test. Tests using it must not run
// in parallel.
func withRecordingTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestStartSpanRecordsNamedSpan(t *testing.T) {
	rec := withRecordingTracer(t)

	ctx, span := StartSpan(context.Background(), "voice.turn")
	if cid := CorrelationID(ctx); cid == "" {
		t.Error("no correlation id inside an active span")
	}
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded spans = %d, want 1", len(spans))
	}
	if got := spans[0].Name(); got != "voice.turn" {
		t.Errorf("span name = %q", got)
	}
}

func TestCorrelationIDEmptyWithoutSpan(t *testing.T) {
	if cid := CorrelationID(context.Background()); cid != "" {
		t.Errorf("correlation id = %q, want empty", cid)
	}
}

func TestLoggerEnrichedOnlyInsideSpan(t *testing.T) {
	if got := Logger(context.Background()); got != slog.Default() {
		t.Error("bare context must yield the default logger unchanged")
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	if got := Logger(ctx); got == slog.Default() {
		t.Error("span context must yield a trace-enriched logger")
	}
}
