package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := withSpanRecorder(t)

	ctx, span := StartGoogleAPISpan(context.Background(), ServiceCalendar, OperationList)
	if GetTraceID(ctx) == "" || GetSpanID(ctx) == "" {
		t.Error("expected valid trace and span ids")
	}
	SetSpanError(span, errors.New("quota exceeded"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	got := ended[0]
	if got.Name() != "google.calendar.list" {
		t.Errorf("span name = %q", got.Name())
	}
	if got.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v", got.SpanKind())
	}
	if got.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", got.Status().Code)
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := withSpanRecorder(t)

	_, span := StartToolSpan(context.Background(), "prescription_schedule")
	SetSpanSuccess(span)
	SetSpanError(span, nil)
	span.End()

	got := recorder.Ended()[0]
	if got.Name() != "tool.prescription_schedule" {
		t.Errorf("span name = %q", got.Name())
	}
	if got.Status().Code != codes.Ok {
		t.Errorf("status = %v, want ok", got.Status().Code)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
