package instrumentation

import (
	"testing"
	"time"
)

func TestMetrics_Record(t *testing.T) {
	provider, ctx := newTestProvider(t)
	metrics := provider.Metrics()

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/api/events", 200, 100*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationList, StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceTasks, OperationCreate, StatusError, 50*time.Millisecond)
	metrics.RecordDosesScheduled(ctx, StatusSuccess, 6)
	metrics.RecordDosesScheduled(ctx, StatusError, 0)
	metrics.RecordCompanionEvent(ctx, StatusError)
	metrics.RecordDigestRun(ctx, StatusSuccess)
	metrics.RecordTokenValidation(ctx, ValidationResultFailure)
	metrics.RecordToolInvocation(ctx, "prescription_expand", StatusSuccess, "user@example.com", time.Second)
}

func TestMetrics_NilAndZeroValueAreNoOps(t *testing.T) {
	var nilMetrics *Metrics
	zero := &Metrics{}

	for _, m := range []*Metrics{nilMetrics, zero} {
		m.RecordHTTPRequest(t.Context(), "GET", "/", 200, time.Millisecond)
		m.RecordGoogleAPIOperation(t.Context(), ServiceCalendar, OperationList, StatusSuccess, time.Millisecond)
		m.RecordDosesScheduled(t.Context(), StatusSuccess, 1)
		m.RecordCompanionEvent(t.Context(), StatusSuccess)
		m.RecordDigestRun(t.Context(), StatusSuccess)
		m.RecordTokenValidation(t.Context(), ValidationResultSkipped)
		m.RecordToolInvocation(t.Context(), "tool", StatusSuccess, "", time.Millisecond)
	}
}

func TestExtractUserDomain(t *testing.T) {
	tests := map[string]string{
		"jane@example.com": "example.com",
		"user@gmail.com":   "gmail.com",
		"invalid":          "unknown",
		"":                 "unknown",
		"trailing@":        "unknown",
		"a@b@c":            "unknown",
	}
	for email, want := range tests {
		if got := ExtractUserDomain(email); got != want {
			t.Errorf("ExtractUserDomain(%q) = %q, want %q", email, got, want)
		}
	}
}
