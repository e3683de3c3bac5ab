package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrAccount   = "account"
)

var (
	httpBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	callBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
)

// Metrics provides methods for recording observability metrics.
// The zero value and a nil *Metrics are both valid no-op recorders.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	dosesScheduledTotal  metric.Int64Counter
	companionEventsTotal metric.Int64Counter
	digestRunsTotal      metric.Int64Counter

	tokenValidationsTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}
	b := instrumentBuilder{meter: meter}

	m.httpRequestsTotal = b.counter("http_requests_total", "Total number of HTTP requests", "{request}")
	m.httpRequestDuration = b.histogram("http_request_duration_seconds", "HTTP request duration in seconds", httpBuckets)

	m.googleAPIOperationsTotal = b.counter("google_api_operations_total", "Total number of Google API operations", "{operation}")
	m.googleAPIOperationDuration = b.histogram("google_api_operation_duration_seconds", "Google API operation duration in seconds", callBuckets)

	m.dosesScheduledTotal = b.counter("reminder_doses_scheduled_total", "Dose reminder events written to the calendar", "{event}")
	m.companionEventsTotal = b.counter("reminder_companion_events_total", "Companion calendar events created for timed tasks", "{event}")
	m.digestRunsTotal = b.counter("reminder_digest_runs_total", "Daily dose digest runs", "{run}")

	m.tokenValidationsTotal = b.counter("session_token_validations_total", "Bearer token validations against the identity provider", "{validation}")

	m.toolInvocationsTotal = b.counter("mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}")
	m.toolDuration = b.histogram("mcp_tool_duration_seconds", "MCP tool execution duration in seconds", callBuckets)

	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// instrumentBuilder keeps the first creation error so NewMetrics can read
// as a flat list of instruments.
type instrumentBuilder struct {
	meter metric.Meter
	err   error
}

func (b *instrumentBuilder) counter(name, description, unit string) metric.Int64Counter {
	if b.err != nil {
		return nil
	}
	c, err := b.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.err = fmt.Errorf("failed to create %s counter: %w", name, err)
	}
	return c
}

func (b *instrumentBuilder) histogram(name, description string, buckets []float64) metric.Float64Histogram {
	if b.err != nil {
		return nil
	}
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		b.err = fmt.Errorf("failed to create %s histogram: %w", name, err)
	}
	return h
}

// RecordHTTPRequest records an HTTP request with method, route template,
// status code and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGoogleAPIOperation records one provider round trip.
//
// Parameters:
//   - service: ServiceCalendar or ServiceTasks
//   - operation: OperationList, OperationCreate, ...
//   - status: StatusSuccess or StatusError
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDosesScheduled counts dose events written by prescription scheduling.
func (m *Metrics) RecordDosesScheduled(ctx context.Context, status string, count int) {
	if m == nil || m.dosesScheduledTotal == nil || count <= 0 {
		return
	}
	m.dosesScheduledTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordCompanionEvent counts a companion event attempt for a timed task.
func (m *Metrics) RecordCompanionEvent(ctx context.Context, status string) {
	if m == nil || m.companionEventsTotal == nil {
		return
	}
	m.companionEventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordDigestRun counts a digest job run.
func (m *Metrics) RecordDigestRun(ctx context.Context, status string) {
	if m == nil || m.digestRunsTotal == nil {
		return
	}
	m.digestRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordTokenValidation records a bearer token validation result
// (ValidationResultSuccess, ValidationResultFailure or ValidationResultSkipped).
func (m *Metrics) RecordTokenValidation(ctx context.Context, result string) {
	if m == nil || m.tokenValidationsTotal == nil {
		return
	}
	m.tokenValidationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation. The account label is
// only attached when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, account))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
