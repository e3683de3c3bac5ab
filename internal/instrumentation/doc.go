// Package instrumentation provides OpenTelemetry metrics and tracing for the
// pillminder server.
//
// # Metrics
//
// HTTP:
//   - http_requests_total, http_request_duration_seconds
//
// Google API (one point per provider round trip made by the gateway):
//   - google_api_operations_total, google_api_operation_duration_seconds
//
// Reminders:
//   - reminder_doses_scheduled_total: dose events written by prescription scheduling, by status
//   - reminder_companion_events_total: companion events created for timed tasks, by status
//   - reminder_digest_runs_total: digest job runs, by status
//
// Sessions and tools:
//   - session_token_validations_total: bearer token validations, by result
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// # Tracing
//
// Spans are named tool.<name> for MCP tools and google.<service>.<operation>
// for provider calls.
//
// # Configuration
//
// DefaultConfig reads INSTRUMENTATION_ENABLED, METRICS_EXPORTER (prometheus,
// otlp, stdout), TRACING_EXPORTER (otlp, stdout, none),
// OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_TRACES_SAMPLER_ARG and OTEL_SERVICE_NAME.
//
// A disabled Provider still hands out a usable *Metrics whose methods are
// no-ops, and every recording method is safe on a nil *Metrics, so callers
// never need to check.
package instrumentation
