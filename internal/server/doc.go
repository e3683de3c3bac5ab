// Package server provides the HTTP surface of pillminder.
//
// # Key Components
//
// ServerContext carries the gateway, the prescription store, the optional
// feed signer and the instrumentation shared by the HTTP API and the MCP
// tools.
//
// NewRouter mounts:
//   - the JSON API under /api (bearer session required except for expand)
//   - public ICS subscription feeds under /feeds/{token}/calendar.ics
//   - the MCP streamable HTTP endpoint at /mcp
//   - Kubernetes health probes (/healthz, /readyz, /healthz/detailed)
//
// HTTPServer runs the router with graceful shutdown. MetricsServer exposes
// Prometheus metrics on a dedicated port.
//
// # Error Responses
//
// API errors use the OAuth error shape {"error": ..., "error_description": ...}
// with status 401 for a missing or rejected session, 400 for invalid input,
// 404 for unknown prescriptions and 502 when Google rejects a request.
package server
