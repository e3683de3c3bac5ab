// Package resources provides MCP resources for exposing session data.
// Resources are read-only data sources that MCP clients can fetch: the
// account the current session acts as and the prescriptions saved for it.
//
// Resources are scoped to the session of the request, so each user sees
// only their own prescriptions.
package resources
