// Package common provides shared utilities for MCP tool implementations:
// the session account used for auditing, instrumentation wrappers and
// result helpers.
package common
