// Package batch provides helpers for MCP tools that act on several ids in
// one call: parsing string-or-array arguments, running the operation per
// id with partial failures, and summarising the outcome.
package batch
