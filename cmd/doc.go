// Package cmd implements the command-line interface for pillminder.
//
// This package provides the following commands:
//   - serve: Start the HTTP API and MCP server
//   - expand: Print the doses of a prescription file as a table, JSON or ICS
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
package cmd
