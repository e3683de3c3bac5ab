// Package calendar_tools provides MCP tools for reminder events in Google
// Calendar.
//
// # Available Tools
//
//   - reminders_list_events: List upcoming events created by pillminder
//   - reminders_create_event: Create a tagged reminder event
//
// # Authentication
//
// Tools act on behalf of the caller's Google session. Over streamable HTTP
// the bearer token of the request is used; over stdio the token comes from
// the GOOGLE_ACCESS_TOKEN environment variable. Without a session the tools
// return an authentication error.
package calendar_tools
