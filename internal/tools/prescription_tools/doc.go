// Package prescription_tools provides MCP tools that turn a prescription
// into dose reminders.
//
// # Available Tools
//
//   - prescription_expand: Expand a prescription into its dose schedule
//   - prescription_from_medicines: Build prescriptions from medicines read off a label
//   - prescription_list: List saved prescriptions (when the store is enabled)
//   - prescription_schedule: Create one calendar reminder per dose
//
// prescription_expand needs no Google session. prescription_schedule is not
// registered in read-only mode.
package prescription_tools
