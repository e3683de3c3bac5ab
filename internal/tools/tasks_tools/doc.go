// Package tasks_tools provides MCP tools for reminder tasks in Google Tasks.
//
// # Available Tools
//
//   - reminders_list_tasks: List incomplete tasks in the configured list
//   - reminders_create_task: Create a task, with a companion calendar event
//     when the due value carries a time of day
//   - reminders_complete_task: Complete one or more tasks
//
// reminders_create_task and reminders_complete_task are not registered in
// read-only mode.
package tasks_tools
