package tasks_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/server"
	"github.com/teemow/pillminder/internal/tasks"
	"github.com/teemow/pillminder/internal/tools/batch"
	"github.com/teemow/pillminder/internal/tools/common"
)

// RegisterTasksTools registers the reminder task tools with the MCP server.
// Write tools are skipped in read-only mode.
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc.Gateway() == nil {
		return fmt.Errorf("tasks tools need a gateway")
	}

	listTasksTool := mcp.NewTool("reminders_list_tasks",
		mcp.WithDescription("List incomplete tasks in the configured task list"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listTasksTool, common.InstrumentedToolHandlerWithService("reminders_list_tasks",
		instrumentation.ServiceTasks, instrumentation.OperationList, sc, handleListTasks(sc)))

	if readOnly {
		return nil
	}

	createTaskTool := mcp.NewTool("reminders_create_task",
		mcp.WithDescription("Create a task. When due includes a time of day, a tagged 15-minute calendar event with a popup reminder is created alongside it."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title"),
		),
		mcp.WithString("notes",
			mcp.Description("Task notes"),
		),
		mcp.WithString("due",
			mcp.Description("Due date 'YYYY-MM-DD', or a time 'YYYY-MM-DDTHH:MM' / RFC3339 to also get a calendar reminder"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for a local due time. Defaults to the server's reminder zone."),
		),
	)
	s.AddTool(createTaskTool, common.InstrumentedToolHandlerWithService("reminders_create_task",
		instrumentation.ServiceTasks, instrumentation.OperationCreate, sc, handleCreateTask(sc)))

	completeTaskTool := mcp.NewTool("reminders_complete_task",
		mcp.WithDescription("Mark one or more tasks as completed (e.g. a dose was taken)"),
		mcp.WithArray("taskIds",
			mcp.Required(),
			mcp.Description(fmt.Sprintf("Task ID or array of task IDs (at most %d)", batch.MaxItems)),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
	s.AddTool(completeTaskTool, common.InstrumentedToolHandlerWithService("reminders_complete_task",
		instrumentation.ServiceTasks, instrumentation.OperationComplete, sc, handleCompleteTasks(sc)))

	return nil
}

func handleListTasks(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		items, err := sc.Gateway().ListUpcomingTasks(ctx)
		if err != nil {
			return common.ErrorResult("list tasks", err)
		}
		return common.JSONResult(items)
	}
}

func handleCreateTask(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := request.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := sc.Gateway().CreateTask(ctx, gateway.TaskRequest{
			Title:    title,
			Notes:    request.GetString("notes", ""),
			Due:      request.GetString("due", ""),
			TimeZone: request.GetString("timeZone", ""),
		})
		if err != nil {
			return common.ErrorResult("create task", err)
		}
		return common.JSONResult(result)
	}
}

func handleCompleteTasks(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := batch.ParseStringOrArray(request.GetArguments()["taskIds"], "taskIds")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(ids) > batch.MaxItems {
			return mcp.NewToolResultError(fmt.Sprintf("at most %d taskIds per call", batch.MaxItems)), nil
		}

		gw := sc.Gateway()
		results := batch.Process(ctx, ids, func(ctx context.Context, id string) (*tasks.Task, error) {
			return gw.CompleteTask(ctx, id)
		})

		summary := batch.Summarize(results)
		if summary.Successful == 0 {
			result, _ := common.JSONResult(summary)
			result.IsError = true
			return result, nil
		}
		return common.JSONResult(summary)
	}
}
