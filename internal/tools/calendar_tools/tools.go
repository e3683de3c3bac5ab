package calendar_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/server"
	"github.com/teemow/pillminder/internal/tools/common"
)

// RegisterCalendarTools registers the reminder event tools with the MCP
// server. reminders_create_event is skipped in read-only mode.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc.Gateway() == nil {
		return fmt.Errorf("calendar tools need a gateway")
	}

	listEventsTool := mcp.NewTool("reminders_list_events",
		mcp.WithDescription("List upcoming reminder events created by pillminder in the configured calendar, soonest first. Events created by other apps are not included."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listEventsTool, common.InstrumentedToolHandlerWithService("reminders_list_events",
		instrumentation.ServiceCalendar, instrumentation.OperationList, sc, handleListEvents(sc)))

	if readOnly {
		return nil
	}

	createEventTool := mcp.NewTool("reminders_create_event",
		mcp.WithDescription("Create a reminder event in the configured calendar. The event is tagged so it shows up in reminders_list_events."),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event title, e.g. 'Take Amoxicillin 500mg'"),
		),
		mcp.WithString("description",
			mcp.Description("Event description"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time: RFC3339 ('2025-01-15T08:00:00+01:00') or local 'YYYY-MM-DDTHH:MM' interpreted in timeZone"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time, same formats as start; must be after start"),
		),
		mcp.WithString("timeZone",
			mcp.Description("IANA time zone for local times (e.g. 'Europe/Berlin'). Defaults to the server's reminder zone."),
		),
	)
	s.AddTool(createEventTool, common.InstrumentedToolHandlerWithService("reminders_create_event",
		instrumentation.ServiceCalendar, instrumentation.OperationCreate, sc, handleCreateEvent(sc)))

	return nil
}

func handleListEvents(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		events, err := sc.Gateway().ListUpcomingEvents(ctx)
		if err != nil {
			return common.ErrorResult("list events", err)
		}
		return common.JSONResult(events)
	}
}

func handleCreateEvent(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := request.RequireString("summary")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		start, err := request.RequireString("start")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		end, err := request.RequireString("end")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		event, err := sc.Gateway().CreateEvent(ctx, gateway.EventRequest{
			Summary:     summary,
			Description: request.GetString("description", ""),
			Start:       start,
			End:         end,
			TimeZone:    request.GetString("timeZone", ""),
		})
		if err != nil {
			return common.ErrorResult("create event", err)
		}
		return common.JSONResult(event)
	}
}
