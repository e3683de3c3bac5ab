package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with metrics and audit logging.
// It records tool invocation metrics and logs the invocation for audit purposes.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return instrument(toolName, "", "", sc, handler)
}

// InstrumentedToolHandlerWithService is like InstrumentedToolHandler but also
// tags the audit record with the Google service and operation the tool
// drives. Provider call metrics are recorded by the gateway itself.
func InstrumentedToolHandlerWithService(toolName, serviceName, operation string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return instrument(toolName, serviceName, operation, sc, handler)
}

func instrument(toolName, serviceName, operation string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// Get metrics and audit logger (may be nil if not configured)
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		start := time.Now()
		account := AccountFromContext(ctx)
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithAccount(account).
			WithUser(UserEmail(ctx))
		if serviceName != "" {
			invocation.WithService(serviceName, operation)
		}

		result, err := handler(ctx, request)

		// An error result counts as a failed invocation even without a Go error.
		switch {
		case err != nil:
			invocation.Complete(err)
		case result != nil && result.IsError:
			invocation.Complete(errorResultText(result))
		default:
			invocation.Complete(nil)
		}

		metrics.RecordToolInvocation(ctx, toolName, invocation.Status(), account, time.Since(start))

		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

type toolError string

func (e toolError) Error() string { return string(e) }

func errorResultText(result *mcp.CallToolResult) error {
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			return toolError(text.Text)
		}
	}
	return toolError("tool returned an error result")
}
