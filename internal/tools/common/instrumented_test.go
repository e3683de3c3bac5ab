package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/server"
	"github.com/teemow/pillminder/internal/session"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc := server.NewServerContext(context.Background(), nil, nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

// withAudit attaches an audit logger writing text lines to the returned buffer.
func withAudit(t *testing.T, sc *server.ServerContext) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sc.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrumentation.AuditLoggingConfig{Enabled: true}))
	return &buf
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newServerContext(t)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newServerContext(t)
	audit := withAudit(t, sc)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	_, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if !strings.Contains(audit.String(), "tool_failed") {
		t.Errorf("expected audit line for failure, got %q", audit.String())
	}
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc := newServerContext(t)
	audit := withAudit(t, sc)

	// An error result, not a Go error
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected result.IsError to be true")
	}
	line := audit.String()
	if !strings.Contains(line, "tool_failed") || !strings.Contains(line, "error message") {
		t.Errorf("expected failed audit line with the error text, got %q", line)
	}
}

func TestInstrumentedToolHandler_AuditOmitsEmail(t *testing.T) {
	sc := newServerContext(t)
	audit := withAudit(t, sc)

	ctx := session.WithUser(context.Background(), &session.UserInfo{Email: "patient@example.com"})
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	_, err := InstrumentedToolHandler("test_tool", sc, handler)(ctx, mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	line := audit.String()
	if strings.Contains(line, "patient@example.com") {
		t.Errorf("audit line leaked the email: %q", line)
	}
	if !strings.Contains(line, "user_domain=example.com") {
		t.Errorf("expected user domain in audit line, got %q", line)
	}
}

func TestInstrumentedToolHandlerWithService_WithMetrics(t *testing.T) {
	sc := newServerContext(t)

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), false)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	sc.SetMetrics(metrics)
	audit := withAudit(t, sc)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		time.Sleep(1 * time.Millisecond)
		return mcp.NewToolResultText("success"), nil
	}

	wrapped := InstrumentedToolHandlerWithService("reminders_create_event", "calendar", "create", sc, handler)
	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
	line := audit.String()
	if !strings.Contains(line, "service=calendar") || !strings.Contains(line, "operation=create") {
		t.Errorf("expected service and operation in audit line, got %q", line)
	}
}

func TestInstrumentedToolHandlerWithService_ErrorWithMetrics(t *testing.T) {
	sc := newServerContext(t)

	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), true)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	sc.SetMetrics(metrics)

	expectedErr := errors.New("calendar API error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandlerWithService("prescription_schedule", "calendar", "create", sc, handler)
	if _, err := wrapped(context.Background(), mcp.CallToolRequest{}); err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}
