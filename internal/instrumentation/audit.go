package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// ToolInvocation is the audit record for one MCP tool call.
//
// UserEmail is PII. It is only written out when the AuditLogger is
// configured with IncludePII; otherwise the domain is logged instead.
type ToolInvocation struct {
	Tool      string
	UserEmail string
	Account   string

	ServiceName string
	Operation   string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts timing a tool invocation.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithUser sets the authenticated user's email.
func (ti *ToolInvocation) WithUser(email string) *ToolInvocation {
	ti.UserEmail = email
	return ti
}

// WithAccount sets the session account key.
func (ti *ToolInvocation) WithAccount(account string) *ToolInvocation {
	ti.Account = account
	return ti
}

// WithService sets the Google service and operation the tool drives.
func (ti *ToolInvocation) WithService(serviceName, operation string) *ToolInvocation {
	ti.ServiceName = serviceName
	ti.Operation = operation
	return ti
}

// WithSpanContext copies trace and span IDs from the span in ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete stops the timer. A nil err marks the invocation successful.
func (ti *ToolInvocation) Complete(err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the structured fields for ti. With includePII the full
// email is logged as "user", otherwise only "user_domain".
func (ti *ToolInvocation) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{slog.String("tool", ti.Tool)}
	if includePII {
		attrs = append(attrs, slog.String("user", ti.UserEmail))
	} else {
		attrs = append(attrs, slog.String("user_domain", ExtractUserDomain(ti.UserEmail)))
	}
	attrs = append(attrs,
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	)

	optional := []struct{ key, value string }{
		{"service", ti.ServiceName},
		{"operation", ti.Operation},
		{"trace_id", ti.TraceID},
		{"span_id", ti.SpanID},
		{"error", ti.Error},
	}
	if includePII {
		optional = append(optional, struct{ key, value string }{"account", ti.Account})
	}
	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, slog.String(o.key, o.value))
		}
	}
	return attrs
}

// AuditLogger writes one log line per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs ti at INFO on success and WARN on failure.
// Safe on a nil receiver.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	level := slog.LevelInfo
	msg := "tool_executed"
	if !ti.Success {
		level = slog.LevelWarn
		msg = "tool_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, ti.LogAttrs(al.includePII)...)
}
