package gateway

import (
	"fmt"

	"github.com/teemow/pillminder/internal/instrumentation"
)

// AuthenticationError means the caller has no usable Google session.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication required: " + e.Reason
}

// UpstreamError wraps a failed provider call. The gateway never retries.
type UpstreamError struct {
	Service   string
	Operation string
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message(), e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Message is the stable, user-presentable part of the error, without the
// provider's own error text.
func (e *UpstreamError) Message() string {
	return fmt.Sprintf("%s request failed (%s)", serviceDisplayName(e.Service), e.Operation)
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func serviceDisplayName(service string) string {
	switch service {
	case instrumentation.ServiceCalendar:
		return "Google Calendar"
	case instrumentation.ServiceTasks:
		return "Google Tasks"
	}
	return service
}
