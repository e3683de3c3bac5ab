package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/teemow/pillminder/internal/feed"
	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/logging"
	"github.com/teemow/pillminder/internal/prescription"
	"github.com/teemow/pillminder/internal/session"
	"github.com/teemow/pillminder/internal/store"
)

// Error codes used in API error responses.
const (
	ErrorCodeUnauthorized   = "unauthorized"
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeUpstream       = "upstream_error"
	ErrorCodeNotImplemented = "not_implemented"
	ErrorCodeInternal       = "internal_error"
)

// writeError maps err to an HTTP status and writes the JSON error body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		authErr     *gateway.AuthenticationError
		validErr    *gateway.ValidationError
		upstreamErr *gateway.UpstreamError
		fieldErr    *prescription.FieldError
	)

	switch {
	case errors.As(err, &authErr):
		w.Header().Set("WWW-Authenticate", `Bearer realm="pillminder"`)
		session.WriteError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, authErr.Error())
	case errors.Is(err, feed.ErrInvalidToken):
		session.WriteError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "The feed link is invalid or has expired.")
	case errors.As(err, &validErr):
		session.WriteError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, validErr.Error())
	case errors.As(err, &fieldErr):
		session.WriteError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		session.WriteError(w, http.StatusNotFound, ErrorCodeNotFound, err.Error())
	case errors.As(err, &upstreamErr):
		session.WriteError(w, http.StatusBadGateway, ErrorCodeUpstream, upstreamErr.Message())
	default:
		logger.Error("Request failed", logging.Err(err))
		session.WriteError(w, http.StatusInternalServerError, ErrorCodeInternal, "An internal error occurred.")
	}
}

// badRequest writes a 400 with description.
func badRequest(w http.ResponseWriter, description string) {
	session.WriteError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, description)
}
