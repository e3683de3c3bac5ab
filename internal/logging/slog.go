package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys.
const (
	KeyOperation    = "operation"
	KeyService      = "service"
	KeyAccount      = "account"
	KeyUserHash     = "user_hash"
	KeyStatus       = "status"
	KeyError        = "error"
	KeyTool         = "tool"
	KeyDrug         = "drug"
	KeyPrescription = "prescription_id"
)

// Status values. Kept in sync with the instrumentation package by hand.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger builds the process logger. Unknown formats fall back to text.
func NewLogger(w io.Writer, format string, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

func Drug(name string) slog.Attr {
	return slog.String(KeyDrug, name)
}

func PrescriptionID(id string) slog.Attr {
	return slog.String(KeyPrescription, id)
}

// Err returns the error attribute, or an empty group (omitted by slog) when
// err is nil, so Err(maybeNil) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns "user:<16 hex>" derived from a sha256 of the
// address, or "" for an empty address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns the anonymised user attribute.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken describes a token by length only. Even a prefix of a JWT
// leaks its header.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
