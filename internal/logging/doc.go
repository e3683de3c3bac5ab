// Package logging holds the slog conventions shared by pillminder packages:
// attribute keys, PII-safe helpers and the process logger setup.
//
//	logger := logging.WithService(slog.Default(), "calendar")
//	logger.Warn("provider call failed",
//	    logging.Operation("list"),
//	    logging.UserHash(email),
//	    logging.Err(err))
//
// Emails are hashed before they reach a log line and bearer tokens are only
// ever logged through SanitizeToken.
package logging
