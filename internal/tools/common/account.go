package common

import (
	"context"

	"github.com/teemow/pillminder/internal/session"
)

// AnonymousAccount labels invocations that carry no session.
const AnonymousAccount = "anonymous"

// AccountFromContext returns the account key used for audit and metrics.
//
// Priority order:
//  1. Validated user email (set by the session middleware)
//  2. session.DefaultAccount for an unvalidated bearer token
//  3. AnonymousAccount
func AccountFromContext(ctx context.Context) string {
	if account := session.Account(ctx); account != "" {
		return account
	}
	return AnonymousAccount
}

// UserEmail returns the validated user email, or "" without one.
func UserEmail(ctx context.Context) string {
	if user, ok := session.UserFromContext(ctx); ok {
		return user.Email
	}
	return ""
}
