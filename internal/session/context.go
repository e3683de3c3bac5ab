package session

import (
	"context"

	"golang.org/x/oauth2"
)

type contextKey int

const (
	tokenContextKey contextKey = iota
	userContextKey
	localContextKey
)

// DefaultAccount names a session whose token was accepted without a
// validated identity.
const DefaultAccount = "default"

// WithToken returns a copy of ctx carrying token.
func WithToken(ctx context.Context, token *oauth2.Token) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// TokenFromContext returns the session token. It reports false when there
// is no token or the access token is empty.
func TokenFromContext(ctx context.Context) (*oauth2.Token, bool) {
	token, ok := ctx.Value(tokenContextKey).(*oauth2.Token)
	if !ok || token == nil || token.AccessToken == "" {
		return nil, false
	}
	return token, true
}

// WithLocalSession marks ctx as the session of the single local user of this
// process, e.g. a stdio client. Only local sessions own data under
// DefaultAccount.
func WithLocalSession(ctx context.Context) context.Context {
	return context.WithValue(ctx, localContextKey, true)
}

// IsLocalSession reports whether ctx was marked with WithLocalSession.
func IsLocalSession(ctx context.Context) bool {
	local, _ := ctx.Value(localContextKey).(bool)
	return local
}

// WithUser returns a copy of ctx carrying the validated identity.
func WithUser(ctx context.Context, user *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the validated identity, if any.
func UserFromContext(ctx context.Context) (*UserInfo, bool) {
	user, ok := ctx.Value(userContextKey).(*UserInfo)
	if !ok || user == nil || user.Email == "" {
		return nil, false
	}
	return user, true
}

// Account returns the account key for ctx: the validated email,
// DefaultAccount for an unvalidated token, or "" without a session.
func Account(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user.Email
	}
	if _, ok := TokenFromContext(ctx); ok {
		return DefaultAccount
	}
	return ""
}

// Owner returns the key saved data of ctx is stored under: the validated
// email, or DefaultAccount for a local session with a token. Unvalidated
// remote tokens own nothing, so it returns "" for them.
func Owner(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user.Email
	}
	if _, ok := TokenFromContext(ctx); ok && IsLocalSession(ctx) {
		return DefaultAccount
	}
	return ""
}
