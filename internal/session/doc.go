// Package session is the boundary between HTTP callers and the gateway.
//
// Middleware reads the caller's Google bearer token from the Authorization
// header, optionally validates it against the Google userinfo endpoint, and
// stores the token (and identity, when validated) in the request context.
// Downstream code reads it back with TokenFromContext and UserFromContext;
// nothing else in the request path touches headers.
//
// A request without an Authorization header is passed through without a
// session. Operations that need Google access then fail with an
// authentication error before any network call.
package session
