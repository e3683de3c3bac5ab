// Package google provides OAuth2 configuration and token plumbing for the
// Google Calendar and Tasks APIs.
//
// Bearer tokens arrive from the caller's session. When client credentials are
// configured, TokenSource wraps the token in a refreshing source; otherwise
// the token is used as-is until it expires.
//
// The TokenProvider interface lets background jobs look up tokens by account
// without depending on where they are cached.
package google
