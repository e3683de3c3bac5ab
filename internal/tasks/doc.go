// Package tasks provides a client for the Google Tasks API.
//
// Like the calendar package, a Client is built per request from the
// caller's OAuth token source.
package tasks
