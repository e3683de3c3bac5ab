// Package gateway mediates between pillminder and the Google Calendar and
// Tasks APIs.
//
// It enforces two conventions:
//
//   - Ownership: every event pillminder creates carries OwnershipMarker in its
//     description, and listings only return events that do. The marker is
//     plain text, so any description containing it is treated as ours.
//   - Companion events: a task due at a specific time of day gets a paired
//     CompanionDuration calendar block so the reminder shows on both surfaces.
//
// Every operation reads the caller's token from the request context and
// builds fresh provider clients through a ClientFactory; the Gateway itself
// holds no per-user state. Calls without a session fail with
// *AuthenticationError before any client is built.
package gateway
