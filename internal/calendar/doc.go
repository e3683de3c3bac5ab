// Package calendar provides a client for the Google Calendar API.
//
// A Client is bound to one OAuth token source and is cheap to build, so
// callers create one per request from the caller's bearer token rather than
// sharing a process-wide instance.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, oauth2.StaticTokenSource(token))
//	if err != nil {
//	    return err
//	}
//
//	// Next ten events, recurring events expanded
//	events, err := client.ListEvents(ctx, calendar.ListOptions{
//	    CalendarID: "primary",
//	    TimeMin:    time.Now(),
//	    MaxResults: 10,
//	})
package calendar
