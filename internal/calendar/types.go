package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventInput represents the input for creating a calendar event
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string // IANA zone; defaults to UTC

	// PopupAtStart replaces the calendar's default reminders with a single
	// popup at the event start.
	PopupAtStart bool
}

// EventSummary represents a simplified calendar event for listing
type EventSummary struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeZone    string    `json:"timeZone,omitempty"`
	AllDay      bool      `json:"allDay,omitempty"`
	Status      string    `json:"status,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Start != nil {
		summary.Start, summary.AllDay = parseEventDateTime(event.Start)
		summary.TimeZone = event.Start.TimeZone
	}
	if event.End != nil {
		summary.End, _ = parseEventDateTime(event.End)
	}

	return summary
}

// parseEventDateTime parses either the timed or the all-day form.
func parseEventDateTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t, false
		}
	} else if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
