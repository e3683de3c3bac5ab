package gateway

import (
	"strings"
	"time"

	"github.com/teemow/pillminder/internal/calendar"
)

const (
	// OwnershipMarker tags descriptions of events created by this application.
	// Changing it orphans every event created before the change.
	OwnershipMarker = "ERNIE_AI_PILL_REMINDER"

	// ReminderPrefix is prepended to reminder summaries.
	ReminderPrefix = "💊 "

	// CompanionDuration is the length of a companion or dose event.
	CompanionDuration = 15 * time.Minute
)

// IsAppOwned reports whether description carries the ownership marker.
func IsAppOwned(description string) bool {
	return strings.Contains(description, OwnershipMarker)
}

// FilterOwned returns the events whose description carries the ownership
// marker, in their original order. The result is never nil.
func FilterOwned(events []calendar.EventSummary) []calendar.EventSummary {
	owned := make([]calendar.EventSummary, 0, len(events))
	for _, e := range events {
		if IsAppOwned(e.Description) {
			owned = append(owned, e)
		}
	}
	return owned
}

// TagDescription prefixes text with the ownership marker unless it already
// carries it.
func TagDescription(text string) string {
	if IsAppOwned(text) {
		return text
	}
	return strings.TrimSpace(markerTag() + " " + text)
}

func markerTag() string {
	return "[" + OwnershipMarker + "]"
}
