package prescription

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
)

const icsProductID = "-//teemow//pillminder//EN"

// WriteICS serialises planned reminders as an iCalendar document.
func WriteICS(w io.Writer, name string, events []PlannedEvent) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	stamp := time.Now().UTC()
	for _, e := range events {
		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Start)
		ev.SetEndAt(e.End)
		ev.SetSummary(e.Summary)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}
