package prescription

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDoseDuration is the length of a reminder block on the calendar.
const DefaultDoseDuration = 15 * time.Minute

// PlanOptions controls how doses are rendered as calendar entries.
type PlanOptions struct {
	// SummaryPrefix is prepended to every summary (e.g. a pill emoji).
	SummaryPrefix string
	// DescriptionPrefix is prepended to every description (e.g. an ownership tag).
	DescriptionPrefix string
	// Duration of each block; DefaultDoseDuration when zero.
	Duration time.Duration
}

// PlannedEvent is a calendar-ready reminder for one dose.
type PlannedEvent struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Task        MedicationTask
}

// Plan renders every dose of p as a calendar block.
func Plan(p Prescription, opts PlanOptions) ([]PlannedEvent, error) {
	doses, err := Doses(p)
	if err != nil {
		return nil, err
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultDoseDuration
	}

	title := p.Title()
	events := make([]PlannedEvent, len(doses))
	for i, d := range doses {
		description := fmt.Sprintf("%s, day %d/%d", title, d.Task.Day, p.Days)
		if p.Notes != "" {
			description += "\n" + p.Notes
		}
		events[i] = PlannedEvent{
			UID:         DoseUID(p, d.Task),
			Summary:     opts.SummaryPrefix + title,
			Description: opts.DescriptionPrefix + description,
			Start:       d.Start,
			End:         d.Start.Add(duration),
			Task:        d.Task,
		}
	}
	return events, nil
}

// DoseUID returns a stable identifier for one dose of a prescription.
func DoseUID(p Prescription, t MedicationTask) string {
	return fmt.Sprintf("%s-%s-%s@pillminder",
		t.Date,
		strings.ReplaceAll(t.Time, ":", ""),
		slug(p.DrugName),
	)
}

func slug(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
