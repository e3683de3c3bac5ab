package gateway

import (
	"fmt"
	"time"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// parseTimeInput accepts RFC3339, a local date-time interpreted in loc, or a
// bare date. dateOnly reports the last case; the returned time is then
// midnight in loc.
func parseTimeInput(field, value string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if value == "" {
		return time.Time{}, false, &ValidationError{Field: field, Reason: "is required"}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), false, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, false, nil
		}
	}
	if t, err := time.ParseInLocation(dateLayout, value, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("%q is not an RFC3339 timestamp, YYYY-MM-DDTHH:MM or YYYY-MM-DD", value),
	}
}

func loadZone(name, fallback string) (*time.Location, error) {
	if name == "" {
		name = fallback
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &ValidationError{Field: "timeZone", Reason: fmt.Sprintf("unknown time zone %q", name)}
	}
	return loc, nil
}
