package prescription

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FieldError reports a single invalid prescription field.
type FieldError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks every field of the prescription and returns all problems
// joined into one error, or nil.
func (p Prescription) Validate() error {
	var errs []error

	if strings.TrimSpace(p.DrugName) == "" {
		errs = append(errs, &FieldError{Field: "drugName", Reason: "must not be empty"})
	}
	if p.Days < 1 {
		errs = append(errs, &FieldError{Field: "days", Reason: "must be at least 1"})
	}
	if p.TimesPerDay < 1 {
		errs = append(errs, &FieldError{Field: "timesPerDay", Reason: "must be at least 1"})
	}
	errs = append(errs, boundErrors(p)...)
	if len(p.Times) != p.TimesPerDay {
		errs = append(errs, &FieldError{
			Field:  "times",
			Reason: fmt.Sprintf("has %d entries, expected %d (timesPerDay)", len(p.Times), p.TimesPerDay),
		})
	}
	for i, t := range p.Times {
		if _, err := ParseClock(t); err != nil {
			errs = append(errs, &FieldError{Field: fmt.Sprintf("times[%d]", i), Reason: err.Error()})
		}
	}
	if _, err := time.Parse(DateLayout, p.StartDate); err != nil {
		errs = append(errs, &FieldError{Field: "startDate", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", p.StartDate)})
	}
	if _, err := p.Location(); err != nil {
		errs = append(errs, &FieldError{Field: "timezone", Reason: fmt.Sprintf("unknown time zone %q", p.TimeZone)})
	}

	return errors.Join(errs...)
}

// boundErrors rejects courses longer than MaxDays or with more than
// MaxTimesPerDay doses a day. It looks only at counts, so it runs before any
// expansion work.
func boundErrors(p Prescription) []error {
	var errs []error
	if p.Days > MaxDays {
		errs = append(errs, &FieldError{Field: "days", Reason: fmt.Sprintf("must be at most %d", MaxDays)})
	}
	if p.TimesPerDay > MaxTimesPerDay {
		errs = append(errs, &FieldError{Field: "timesPerDay", Reason: fmt.Sprintf("must be at most %d", MaxTimesPerDay)})
	} else if len(p.Times) > MaxTimesPerDay {
		errs = append(errs, &FieldError{Field: "times", Reason: fmt.Sprintf("has %d entries, at most %d allowed", len(p.Times), MaxTimesPerDay)})
	}
	return errs
}

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("%q is not a valid HH:MM time of day", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
