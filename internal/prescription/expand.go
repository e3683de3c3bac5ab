package prescription

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Dose is one scheduled intake: the task as shown to the user plus the
// absolute instant it is due.
type Dose struct {
	Task  MedicationTask
	Start time.Time
}

// Expand returns one MedicationTask per day and dose time, ordered by day and
// then by the order of Times. It is a pure function of its input.
//
// An empty Times list or a non-positive Days yields an empty, non-nil slice.
// Malformed dose times, start dates or zones are reported as errors, as are
// courses beyond MaxDays days or MaxTimesPerDay dose times.
func Expand(p Prescription) ([]MedicationTask, error) {
	doses, err := Doses(p)
	if err != nil {
		return nil, err
	}
	tasks := make([]MedicationTask, len(doses))
	for i, d := range doses {
		tasks[i] = d.Task
	}
	return tasks, nil
}

// Doses is Expand with the instant of every dose resolved in the
// prescription's zone.
func Doses(p Prescription) ([]Dose, error) {
	if err := errors.Join(boundErrors(p)...); err != nil {
		return nil, err
	}
	loc, err := p.Location()
	if err != nil {
		return nil, err
	}
	start, err := time.Parse(DateLayout, p.StartDate)
	if err != nil {
		return nil, &FieldError{Field: "startDate", Reason: fmt.Sprintf("%q is not a YYYY-MM-DD date", p.StartDate)}
	}

	clocks := make([]Clock, len(p.Times))
	for i, t := range p.Times {
		c, err := ParseClock(t)
		if err != nil {
			return nil, &FieldError{Field: fmt.Sprintf("times[%d]", i), Reason: err.Error()}
		}
		clocks[i] = c
	}

	if p.Days <= 0 || len(clocks) == 0 {
		return []Dose{}, nil
	}

	// The daily rule only steps calendar dates, in UTC where every day has 24
	// hours. Each dose instant is then built from the date and the wall clock
	// in loc, so a time skipped by a DST change on one day does not shift the
	// doses of the following days.
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   p.Days,
		Dtstart: start,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build daily rule: %w", err)
	}
	dates := r.All()
	if len(dates) != p.Days {
		return nil, fmt.Errorf("daily rule produced %d dates, expected %d", len(dates), p.Days)
	}

	doses := make([]Dose, 0, p.Days*len(clocks))
	for day, date := range dates {
		y, m, d := date.Date()
		for i, c := range clocks {
			doses = append(doses, Dose{
				Task: MedicationTask{
					Day:      day + 1,
					Date:     date.Format(DateLayout),
					Time:     p.Times[i],
					DrugName: p.DrugName,
				},
				Start: time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc),
			})
		}
	}
	return doses, nil
}

// DosesOn returns the doses of p that fall on the given calendar date
// (YYYY-MM-DD in the prescription's zone).
func DosesOn(p Prescription, date string) ([]Dose, error) {
	doses, err := Doses(p)
	if err != nil {
		return nil, err
	}
	out := make([]Dose, 0, len(p.Times))
	for _, d := range doses {
		if d.Task.Date == date {
			out = append(out, d)
		}
	}
	return out, nil
}
