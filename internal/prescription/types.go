package prescription

import (
	"fmt"
	"strings"
	"time"

	// Embedded zone database for hosts without tzdata.
	_ "time/tzdata"
)

const (
	// DateLayout is the calendar date format used for start dates and task dates.
	DateLayout = "2006-01-02"

	// ClockLayout is the time-of-day format used for dose times.
	ClockLayout = "15:04"

	// DefaultTimeZone is used when a prescription does not name a zone.
	DefaultTimeZone = "UTC"

	// MaxDays is the longest course a prescription may describe.
	MaxDays = 365

	// MaxTimesPerDay bounds the dose times of a single day.
	MaxTimesPerDay = 24
)

// Prescription describes a recurring medication course.
type Prescription struct {
	DrugName    string   `json:"drugName" yaml:"drugName"`
	Dose        string   `json:"dose,omitempty" yaml:"dose,omitempty"`
	Days        int      `json:"days" yaml:"days"`
	TimesPerDay int      `json:"timesPerDay" yaml:"timesPerDay"`
	Times       []string `json:"times" yaml:"times"`
	StartDate   string   `json:"startDate" yaml:"startDate"`
	TimeZone    string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// MedicationTask is a single dose derived from a Prescription.
// Completed is tracked by the caller and never written to the calendar.
type MedicationTask struct {
	Day       int    `json:"day"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	DrugName  string `json:"drugName"`
	Completed bool   `json:"completed,omitempty"`
}

// WithDefaults fills derivable fields: the zone falls back to UTC, missing
// dose times come from DefaultDoseTimes, and a missing TimesPerDay is taken
// from the number of dose times.
func (p Prescription) WithDefaults() Prescription {
	if p.TimeZone == "" {
		p.TimeZone = DefaultTimeZone
	}
	if len(p.Times) == 0 && p.TimesPerDay > 0 {
		p.Times = DefaultDoseTimes(p.TimesPerDay)
	}
	if p.TimesPerDay == 0 {
		p.TimesPerDay = len(p.Times)
	}
	return p
}

// Location resolves the prescription's IANA zone.
func (p Prescription) Location() (*time.Location, error) {
	name := p.TimeZone
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", name, err)
	}
	return loc, nil
}

// Title is the human label of one dose, e.g. "Amoxicillin 500mg".
func (p Prescription) Title() string {
	return strings.TrimSpace(p.DrugName + " " + p.Dose)
}

// EndDate returns the last calendar day of the course (start + days - 1).
func (p Prescription) EndDate() (string, error) {
	loc, err := p.Location()
	if err != nil {
		return "", err
	}
	start, err := time.ParseInLocation(DateLayout, p.StartDate, loc)
	if err != nil {
		return "", fmt.Errorf("invalid start date %q: %w", p.StartDate, err)
	}
	if p.Days < 1 {
		return p.StartDate, nil
	}
	return start.AddDate(0, 0, p.Days-1).Format(DateLayout), nil
}

// Course summarises a prescription without expanding it. ID is set once the
// prescription has been saved.
type Course struct {
	ID           string       `json:"id,omitempty"`
	Prescription Prescription `json:"prescription"`
	EndDate      string       `json:"endDate"`
	DoseCount    int          `json:"doseCount"`
}

// Course returns the summary of p.
func (p Prescription) Course() (Course, error) {
	end, err := p.EndDate()
	if err != nil {
		return Course{}, err
	}
	return Course{Prescription: p, EndDate: end, DoseCount: p.Days * len(p.Times)}, nil
}
