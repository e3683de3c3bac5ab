package prescription

import (
	"fmt"
	"time"
)

// Medicine is the shape of a medicine extracted from a prescription label:
// a frequency and a duration rather than explicit dose times.
type Medicine struct {
	Name            string `json:"name" yaml:"name"`
	Dose            string `json:"dose,omitempty" yaml:"dose,omitempty"`
	FrequencyPerDay int    `json:"frequency_per_day" yaml:"frequency_per_day"`
	DurationDays    int    `json:"duration_days" yaml:"duration_days"`
	Timing          string `json:"timing,omitempty" yaml:"timing,omitempty"`
}

// Default course shape for medicines that omit frequency or duration.
const (
	defaultFrequencyPerDay = 1
	defaultDurationDays    = 7
)

// MaxMedicines bounds the medicines converted by one FromMedicines call.
const MaxMedicines = 10

// FromMedicine converts an extracted medicine into a Prescription starting on
// startDate, using the default dose times for its frequency.
func FromMedicine(m Medicine, startDate, timeZone string) Prescription {
	frequency := m.FrequencyPerDay
	if frequency <= 0 {
		frequency = defaultFrequencyPerDay
	}
	days := m.DurationDays
	if days <= 0 {
		days = defaultDurationDays
	}
	return Prescription{
		DrugName:    m.Name,
		Dose:        m.Dose,
		Days:        days,
		TimesPerDay: frequency,
		Times:       DefaultDoseTimes(frequency),
		StartDate:   startDate,
		TimeZone:    timeZone,
		Notes:       m.Timing,
	}.WithDefaults()
}

// FromMedicines converts a list of extracted medicines into validated
// prescriptions sharing one start date. An empty startDate means today in
// timeZone as of now.
func FromMedicines(medicines []Medicine, startDate, timeZone string, now time.Time) ([]Prescription, error) {
	if len(medicines) == 0 {
		return nil, &FieldError{Field: "medicines", Reason: "must not be empty"}
	}
	if len(medicines) > MaxMedicines {
		return nil, &FieldError{Field: "medicines", Reason: fmt.Sprintf("has %d entries, at most %d allowed", len(medicines), MaxMedicines)}
	}

	if startDate == "" {
		loc, err := Prescription{TimeZone: timeZone}.Location()
		if err != nil {
			return nil, &FieldError{Field: "timezone", Reason: fmt.Sprintf("unknown time zone %q", timeZone)}
		}
		startDate = now.In(loc).Format(DateLayout)
	}

	out := make([]Prescription, 0, len(medicines))
	for i, m := range medicines {
		p := FromMedicine(m, startDate, timeZone)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("medicines[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
