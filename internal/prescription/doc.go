// Package prescription turns a recurring prescription into concrete doses.
//
// A Prescription names a drug, how many days it is taken, and the dose times
// for each day. Expand produces one MedicationTask per (day, dose time) pair
// in a stable order: all doses of day 1 in the order of Times, then day 2,
// and so on. Dates are computed on the calendar of the prescription's time
// zone, so a course that spans a daylight-saving change keeps its wall-clock
// dose times.
//
// Plan and WriteICS build on Expand to produce calendar-ready reminder
// blocks and an iCalendar export of the same schedule.
//
// Example usage:
//
//	p := prescription.Prescription{
//	    DrugName:    "Amoxicillin",
//	    Days:        3,
//	    TimesPerDay: 2,
//	    Times:       []string{"08:00", "20:00"},
//	    StartDate:   "2024-03-01",
//	}
//	tasks, err := prescription.Expand(p)
package prescription
