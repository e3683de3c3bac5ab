package prescription

// Dose hours for the common frequencies.
var defaultDoseHours = map[int][]string{
	1: {"08:00"},
	2: {"08:00", "20:00"},
	3: {"08:00", "14:00", "20:00"},
	4: {"08:00", "12:00", "18:00", "22:00"},
}

// Waking window used to spread doses for frequencies without a fixed table.
const (
	firstDoseMinute = 8 * 60
	lastDoseMinute  = 22 * 60
)

// DefaultDoseTimes returns the conventional dose times for a number of doses
// per day. Frequencies above four are spread evenly between 08:00 and 22:00.
// Counts outside 1..MaxTimesPerDay have no defaults.
func DefaultDoseTimes(timesPerDay int) []string {
	if timesPerDay <= 0 || timesPerDay > MaxTimesPerDay {
		return nil
	}
	if times, ok := defaultDoseHours[timesPerDay]; ok {
		out := make([]string, len(times))
		copy(out, times)
		return out
	}

	step := (lastDoseMinute - firstDoseMinute) / (timesPerDay - 1)
	out := make([]string, timesPerDay)
	for i := range out {
		minute := firstDoseMinute + i*step
		out[i] = Clock{Hour: minute / 60, Minute: minute % 60}.String()
	}
	return out
}
