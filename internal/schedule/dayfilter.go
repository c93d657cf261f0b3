package schedule

import "time"

// ForDay selects the appointments whose start falls on the same local
// calendar date as target. Comparison happens through target's location, so
// entries normalized from pure dates and from full ISO timestamps match the
// same way regardless of how each source encoded them.
func ForDay(appts []Appointment, target time.Time) []Appointment {
	loc := target.Location()
	ty, tm, td := target.Date()

	out := make([]Appointment, 0, len(appts))
	for _, appt := range appts {
		if appt.Start.IsZero() {
			continue
		}
		y, m, d := appt.Start.In(loc).Date()
		if y == ty && m == tm && d == td {
			out = append(out, appt)
		}
	}
	return out
}
