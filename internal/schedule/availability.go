package schedule

// Annotate tags each appointment with whether its half-hour slot falls inside
// the provider's declared weekly availability. Out-of-availability bookings
// are flagged for display only, never rejected.
func Annotate(appts []Appointment, av Availability) []Appointment {
	out := make([]Appointment, len(appts))
	for i, appt := range appts {
		appt.InAvailableSlot = av.Contains(appt.Start.Weekday(), SlotLabel(appt.Start))
		out[i] = appt
	}
	return out
}
