package schedule

import "sort"

func kindRank(k EntryKind) int {
	switch k {
	case EntryAppointment:
		return 0
	case EntryBreak:
		return 1
	default:
		return 2
	}
}

// Assemble merges appointments, break markers and unavailable markers into
// one chronologically sorted timeline. Entries sharing an exact instant keep
// the order appointment, break, unavailable.
func Assemble(appts []Appointment, breaks []BreakMarker, unavailable []UnavailableMarker) DaySchedule {
	entries := make(DaySchedule, 0, len(appts)+len(breaks)+len(unavailable))
	for i := range appts {
		appt := appts[i]
		entries = append(entries, Entry{
			Kind:        EntryAppointment,
			At:          appt.Start,
			Appointment: &appt,
			Label:       SlotLabel(appt.Start),
		})
	}
	for _, b := range breaks {
		entries = append(entries, Entry{Kind: EntryBreak, At: b.At})
	}
	for _, u := range unavailable {
		entries = append(entries, Entry{Kind: EntryUnavailable, At: u.At, Label: u.Label})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].At.Equal(entries[j].At) {
			return entries[i].At.Before(entries[j].At)
		}
		return kindRank(entries[i].Kind) < kindRank(entries[j].Kind)
	})
	return entries
}
