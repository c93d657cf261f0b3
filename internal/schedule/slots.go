package schedule

import (
	"sort"
	"time"
)

// BookedLabels returns the set of half-hour slot labels occupied by the given
// appointments.
func BookedLabels(appts []Appointment) map[string]struct{} {
	booked := make(map[string]struct{}, len(appts))
	for _, appt := range appts {
		booked[SlotLabel(appt.Start)] = struct{}{}
	}
	return booked
}

// UnavailableSlots emits one marker per operating-window slot that is neither
// booked nor declared available on day. When the weekday was never configured
// at all, no markers are emitted: an unconfigured provider's day must not
// render as wall-to-wall "unavailable".
func UnavailableSlots(day time.Time, booked map[string]struct{}, av Availability) []UnavailableMarker {
	weekday := day.Weekday()
	if !av.Configured(weekday) {
		return nil
	}

	declared := make(map[string]struct{})
	for _, label := range av[weekday] {
		declared[label] = struct{}{}
	}

	var markers []UnavailableMarker
	for _, label := range SlotLabels() {
		if _, ok := booked[label]; ok {
			continue
		}
		if _, ok := declared[label]; ok {
			continue
		}
		at, err := slotTime(day, label)
		if err != nil {
			continue
		}
		markers = append(markers, UnavailableMarker{At: at, Label: label})
	}
	return markers
}

// Breaks emits one marker per gap of at least an hour between the end of one
// booked session and the start of the next. The marker sits ten minutes after
// the earlier session ends.
func Breaks(appts []Appointment) []BreakMarker {
	if len(appts) < 2 {
		return nil
	}

	sorted := make([]Appointment, len(appts))
	copy(sorted, appts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var markers []BreakMarker
	for i := 0; i < len(sorted)-1; i++ {
		end := sorted[i].End()
		gap := sorted[i+1].Start.Sub(end)
		if gap >= breakGapMins*time.Minute {
			markers = append(markers, BreakMarker{At: end.Add(breakOffsetMins * time.Minute)})
		}
	}
	return markers
}
