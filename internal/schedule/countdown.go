package schedule

import (
	"fmt"
	"math"
	"time"
)

// State classifies how soon the next relevant session occurs.
type State string

const (
	StateNone       State = "NONE"
	StateNow        State = "NOW"
	StateImminent   State = "IMMINENT"
	StateSoon       State = "SOON"
	StateLaterToday State = "LATER_TODAY"
	StateFuture     State = "FUTURE"
)

// Countdown is the display-facing next-session payload.
type Countdown struct {
	Target  *Appointment `json:"target,omitempty"`
	State   State        `json:"state"`
	Display string       `json:"display,omitempty"`
}

// inProgressWindow is how long after its start a session still counts as the
// relevant one, keeping the join affordance alive for the full 50-minute
// session.
const inProgressWindow = 60 * time.Minute

// NextRelevant picks the next session to count down to and derives its state.
// Only appointment entries in today's timeline are considered; if none
// qualifies the nearest future appointment from the full multi-day list is
// used. now is always passed in explicitly.
func NextRelevant(day DaySchedule, all []Appointment, now time.Time) Countdown {
	target := pickTarget(day, all, now)
	if target == nil {
		return Countdown{State: StateNone}
	}

	minutesUntil := target.Start.Sub(now).Minutes()
	c := Countdown{Target: target}
	switch {
	case minutesUntil <= 0:
		c.State = StateNow
		c.Display = "now"
	case minutesUntil <= 15:
		c.State = StateImminent
		c.Display = fmt.Sprintf("%d min", int(math.Ceil(minutesUntil)))
	case minutesUntil < 60:
		c.State = StateSoon
		c.Display = fmt.Sprintf("%d min", int(math.Ceil(minutesUntil)))
	case minutesUntil < 1440:
		whole := int(minutesUntil)
		c.State = StateLaterToday
		c.Display = fmt.Sprintf("%dh %dm", whole/60, whole%60)
	default:
		c.State = StateFuture
		c.Display = target.Start.Format("Jan 2 15:04")
	}
	return c
}

func pickTarget(day DaySchedule, all []Appointment, now time.Time) *Appointment {
	// Today first: the earliest session that has not started, or started less
	// than an hour ago (still in progress).
	for _, entry := range day {
		if entry.Kind != EntryAppointment || entry.Appointment == nil {
			continue
		}
		start := entry.Appointment.Start
		if start.After(now) || now.Sub(start) < inProgressWindow {
			target := *entry.Appointment
			return &target
		}
	}

	// Fall back to the nearest future appointment across all days.
	var nearest *Appointment
	for i := range all {
		start := all[i].Start
		if !start.After(now) {
			continue
		}
		if nearest == nil || start.Before(nearest.Start) {
			appt := all[i]
			nearest = &appt
		}
	}
	return nearest
}
