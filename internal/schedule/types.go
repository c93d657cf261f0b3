// Package schedule reconciles appointment data from the remote booking API
// and the local cache into a single ordered timeline of a provider's day.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Session timing for the practice day. The operating window runs 07:00-20:00
// inclusive in half-hour slots.
const (
	DefaultSessionMins = 50
	SlotMins           = 30
	OpenHour           = 7
	CloseHour          = 20

	breakGapMins    = 60
	breakOffsetMins = 10
)

// SlotsPerDay is the number of bookable half-hour slots in the operating window.
const SlotsPerDay = (CloseHour-OpenHour)*2 + 1

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusReserved  Status = "reserved"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// RiskLevel classifies the patient's clinical risk for dashboard display.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Appointment is the canonical reconciled appointment. All raw source shapes
// are normalized into this before anything downstream runs.
type Appointment struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id,omitempty"`
	PatientName     string    `json:"patient_name"`
	Start           time.Time `json:"start"`
	DurationMins    int       `json:"duration_mins"`
	Status          Status    `json:"status"`
	Risk            RiskLevel `json:"risk_level"`
	HomeworkDone    bool      `json:"homework_done"`
	VideoCall       bool      `json:"video_call"`
	Notes           string    `json:"notes,omitempty"`
	InAvailableSlot bool      `json:"in_available_slot"`
}

// End returns the appointment's end instant.
func (a Appointment) End() time.Time {
	mins := a.DurationMins
	if mins <= 0 {
		mins = DefaultSessionMins
	}
	return a.Start.Add(time.Duration(mins) * time.Minute)
}

// Availability maps a weekday to the HH:MM slot labels the provider accepts
// bookings for. A missing weekday key means the day was never configured,
// which is distinct from a configured-but-empty day.
type Availability map[time.Weekday][]string

// Contains reports whether the given slot label is declared for the weekday.
func (av Availability) Contains(day time.Weekday, label string) bool {
	for _, t := range av[day] {
		if t == label {
			return true
		}
	}
	return false
}

// Configured reports whether any availability was declared for the weekday.
func (av Availability) Configured(day time.Weekday) bool {
	_, ok := av[day]
	return ok
}

// BreakMarker is a derived gap marker between sessions. Never persisted.
type BreakMarker struct {
	At time.Time `json:"at"`
}

// UnavailableMarker is a derived half-hour slot that is neither booked nor
// declared available. Never persisted.
type UnavailableMarker struct {
	At    time.Time `json:"at"`
	Label string    `json:"label"`
}

// EntryKind discriminates timeline entries.
type EntryKind string

const (
	EntryAppointment EntryKind = "appointment"
	EntryBreak       EntryKind = "break"
	EntryUnavailable EntryKind = "unavailable"
)

// Entry is one element of the assembled day timeline.
type Entry struct {
	Kind        EntryKind    `json:"kind"`
	At          time.Time    `json:"at"`
	Appointment *Appointment `json:"appointment,omitempty"`
	Label       string       `json:"label,omitempty"`
}

// DaySchedule is the render-ready timeline: ascending by instant, ties broken
// appointment < break < unavailable.
type DaySchedule []Entry

// SlotLabel floors an instant to its half-hour slot label ("HH:MM").
func SlotLabel(t time.Time) string {
	minute := 0
	if t.Minute() >= SlotMins {
		minute = SlotMins
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), minute)
}

// SlotLabels returns the fixed universe of operating-window slot labels.
func SlotLabels() []string {
	labels := make([]string, 0, SlotsPerDay)
	for hour := OpenHour; hour <= CloseHour; hour++ {
		labels = append(labels, fmt.Sprintf("%02d:00", hour))
		if hour < CloseHour {
			labels = append(labels, fmt.Sprintf("%02d:30", hour))
		}
	}
	return labels
}

// slotTime anchors a slot label onto the calendar date of day, in day's location.
func slotTime(day time.Time, label string) (time.Time, error) {
	clock, err := time.Parse("15:04", label)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: bad slot label %q: %w", label, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}

// ValidSlotLabel reports whether label is a well-formed half-hour label inside
// the operating window.
func ValidSlotLabel(label string) bool {
	if len(label) != 5 {
		return false
	}
	clock, err := time.Parse("15:04", label)
	if err != nil {
		return false
	}
	hour, minute := clock.Hour(), clock.Minute()
	if minute != 0 && minute != SlotMins {
		return false
	}
	if hour < OpenHour || hour > CloseHour {
		return false
	}
	if hour == CloseHour && minute != 0 {
		return false
	}
	return true
}

// ParseAvailability converts the wire/cache shape (weekday index "0"-"6" to
// time labels) into Availability. Malformed entries are dropped, duplicates
// collapsed, and each day's labels come back sorted.
func ParseAvailability(raw map[string][]string) Availability {
	if raw == nil {
		return nil
	}
	av := make(Availability, len(raw))
	for key, times := range raw {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx > 6 {
			continue
		}
		day := time.Weekday(idx)
		seen := make(map[string]struct{}, len(times))
		labels := make([]string, 0, len(times))
		for _, t := range times {
			if !ValidSlotLabel(t) {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			labels = append(labels, t)
		}
		sort.Strings(labels)
		av[day] = labels
	}
	return av
}

// EncodeAvailability is the inverse of ParseAvailability, for cache writes.
func EncodeAvailability(av Availability) map[string][]string {
	if av == nil {
		return nil
	}
	raw := make(map[string][]string, len(av))
	for day, times := range av {
		raw[fmt.Sprintf("%d", int(day))] = times
	}
	return raw
}
