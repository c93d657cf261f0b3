package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotLabelsUniverse(t *testing.T) {
	labels := SlotLabels()
	require.Len(t, labels, SlotsPerDay)
	assert.Equal(t, 27, len(labels))
	assert.Equal(t, "07:00", labels[0])
	assert.Equal(t, "07:30", labels[1])
	assert.Equal(t, "20:00", labels[len(labels)-1])
}

// Mirrors the canonical worked example: Monday availability 09:00/09:30/10:00
// with one 09:00 booking leaves exactly the 24 undeclared slots unavailable.
func TestUnavailableSlotsWithDeclaredAvailability(t *testing.T) {
	loc := testLocation(t)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, loc)
	av := Availability{time.Monday: {"09:00", "09:30", "10:00"}}
	booked := BookedLabels([]Appointment{
		{ID: "a", Start: time.Date(2026, 1, 5, 9, 0, 0, 0, loc)},
	})

	markers := UnavailableSlots(monday, booked, av)
	require.Len(t, markers, 24)

	byLabel := map[string]UnavailableMarker{}
	for _, m := range markers {
		byLabel[m.Label] = m
	}
	for _, declared := range []string{"09:00", "09:30", "10:00"} {
		_, found := byLabel[declared]
		assert.False(t, found, "declared slot %s must not be unavailable", declared)
	}
	first, ok := byLabel["07:00"]
	require.True(t, ok)
	assert.True(t, first.At.Equal(time.Date(2026, 1, 5, 7, 0, 0, 0, loc)))
}

func TestUnavailableSlotsSuppressedOnUnconfiguredDay(t *testing.T) {
	loc := testLocation(t)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, loc)

	markers := UnavailableSlots(monday, nil, Availability{time.Tuesday: {"09:00"}})
	assert.Nil(t, markers)
}

func TestUnavailableSlotsConfiguredButEmptyStillGenerates(t *testing.T) {
	loc := testLocation(t)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, loc)

	markers := UnavailableSlots(monday, nil, Availability{time.Monday: {}})
	assert.Len(t, markers, SlotsPerDay)
}

func TestBreaksEmitsMarkerForHourGap(t *testing.T) {
	loc := testLocation(t)
	appts := []Appointment{
		// Listed out of order on purpose; break detection sorts first.
		{ID: "late", Start: time.Date(2026, 1, 5, 11, 30, 0, 0, loc), DurationMins: 50},
		{ID: "early", Start: time.Date(2026, 1, 5, 9, 0, 0, 0, loc), DurationMins: 50},
	}

	markers := Breaks(appts)
	require.Len(t, markers, 1)
	// 09:50 end + 10 minute offset.
	assert.True(t, markers[0].At.Equal(time.Date(2026, 1, 5, 10, 0, 0, 0, loc)))
}

func TestBreaksIgnoresShortGaps(t *testing.T) {
	loc := testLocation(t)
	appts := []Appointment{
		{ID: "a", Start: time.Date(2026, 1, 5, 9, 0, 0, 0, loc), DurationMins: 50},
		{ID: "b", Start: time.Date(2026, 1, 5, 10, 30, 0, 0, loc), DurationMins: 50}, // 40 minute gap
	}
	assert.Empty(t, Breaks(appts))
}

func TestBreaksDefaultsSessionDuration(t *testing.T) {
	loc := testLocation(t)
	appts := []Appointment{
		{ID: "a", Start: time.Date(2026, 1, 5, 9, 0, 0, 0, loc)}, // duration defaults to 50
		{ID: "b", Start: time.Date(2026, 1, 5, 10, 50, 0, 0, loc)},
	}
	markers := Breaks(appts)
	require.Len(t, markers, 1)
	assert.True(t, markers[0].At.Equal(time.Date(2026, 1, 5, 10, 0, 0, 0, loc)))
}

func TestBreaksNeedsTwoAppointments(t *testing.T) {
	loc := testLocation(t)
	assert.Empty(t, Breaks(nil))
	assert.Empty(t, Breaks([]Appointment{{ID: "solo", Start: time.Date(2026, 1, 5, 9, 0, 0, 0, loc)}}))
}
