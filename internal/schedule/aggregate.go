package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// FlexID accepts string or numeric JSON identifiers and normalizes both to a
// string, so no downstream code ever branches on the raw identifier shape.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n.String())
		return nil
	}
	return fmt.Errorf("schedule: identifier must be string or number, got %s", data)
}

// RawAppointment is the tolerant wire shape shared by the remote booking API
// and the local cache. Sources disagree on field names (camelCase feeds vs
// the snake_case emitted by the practice's own booking service) and on
// whether the start is one instant or a split date + time pair; every
// accepted dialect lives here and nowhere else.
type RawAppointment struct {
	ID       FlexID `json:"id,omitempty"`
	LegacyID FlexID `json:"_id,omitempty"`

	PatientName    string `json:"patientName,omitempty"`
	PatientNameAlt string `json:"patient_name,omitempty"`
	ClientName     string `json:"clientName,omitempty"`
	PatientID      FlexID `json:"patientId,omitempty"`
	PatientIDAlt   FlexID `json:"patient_id,omitempty"`

	Start   string `json:"start,omitempty"`    // combined instant
	StartAt string `json:"start_at,omitempty"` // combined instant, snake dialect
	Date    string `json:"date,omitempty"`     // YYYY-MM-DD
	Time    string `json:"time,omitempty"`     // HH:MM

	Duration        int    `json:"duration,omitempty"`
	DurationMins    int    `json:"duration_mins,omitempty"`
	Status          string `json:"status,omitempty"`
	State           string `json:"state,omitempty"` // legacy status field
	Risk            string `json:"riskLevel,omitempty"`
	RiskAlt         string `json:"risk_level,omitempty"`
	HomeworkDone    bool   `json:"homeworkDone,omitempty"`
	HomeworkDoneAlt bool   `json:"homework_done,omitempty"`
	VideoCall       bool   `json:"videoCall,omitempty"`
	VideoCallAlt    bool   `json:"video_call,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Aggregator normalizes raw source records into canonical Appointments.
// Malformed records are skipped and counted, never raised.
type Aggregator struct {
	loc    *time.Location
	logger *logging.Logger
}

// NewAggregator creates an aggregator that interprets zoneless and split
// date/time encodings in the given location.
func NewAggregator(loc *time.Location, logger *logging.Logger) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{loc: loc, logger: logger}
}

// Normalize converts raw records from one source, skipping records that
// cannot be normalized. Returns the survivors and the skip count.
func (a *Aggregator) Normalize(raws []RawAppointment) ([]Appointment, int) {
	out := make([]Appointment, 0, len(raws))
	skipped := 0
	for i := range raws {
		appt, err := a.normalizeOne(raws[i])
		if err != nil {
			skipped++
			a.logger.Warn("skipping malformed appointment record", "error", err)
			continue
		}
		out = append(out, appt)
	}
	return out, skipped
}

func (a *Aggregator) normalizeOne(raw RawAppointment) (Appointment, error) {
	id := string(raw.ID)
	if id == "" {
		id = string(raw.LegacyID)
	}
	if id == "" {
		return Appointment{}, errors.New("schedule: record has no identifier")
	}

	name := strings.TrimSpace(raw.PatientName)
	if name == "" {
		name = strings.TrimSpace(raw.ClientName)
	}
	if name == "" {
		name = strings.TrimSpace(raw.PatientNameAlt)
	}

	start, err := a.parseStart(raw)
	if err != nil {
		return Appointment{}, fmt.Errorf("schedule: record %s: %w", id, err)
	}

	duration := raw.Duration
	if duration <= 0 {
		duration = raw.DurationMins
	}
	if duration <= 0 {
		duration = DefaultSessionMins
	}

	patientID := string(raw.PatientID)
	if patientID == "" {
		patientID = string(raw.PatientIDAlt)
	}

	risk := raw.Risk
	if risk == "" {
		risk = raw.RiskAlt
	}

	return Appointment{
		ID:           id,
		PatientID:    patientID,
		PatientName:  name,
		Start:        start,
		DurationMins: duration,
		Status:       normalizeStatus(raw.Status, raw.State),
		Risk:         normalizeRisk(risk),
		HomeworkDone: raw.HomeworkDone || raw.HomeworkDoneAlt,
		VideoCall:    raw.VideoCall || raw.VideoCallAlt,
		Notes:        raw.Notes,
	}, nil
}

// parseStart resolves the three accepted start encodings into one instant:
// a combined ISO timestamp (with or without zone), or a YYYY-MM-DD date plus
// an optional HH:MM time. Pure dates anchor at local midnight so they never
// shift across a UTC day boundary.
func (a *Aggregator) parseStart(raw RawAppointment) (time.Time, error) {
	if s := strings.TrimSpace(raw.Start); s != "" {
		return a.parseInstant(s)
	}
	if s := strings.TrimSpace(raw.StartAt); s != "" {
		return a.parseInstant(s)
	}

	d := strings.TrimSpace(raw.Date)
	if d == "" {
		return time.Time{}, errors.New("missing start")
	}
	day, err := time.ParseInLocation("2006-01-02", d, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", d, err)
	}

	clock := strings.TrimSpace(raw.Time)
	if clock == "" {
		return day, nil
	}
	tm, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), tm.Hour(), tm.Minute(), 0, 0, a.loc), nil
}

func (a *Aggregator) parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Truncate(time.Minute), nil
	}
	// Zoneless variants are read in the provider's location.
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, a.loc); err == nil {
			return t.Truncate(time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start %q", s)
}

func normalizeStatus(primary, fallback string) Status {
	s := strings.ToLower(strings.TrimSpace(primary))
	if s == "" {
		s = strings.ToLower(strings.TrimSpace(fallback))
	}
	switch s {
	case "reserved", "pending", "booked":
		return StatusReserved
	case "confirmed":
		return StatusConfirmed
	case "completed", "done":
		return StatusCompleted
	case "cancelled", "canceled":
		return StatusCancelled
	case "no_show", "no-show", "noshow":
		return StatusNoShow
	default:
		return StatusReserved
	}
}

func normalizeRisk(raw string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "medium":
		return RiskMedium
	case "high":
		return RiskHigh
	default:
		return RiskLow
	}
}

// Dedupe merges remote and cached appointments. Remote entries are
// authoritative: a cached entry survives only when its identifier is absent
// from the remote list. Relative order within each source is preserved,
// remote first.
func Dedupe(remote, cached []Appointment) []Appointment {
	seen := make(map[string]struct{}, len(remote))
	out := make([]Appointment, 0, len(remote)+len(cached))
	for _, appt := range remote {
		if _, dup := seen[appt.ID]; dup {
			continue
		}
		seen[appt.ID] = struct{}{}
		out = append(out, appt)
	}
	for _, appt := range cached {
		if _, dup := seen[appt.ID]; dup {
			continue
		}
		seen[appt.ID] = struct{}{}
		out = append(out, appt)
	}
	return out
}
