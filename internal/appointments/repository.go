// Package appointments persists the practice's own booking records: the data
// the booking API serves to the dashboard and to the calendar-editing flows.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it
// in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ErrNotFound is returned when the requested row does not exist for the
// provider.
var ErrNotFound = errors.New("appointments: not found")

// Appointment is the persisted booking row.
type Appointment struct {
	ID           uuid.UUID  `json:"id"`
	ProviderID   string     `json:"provider_id"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty"`
	PatientName  string     `json:"patient_name"`
	StartAt      time.Time  `json:"start_at"`
	DurationMins int        `json:"duration_mins"`
	Status       string     `json:"status"`
	RiskLevel    string     `json:"risk_level"`
	HomeworkDone bool       `json:"homework_done"`
	VideoCall    bool       `json:"video_call"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Patient is the persisted patient row.
type Patient struct {
	ID         uuid.UUID `json:"id"`
	ProviderID string    `json:"provider_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository provides persistence helpers for appointments, patients and
// weekly availability.
type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	if db == nil {
		panic("appointments: db required")
	}
	return &Repository{db: db}
}

const appointmentColumns = `id, provider_id, patient_id, patient_name, start_at, duration_mins,
       status, risk_level, homework_done, video_call, notes, created_at, updated_at`

// Create inserts a new appointment, assigning an identifier when absent.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.DurationMins <= 0 {
		a.DurationMins = 50
	}
	if a.Status == "" {
		a.Status = "reserved"
	}
	if a.RiskLevel == "" {
		a.RiskLevel = "low"
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (id, provider_id, patient_id, patient_name, start_at, duration_mins,
		                          status, risk_level, homework_done, video_call, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.ProviderID, a.PatientID, a.PatientName, a.StartAt, a.DurationMins,
		a.Status, a.RiskLevel, a.HomeworkDone, a.VideoCall, a.Notes,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// ListRange returns the provider's appointments with start_at in [from, to),
// ordered by start.
func (r *Repository) ListRange(ctx context.Context, providerID string, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1 AND start_at >= $2 AND start_at < $3
		ORDER BY start_at`,
		providerID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("appointments: list range: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.ProviderID, &a.PatientID, &a.PatientName, &a.StartAt, &a.DurationMins,
			&a.Status, &a.RiskLevel, &a.HomeworkDone, &a.VideoCall, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

// Get returns one appointment scoped to the provider.
func (r *Repository) Get(ctx context.Context, providerID string, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1 AND id = $2`,
		providerID, id,
	).Scan(&a.ID, &a.ProviderID, &a.PatientID, &a.PatientName, &a.StartAt, &a.DurationMins,
		&a.Status, &a.RiskLevel, &a.HomeworkDone, &a.VideoCall, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return &a, nil
}

// UpdateStatus transitions one appointment's status.
func (r *Repository) UpdateStatus(ctx context.Context, providerID string, id uuid.UUID, status string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments SET status = $3, updated_at = now()
		WHERE provider_id = $1 AND id = $2`,
		providerID, id, status,
	)
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one appointment.
func (r *Repository) Delete(ctx context.Context, providerID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE provider_id = $1 AND id = $2`, providerID, id)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAvailability returns the provider's weekly availability keyed by weekday
// index ("0"-"6").
func (r *Repository) GetAvailability(ctx context.Context, providerID string) (map[string][]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT weekday, times FROM availability WHERE provider_id = $1 ORDER BY weekday`,
		providerID,
	)
	if err != nil {
		return nil, fmt.Errorf("appointments: get availability: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var weekday int
		var times []string
		if err := rows.Scan(&weekday, &times); err != nil {
			return nil, fmt.Errorf("appointments: scan availability: %w", err)
		}
		if times == nil {
			times = []string{}
		}
		out[fmt.Sprintf("%d", weekday)] = times
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate availability: %w", err)
	}
	return out, nil
}

// PutAvailability replaces the provider's weekly availability.
func (r *Repository) PutAvailability(ctx context.Context, providerID string, raw map[string][]string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM availability WHERE provider_id = $1`, providerID); err != nil {
		return fmt.Errorf("appointments: clear availability: %w", err)
	}
	for weekday, times := range raw {
		idx, err := strconv.Atoi(weekday)
		if err != nil || idx < 0 || idx > 6 {
			return fmt.Errorf("appointments: invalid weekday key %q", weekday)
		}
		if _, err := r.db.Exec(ctx, `
			INSERT INTO availability (provider_id, weekday, times) VALUES ($1, $2, $3)`,
			providerID, idx, times,
		); err != nil {
			return fmt.Errorf("appointments: put availability for weekday %s: %w", weekday, err)
		}
	}
	return nil
}

// CreatePatient inserts a new patient record.
func (r *Repository) CreatePatient(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO patients (id, provider_id, name, email, phone) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.ProviderID, p.Name, p.Email, p.Phone,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert patient: %w", err)
	}
	return nil
}

// ListPatients returns the provider's patients ordered by name.
func (r *Repository) ListPatients(ctx context.Context, providerID string) ([]Patient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, provider_id, name, email, phone, created_at
		FROM patients WHERE provider_id = $1 ORDER BY name`,
		providerID,
	)
	if err != nil {
		return nil, fmt.Errorf("appointments: list patients: %w", err)
	}
	defer rows.Close()

	var out []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.ProviderID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan patient: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate patients: %w", err)
	}
	return out, nil
}
