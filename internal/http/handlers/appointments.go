package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightpath-health/practice-dashboard/internal/appointments"
	"github.com/brightpath-health/practice-dashboard/internal/schedule"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// AppointmentStore is the persistence surface the appointment endpoints need.
type AppointmentStore interface {
	Create(ctx context.Context, a *appointments.Appointment) error
	ListRange(ctx context.Context, providerID string, from, to time.Time) ([]appointments.Appointment, error)
	Get(ctx context.Context, providerID string, id uuid.UUID) (*appointments.Appointment, error)
	UpdateStatus(ctx context.Context, providerID string, id uuid.UUID, status string) error
	Delete(ctx context.Context, providerID string, id uuid.UUID) error
}

// Refresher nudges the reconciliation loop after a local write so the
// dashboard reflects the change without waiting for the next poll.
type Refresher interface {
	Refresh()
}

// AppointmentsHandler serves appointment CRUD for the provider's own records.
type AppointmentsHandler struct {
	store     AppointmentStore
	refresher Refresher
	logger    *logging.Logger
	loc       *time.Location
}

func NewAppointmentsHandler(store AppointmentStore, refresher Refresher, loc *time.Location, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &AppointmentsHandler{store: store, refresher: refresher, logger: logger, loc: loc}
}

type createAppointmentRequest struct {
	PatientID    *uuid.UUID `json:"patientId,omitempty"`
	PatientName  string     `json:"patientName"`
	Start        string     `json:"start"`
	DurationMins int        `json:"duration,omitempty"`
	Status       string     `json:"status,omitempty"`
	RiskLevel    string     `json:"riskLevel,omitempty"`
	HomeworkDone bool       `json:"homeworkDone,omitempty"`
	VideoCall    bool       `json:"videoCall,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// Create books a new appointment for the provider.
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientName == "" {
		respondError(w, http.StatusBadRequest, "patientName is required")
		return
	}
	start, err := time.ParseInLocation(time.RFC3339, req.Start, h.loc)
	if err != nil {
		start, err = time.ParseInLocation("2006-01-02T15:04", req.Start, h.loc)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "start must be RFC 3339 or YYYY-MM-DDTHH:MM")
		return
	}

	appt := &appointments.Appointment{
		ProviderID:   providerID,
		PatientID:    req.PatientID,
		PatientName:  req.PatientName,
		StartAt:      start,
		DurationMins: req.DurationMins,
		Status:       req.Status,
		RiskLevel:    req.RiskLevel,
		HomeworkDone: req.HomeworkDone,
		VideoCall:    req.VideoCall,
		Notes:        req.Notes,
	}
	if err := h.store.Create(r.Context(), appt); err != nil {
		h.logger.Error("creating appointment", "provider_id", providerID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not create appointment")
		return
	}

	if h.refresher != nil {
		h.refresher.Refresh()
	}
	respondJSON(w, http.StatusCreated, appt)
}

// List returns the provider's appointments in an optional [from, to) range,
// defaulting to the current day.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	now := time.Now().In(h.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	to := from.AddDate(0, 0, 1)

	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.ParseInLocation("2006-01-02", v, h.loc); err != nil {
			respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		to = from.AddDate(0, 0, 1)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.ParseInLocation("2006-01-02", v, h.loc); err != nil {
			respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
	}

	appts, err := h.store.ListRange(r.Context(), providerID, from, to)
	if err != nil {
		h.logger.Error("listing appointments", "provider_id", providerID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not list appointments")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// Get returns one appointment.
func (h *AppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appt, err := h.store.Get(r.Context(), providerID, id)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			respondError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("fetching appointment", "provider_id", providerID, "appointment_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not fetch appointment")
		return
	}
	respondJSON(w, http.StatusOK, appt)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

var allowedStatuses = map[string]struct{}{
	string(schedule.StatusReserved):  {},
	string(schedule.StatusConfirmed): {},
	string(schedule.StatusCompleted): {},
	string(schedule.StatusCancelled): {},
	string(schedule.StatusNoShow):    {},
}

// UpdateStatus transitions one appointment's status.
func (h *AppointmentsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := allowedStatuses[req.Status]; !ok {
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.store.UpdateStatus(r.Context(), providerID, id, req.Status); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			respondError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("updating appointment status", "provider_id", providerID, "appointment_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not update appointment")
		return
	}

	if h.refresher != nil {
		h.refresher.Refresh()
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
}

// Delete removes one appointment.
func (h *AppointmentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	if err := h.store.Delete(r.Context(), providerID, id); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			respondError(w, http.StatusNotFound, "appointment not found")
			return
		}
		h.logger.Error("deleting appointment", "provider_id", providerID, "appointment_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not delete appointment")
		return
	}

	if h.refresher != nil {
		h.refresher.Refresh()
	}
	w.WriteHeader(http.StatusNoContent)
}
