package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-health/practice-dashboard/internal/appointments"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// PatientStore persists patient records.
type PatientStore interface {
	CreatePatient(ctx context.Context, p *appointments.Patient) error
	ListPatients(ctx context.Context, providerID string) ([]appointments.Patient, error)
}

// PatientsHandler serves the provider's patient roster.
type PatientsHandler struct {
	store  PatientStore
	logger *logging.Logger
}

func NewPatientsHandler(store PatientStore, logger *logging.Logger) *PatientsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientsHandler{store: store, logger: logger}
}

type createPatientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Create registers a new patient for the provider.
func (h *PatientsHandler) Create(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	patient := &appointments.Patient{
		ProviderID: providerID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
	}
	if err := h.store.CreatePatient(r.Context(), patient); err != nil {
		h.logger.Error("creating patient", "provider_id", providerID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not create patient")
		return
	}
	respondJSON(w, http.StatusCreated, patient)
}

// List returns the provider's patients.
func (h *PatientsHandler) List(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	patients, err := h.store.ListPatients(r.Context(), providerID)
	if err != nil {
		h.logger.Error("listing patients", "provider_id", providerID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not list patients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"patients": patients})
}
