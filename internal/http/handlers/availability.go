package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-health/practice-dashboard/internal/schedule"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// AvailabilityStore persists the provider's weekly availability.
type AvailabilityStore interface {
	GetAvailability(ctx context.Context, providerID string) (map[string][]string, error)
	PutAvailability(ctx context.Context, providerID string, raw map[string][]string) error
}

// AvailabilityBroadcaster pushes the new availability to the snapshot cache
// and signals every dashboard instance to reconcile.
type AvailabilityBroadcaster interface {
	WriteAvailability(ctx context.Context, raw map[string][]string) error
	PublishAvailabilityChanged(ctx context.Context) error
}

// AvailabilityHandler serves the weekly availability editor.
type AvailabilityHandler struct {
	store       AvailabilityStore
	broadcaster AvailabilityBroadcaster
	refresher   Refresher
	logger      *logging.Logger
}

func NewAvailabilityHandler(store AvailabilityStore, broadcaster AvailabilityBroadcaster, refresher Refresher, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{store: store, broadcaster: broadcaster, refresher: refresher, logger: logger}
}

// Get returns the provider's weekly availability keyed by weekday index.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	raw, err := h.store.GetAvailability(r.Context(), providerID)
	if err != nil {
		h.logger.Error("fetching availability", "provider_id", providerID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not fetch availability")
		return
	}
	respondJSON(w, http.StatusOK, raw)
}

// Put replaces the provider's weekly availability. Keys are weekday indexes
// "0"-"6"; values are half-hour slot labels within working hours.
func (h *AvailabilityHandler) Put(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")

	var raw map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for weekday, labels := range raw {
		idx, err := strconv.Atoi(weekday)
		if err != nil || idx < 0 || idx > 6 {
			respondError(w, http.StatusBadRequest, "weekday keys must be 0-6")
			return
		}
		for _, label := range labels {
			if !schedule.ValidSlotLabel(label) {
				respondError(w, http.StatusBadRequest, "invalid slot label "+label)
				return
			}
		}
	}

	if err := h.store.PutAvailability(r.Context(), providerID, raw); err != nil {
		h.logger.Error("storing availability", "provider_id", providerID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not store availability")
		return
	}

	// Best effort: a failed broadcast only delays the dashboards until the
	// next poll.
	if h.broadcaster != nil {
		if err := h.broadcaster.WriteAvailability(r.Context(), raw); err != nil {
			h.logger.Warn("caching availability", "provider_id", providerID, "error", err)
		}
		if err := h.broadcaster.PublishAvailabilityChanged(r.Context()); err != nil {
			h.logger.Warn("publishing availability change", "provider_id", providerID, "error", err)
		}
	}
	if h.refresher != nil {
		h.refresher.Refresh()
	}
	respondJSON(w, http.StatusOK, raw)
}
