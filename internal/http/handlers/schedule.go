package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath-health/practice-dashboard/internal/schedule"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// SnapshotSource serves the latest reconciled snapshot. The runner satisfies
// it.
type SnapshotSource interface {
	Latest() *schedule.Snapshot
	Refresh()
}

// DayPlanner answers calendar questions for arbitrary dates. The reconciler
// satisfies it.
type DayPlanner interface {
	AppointmentsForDate(ctx context.Context, date time.Time) ([]schedule.Appointment, error)
	MonthOverview(ctx context.Context, year int, month time.Month) (map[string]int, error)
	Location() *time.Location
}

// ScheduleHandler serves the dashboard's read endpoints: today's timeline,
// the countdown, and the calendar views.
type ScheduleHandler struct {
	snapshots SnapshotSource
	planner   DayPlanner
	logger    *logging.Logger
	now       func() time.Time
}

func NewScheduleHandler(snapshots SnapshotSource, planner DayPlanner, logger *logging.Logger) *ScheduleHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleHandler{
		snapshots: snapshots,
		planner:   planner,
		logger:    logger,
		now:       time.Now,
	}
}

type todayResponse struct {
	Status      string               `json:"status"`
	Day         string               `json:"day,omitempty"`
	Schedule    schedule.DaySchedule `json:"schedule"`
	Countdown   schedule.Countdown   `json:"countdown"`
	RemoteOK    bool                 `json:"remote_ok"`
	CacheOK     bool                 `json:"cache_ok"`
	GeneratedAt time.Time            `json:"generated_at"`
}

func snapshotStatus(snap *schedule.Snapshot) string {
	switch {
	case snap.NoData():
		return "no_data"
	case !snap.RemoteOK:
		return "degraded"
	default:
		return "ok"
	}
}

// GetToday returns the latest reconciled timeline for the provider's day.
func (h *ScheduleHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Latest()
	if snap == nil {
		respondJSON(w, http.StatusServiceUnavailable, todayResponse{Status: "no_data"})
		return
	}

	now := h.now().In(snap.Day.Location())
	resp := todayResponse{
		Status:      snapshotStatus(snap),
		Day:         snap.Day.Format("2006-01-02"),
		Schedule:    snap.Schedule,
		Countdown:   schedule.NextRelevant(snap.Schedule, snap.Appointments, now),
		RemoteOK:    snap.RemoteOK,
		CacheOK:     snap.CacheOK,
		GeneratedAt: snap.GeneratedAt,
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetCountdown returns only the next-session countdown, recomputed against
// the current clock so it stays fresh between reconciliation passes.
func (h *ScheduleHandler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Latest()
	if snap == nil || snap.NoData() {
		respondJSON(w, http.StatusOK, schedule.Countdown{State: schedule.StateNone})
		return
	}
	now := h.now().In(snap.Day.Location())
	respondJSON(w, http.StatusOK, schedule.NextRelevant(snap.Schedule, snap.Appointments, now))
}

// GetDay returns the provider's appointments on an arbitrary calendar date.
func (h *ScheduleHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, err := time.ParseInLocation("2006-01-02", chi.URLParam(r, "date"), h.planner.Location())
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	appts, err := h.planner.AppointmentsForDate(r.Context(), date)
	if err != nil {
		h.logger.Error("fetching day appointments", "date", date.Format("2006-01-02"), "error", err)
		respondError(w, http.StatusBadGateway, "appointment sources unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":         date.Format("2006-01-02"),
		"appointments": appts,
	})
}

// GetMonth returns per-day appointment counts for the calendar grid.
func (h *ScheduleHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1970 || year > 9999 {
		respondError(w, http.StatusBadRequest, "invalid year")
		return
	}
	monthNum, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		respondError(w, http.StatusBadRequest, "invalid month")
		return
	}

	counts, err := h.planner.MonthOverview(r.Context(), year, time.Month(monthNum))
	if err != nil {
		h.logger.Error("fetching month overview", "year", year, "month", monthNum, "error", err)
		respondError(w, http.StatusBadGateway, "appointment sources unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"year":  year,
		"month": monthNum,
		"days":  counts,
	})
}
