package schedule

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightpath-health/practice-dashboard/internal/observability/metrics"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

var reconcileTracer trace.Tracer = otel.Tracer("practice-dashboard/schedule")

// fetchWindowDays bounds the appointment fetch so the countdown fallback can
// see upcoming days without pulling the whole calendar.
const fetchWindowDays = 31

// RemoteSource is the authoritative booking API.
type RemoteSource interface {
	FetchAppointments(ctx context.Context, from, to time.Time) ([]RawAppointment, error)
	FetchAvailability(ctx context.Context) (map[string][]string, error)
}

// CacheSource is the local per-provider fallback store.
type CacheSource interface {
	ReadAppointments(ctx context.Context) ([]RawAppointment, error)
	ReadAvailability(ctx context.Context) (map[string][]string, error)
	WriteAppointments(ctx context.Context, raws []RawAppointment) error
	WriteAvailability(ctx context.Context, raw map[string][]string) error
}

// Snapshot is the result of one reconciliation pass.
type Snapshot struct {
	Day          time.Time     `json:"day"`
	Schedule     DaySchedule   `json:"schedule"`
	Appointments []Appointment `json:"appointments"`
	Availability Availability  `json:"-"`
	RemoteOK     bool          `json:"remote_ok"`
	CacheOK      bool          `json:"cache_ok"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// NoData reports the one condition worth surfacing to a human: neither the
// remote source nor the cache produced anything to show.
func (s *Snapshot) NoData() bool {
	if s == nil {
		return true
	}
	return !s.RemoteOK && !s.CacheOK
}

// AppointmentsForDate returns the snapshot's appointments on the given local
// calendar date, for the calendar grid.
func (s *Snapshot) AppointmentsForDate(date time.Time) []Appointment {
	if s == nil {
		return nil
	}
	return ForDay(s.Appointments, date)
}

// Reconciler runs the full pipeline: aggregate, dedupe, filter to the day,
// annotate availability, derive markers, assemble. It is a pure transform
// over the sources' responses and the explicit now; the only side effects are
// logging, metrics and the cache write-through after a successful remote
// fetch.
type Reconciler struct {
	remote  RemoteSource
	cache   CacheSource
	agg     *Aggregator
	loc     *time.Location
	logger  *logging.Logger
	metrics *metrics.ScheduleMetrics
}

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	Remote   RemoteSource
	Cache    CacheSource
	Location *time.Location
	Logger   *logging.Logger
	Metrics  *metrics.ScheduleMetrics
}

func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	if cfg.Remote == nil && cfg.Cache == nil {
		return nil, errors.New("schedule: reconciler requires at least one source")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		remote:  cfg.Remote,
		cache:   cfg.Cache,
		agg:     NewAggregator(loc, logger),
		loc:     loc,
		logger:  logger,
		metrics: cfg.Metrics,
	}, nil
}

// Reconcile runs one pass for the day containing now.
func (r *Reconciler) Reconcile(ctx context.Context, now time.Time) *Snapshot {
	ctx, span := reconcileTracer.Start(ctx, "schedule.reconcile")
	defer span.End()

	started := time.Now()
	localNow := now.In(r.loc)
	dayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, r.loc)

	remote, remoteOK := r.fetchRemote(ctx, dayStart)
	cached, cacheOK := r.fetchCached(ctx)
	all := Dedupe(remote, cached)

	av := r.fetchAvailability(ctx, remoteOK)

	today := Annotate(ForDay(all, localNow), av)
	booked := BookedLabels(today)
	unavailable := UnavailableSlots(dayStart, booked, av)
	breaks := Breaks(today)
	timeline := Assemble(today, breaks, unavailable)

	status := "ok"
	if !remoteOK || !cacheOK {
		status = "degraded"
	}
	if !remoteOK && !cacheOK {
		status = "error"
	}
	r.metrics.ObservePass(status, time.Since(started).Seconds())
	r.metrics.SetTimelineSize(len(timeline))

	span.SetAttributes(
		attribute.Int("appointments.total", len(all)),
		attribute.Int("timeline.entries", len(timeline)),
		attribute.Bool("remote.ok", remoteOK),
		attribute.Bool("cache.ok", cacheOK),
	)

	return &Snapshot{
		Day:          dayStart,
		Schedule:     timeline,
		Appointments: all,
		Availability: av,
		RemoteOK:     remoteOK,
		CacheOK:      cacheOK,
		GeneratedAt:  now,
	}
}

func (r *Reconciler) fetchRemote(ctx context.Context, dayStart time.Time) ([]Appointment, bool) {
	if r.remote == nil {
		return nil, false
	}
	raws, err := r.remote.FetchAppointments(ctx, dayStart, dayStart.AddDate(0, 0, fetchWindowDays))
	if err != nil {
		// Non-fatal: the cache becomes the sole source for this pass.
		r.logger.Warn("remote appointment fetch failed, falling back to cache", "error", err)
		r.metrics.ObserveSourceFailure("remote")
		return nil, false
	}
	appts, skipped := r.agg.Normalize(raws)
	r.metrics.AddSkippedRecords(skipped)

	if r.cache != nil {
		if err := r.cache.WriteAppointments(ctx, raws); err != nil {
			r.logger.Warn("cache write-through failed", "error", err)
		}
	}
	return appts, true
}

func (r *Reconciler) fetchCached(ctx context.Context) ([]Appointment, bool) {
	if r.cache == nil {
		return nil, false
	}
	raws, err := r.cache.ReadAppointments(ctx)
	if err != nil {
		r.logger.Warn("cached appointment read failed", "error", err)
		r.metrics.ObserveSourceFailure("cache")
		return nil, false
	}
	appts, skipped := r.agg.Normalize(raws)
	r.metrics.AddSkippedRecords(skipped)
	return appts, true
}

func (r *Reconciler) fetchAvailability(ctx context.Context, remoteOK bool) Availability {
	if r.remote != nil && remoteOK {
		raw, err := r.remote.FetchAvailability(ctx)
		if err == nil {
			if r.cache != nil {
				if err := r.cache.WriteAvailability(ctx, raw); err != nil {
					r.logger.Warn("availability cache write-through failed", "error", err)
				}
			}
			return ParseAvailability(raw)
		}
		r.logger.Warn("remote availability fetch failed, falling back to cache", "error", err)
		r.metrics.ObserveSourceFailure("remote")
	}
	if r.cache != nil {
		raw, err := r.cache.ReadAvailability(ctx)
		if err == nil {
			return ParseAvailability(raw)
		}
		r.logger.Warn("cached availability read failed", "error", err)
		r.metrics.ObserveSourceFailure("cache")
	}
	return nil
}

// AppointmentsForDate fetches and reconciles appointments for one arbitrary
// local calendar date, for the calendar grid outside the polled window.
func (r *Reconciler) AppointmentsForDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	local := date.In(r.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)

	remote, remoteOK := r.fetchRange(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	cached, cacheOK := r.fetchCached(ctx)
	if !remoteOK && !cacheOK {
		return nil, errors.New("schedule: no appointment data available")
	}
	return ForDay(Dedupe(remote, cached), dayStart), nil
}

// MonthOverview returns, for each day of the month with at least one booking,
// the yyyy-mm-dd label and the booking count.
func (r *Reconciler) MonthOverview(ctx context.Context, year int, month time.Month) (map[string]int, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, r.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	remote, remoteOK := r.fetchRange(ctx, monthStart, monthEnd)
	cached, cacheOK := r.fetchCached(ctx)
	if !remoteOK && !cacheOK {
		return nil, errors.New("schedule: no appointment data available")
	}

	counts := make(map[string]int)
	for _, appt := range Dedupe(remote, cached) {
		local := appt.Start.In(r.loc)
		if local.Before(monthStart) || !local.Before(monthEnd) {
			continue
		}
		counts[local.Format("2006-01-02")]++
	}
	return counts, nil
}

func (r *Reconciler) fetchRange(ctx context.Context, from, to time.Time) ([]Appointment, bool) {
	if r.remote == nil {
		return nil, false
	}
	raws, err := r.remote.FetchAppointments(ctx, from, to)
	if err != nil {
		r.logger.Warn("remote appointment fetch failed", "error", err)
		r.metrics.ObserveSourceFailure("remote")
		return nil, false
	}
	appts, skipped := r.agg.Normalize(raws)
	r.metrics.AddSkippedRecords(skipped)
	return appts, true
}

// Location returns the provider location the reconciler operates in.
func (r *Reconciler) Location() *time.Location {
	return r.loc
}
