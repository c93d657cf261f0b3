package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileDurationName is the histogram gathered by the stats endpoint.
const ReconcileDurationName = "dashboard_schedule_reconcile_duration_seconds"

// ScheduleMetrics exposes counters/histograms for schedule reconciliation.
type ScheduleMetrics struct {
	passesTotal    *prometheus.CounterVec
	passDuration   prometheus.Histogram
	sourceFailures *prometheus.CounterVec
	recordsSkipped prometheus.Counter
	timelineSize   prometheus.Gauge
}

func NewScheduleMetrics(reg prometheus.Registerer) *ScheduleMetrics {
	m := &ScheduleMetrics{
		passesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "schedule",
			Name:      "reconcile_passes_total",
			Help:      "Total reconciliation passes",
		}, []string{"status"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    ReconcileDurationName,
			Help:    "Duration of one reconciliation pass",
			Buckets: prometheus.DefBuckets,
		}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "schedule",
			Name:      "source_failures_total",
			Help:      "Appointment/availability source fetch failures",
		}, []string{"source"}),
		recordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "schedule",
			Name:      "malformed_records_total",
			Help:      "Raw records skipped during normalization",
		}),
		timelineSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Subsystem: "schedule",
			Name:      "timeline_entries",
			Help:      "Entries in the last assembled day timeline",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.passesTotal, m.passDuration, m.sourceFailures, m.recordsSkipped, m.timelineSize)
	return m
}

func (m *ScheduleMetrics) ObservePass(status string, seconds float64) {
	if m == nil {
		return
	}
	m.passesTotal.WithLabelValues(status).Inc()
	m.passDuration.Observe(seconds)
}

func (m *ScheduleMetrics) ObserveSourceFailure(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

func (m *ScheduleMetrics) AddSkippedRecords(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsSkipped.Add(float64(n))
}

func (m *ScheduleMetrics) SetTimelineSize(n int) {
	if m == nil {
		return
	}
	m.timelineSize.Set(float64(n))
}
