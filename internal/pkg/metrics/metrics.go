package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "geoclock"

// Metrics holds the time clock collectors. A nil *Metrics records nothing,
// so services can run without a registry in tests and tools.
type Metrics struct {
	attempts         *prometheus.CounterVec
	rejected         *prometheus.CounterVec
	approvals        prometheus.Counter
	distance         *prometheus.HistogramVec
	validateDuration prometheus.Histogram
	staleOpenEntries prometheus.Gauge
	sseSubscribers   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clock_events_total",
			Help:      "Clock events appended to the ledger, by event type and status.",
		}, []string{"event_type", "status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clock_attempts_rejected_total",
			Help:      "Clock attempts rejected before validation, by reason.",
		}, []string{"reason"}),
		approvals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "override_approvals_total",
			Help:      "Override events approved by a supervisor.",
		}),
		distance: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clock_distance_meters",
			Help:      "Distance between the worker fix and the job site.",
			Buckets:   []float64{10, 25, 50, 100, 150, 250, 500, 1000, 5000},
		}, []string{"within_geofence"}),
		validateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clock_transaction_seconds",
			Help:      "Time spent validating and recording one clock attempt.",
			Buckets:   prometheus.DefBuckets,
		}),
		staleOpenEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_open_time_entries",
			Help:      "Open time entries older than the stale threshold at the last scan.",
		}),
		sseSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clock_feed_subscribers",
			Help:      "Connected clock event feed subscribers.",
		}),
	}

	reg.MustRegister(
		m.attempts,
		m.rejected,
		m.approvals,
		m.distance,
		m.validateDuration,
		m.staleOpenEntries,
		m.sseSubscribers,
	)

	return m
}

func (m *Metrics) ClockEventRecorded(eventType, status string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(eventType, status).Inc()
}

func (m *Metrics) AttemptRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) OverrideApproved() {
	if m == nil {
		return
	}
	m.approvals.Inc()
}

func (m *Metrics) ObserveDistance(meters float64, within bool) {
	if m == nil {
		return
	}
	label := "false"
	if within {
		label = "true"
	}
	m.distance.WithLabelValues(label).Observe(meters)
}

func (m *Metrics) ObserveTransaction(d time.Duration) {
	if m == nil {
		return
	}
	m.validateDuration.Observe(d.Seconds())
}

func (m *Metrics) SetStaleOpenEntries(n int) {
	if m == nil {
		return
	}
	m.staleOpenEntries.Set(float64(n))
}

func (m *Metrics) SetFeedSubscribers(n int) {
	if m == nil {
		return
	}
	m.sseSubscribers.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
