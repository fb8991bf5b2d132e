package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsNamespace matches the prefix used by the HTTP metrics.
const metricsNamespace = "vibemap"

// Metrics names as constants for consistency.
const (
	MetricRefreshTotal         = "session_refresh_total"
	MetricRefreshErrors        = "session_refresh_errors_total"
	MetricRefreshDuration      = "session_refresh_duration_seconds"
	MetricLastRefreshTimestamp = "session_last_refresh_timestamp"
	MetricPlacesLoaded         = "session_places_loaded"
	MetricReviewsLoaded        = "session_reviews_loaded"
	MetricRankingOutcomes      = "ranking_outcomes_total"
	MetricReviewsSubmitted     = "reviews_submitted_total"
)

// Metrics contains Prometheus metrics for session loading and ranking.
// All operations are thread-safe.
type Metrics struct {
	refreshTotal         prometheus.Counter
	refreshErrors        prometheus.Counter
	refreshDuration      prometheus.Histogram
	lastRefreshTimestamp prometheus.Gauge
	placesLoaded         prometheus.Gauge
	reviewsLoaded        prometheus.Gauge
	rankingOutcomes      *prometheus.CounterVec
	reviewsSubmitted     prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		refreshTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      MetricRefreshTotal,
			Help:      "Total number of session load attempts",
		}),
		refreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      MetricRefreshErrors,
			Help:      "Total number of failed session loads",
		}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      MetricRefreshDuration,
			Help:      "Histogram of session load duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}),
		lastRefreshTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      MetricLastRefreshTimestamp,
			Help:      "Unix timestamp of the last successful session load",
		}),
		placesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      MetricPlacesLoaded,
			Help:      "Number of places in the current snapshot",
		}),
		reviewsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      MetricReviewsLoaded,
			Help:      "Number of reviews in the current snapshot",
		}),
		rankingOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      MetricRankingOutcomes,
				Help:      "Total number of ranking calls by outcome mode and reason",
			},
			[]string{"mode", "reason"},
		),
		reviewsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      MetricReviewsSubmitted,
			Help:      "Total number of reviews accepted",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRefreshTotal increments the load attempt counter.
func (m *Metrics) IncRefreshTotal() {
	m.refreshTotal.Inc()
}

// IncRefreshErrors increments the failed load counter.
func (m *Metrics) IncRefreshErrors() {
	m.refreshErrors.Inc()
}

// ObserveRefreshDuration records a load duration sample.
func (m *Metrics) ObserveRefreshDuration(seconds float64) {
	m.refreshDuration.Observe(seconds)
}

// SetLastRefreshTimestamp sets the last successful load timestamp gauge.
func (m *Metrics) SetLastRefreshTimestamp(timestamp float64) {
	m.lastRefreshTimestamp.Set(timestamp)
}

// SetLoaded sets the snapshot size gauges.
func (m *Metrics) SetLoaded(places, reviews int) {
	m.placesLoaded.Set(float64(places))
	m.reviewsLoaded.Set(float64(reviews))
}

// SetReviews sets the review gauge after an in-place snapshot update.
func (m *Metrics) SetReviews(reviews int) {
	m.reviewsLoaded.Set(float64(reviews))
}

// IncRankingOutcome counts one ranking call. reason is empty for ranked outcomes.
func (m *Metrics) IncRankingOutcome(mode, reason string) {
	if reason == "" {
		reason = "none"
	}
	m.rankingOutcomes.WithLabelValues(mode, reason).Inc()
}

// IncReviewsSubmitted increments the accepted review counter.
func (m *Metrics) IncReviewsSubmitted() {
	m.reviewsSubmitted.Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.refreshTotal,
		m.refreshErrors,
		m.refreshDuration,
		m.lastRefreshTimestamp,
		m.placesLoaded,
		m.reviewsLoaded,
		m.rankingOutcomes,
		m.reviewsSubmitted,
	}
}
