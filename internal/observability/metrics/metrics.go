package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "tablebook"

	submissionsName  = "tablebook_booking_submissions_total"
	availabilityName = "tablebook_booking_availability_total"
	upstreamName     = "tablebook_upstream_request_duration_seconds"
)

// BookingMetrics exposes counters/histograms for the booking form and its upstream API.
type BookingMetrics struct {
	submissions      *prometheus.CounterVec
	availability     *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Reservation submissions by outcome",
		}, []string{"outcome"}),
		availability: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "availability_total",
			Help:      "Reconciled slot lists by source (live, fallback, special_date)",
		}, []string{"source"}),
		validationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "validation_errors_total",
			Help:      "Field errors reported when a submission is blocked",
		}, []string{"field", "code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the restaurant API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.availability, m.validationErrors, m.upstreamLatency)
	return m
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveAvailability(source string) {
	if m == nil {
		return
	}
	m.availability.WithLabelValues(source).Inc()
}

func (m *BookingMetrics) ObserveValidationError(field, code string) {
	if m == nil {
		return
	}
	m.validationErrors.WithLabelValues(field, code).Inc()
}

func (m *BookingMetrics) ObserveUpstream(endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(endpoint, status).Observe(seconds)
}
