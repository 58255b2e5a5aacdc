package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	HTTPRequests           *prometheus.CounterVec
	HTTPDuration           *prometheus.HistogramVec
	Transitions            *prometheus.CounterVec
	DependentWriteFailures prometheus.Counter
	ImageUploadFailures    prometheus.Counter
	RecipeFallbacks        prometheus.Counter
	ReconciledDonations    prometheus.Counter
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "annadan_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "annadan_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "annadan_lifecycle_transitions_total",
			Help: "Applied status transitions by entity.",
		}, []string{"entity", "from", "to"}),
		DependentWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "annadan_dependent_write_failures_total",
			Help: "Donation status writes that failed after a pickup request transition.",
		}),
		ImageUploadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "annadan_image_upload_failures_total",
			Help: "Image uploads that failed and were skipped.",
		}),
		RecipeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "annadan_recipe_fallbacks_total",
			Help: "Generated recipes that could not be parsed and fell back to a template.",
		}),
		ReconciledDonations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "annadan_reconciled_donations_total",
			Help: "Donations whose status was repaired by the reconciliation sweep.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.HTTPRequests,
			m.HTTPDuration,
			m.Transitions,
			m.DependentWriteFailures,
			m.ImageUploadFailures,
			m.RecipeFallbacks,
			m.ReconciledDonations,
		)
	}
	return m
}

func (m *Metrics) Transition(entity, from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(entity, from, to).Inc()
}

func (m *Metrics) DependentWriteFailed() {
	if m == nil {
		return
	}
	m.DependentWriteFailures.Inc()
}

func (m *Metrics) ImageUploadFailed() {
	if m == nil {
		return
	}
	m.ImageUploadFailures.Inc()
}

func (m *Metrics) RecipeFellBack() {
	if m == nil {
		return
	}
	m.RecipeFallbacks.Inc()
}

func (m *Metrics) Reconciled() {
	if m == nil {
		return
	}
	m.ReconciledDonations.Inc()
}
