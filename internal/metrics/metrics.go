// Package metrics exposes Prometheus instrumentation for the ontology API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks job lifecycle and model slot activity.
type Metrics struct {
	registry *prometheus.Registry

	jobsCreated   *prometheus.CounterVec
	jobsCompleted *prometheus.CounterVec
	jobsFailed    *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec

	modelLoads      *prometheus.CounterVec
	adapterSwitches prometheus.Counter
	slotReady       *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontology_jobs_created_total",
				Help: "Total jobs created, by job type",
			},
			[]string{"type"},
		),
		jobsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontology_jobs_completed_total",
				Help: "Total jobs that finished successfully, by job type",
			},
			[]string{"type"},
		),
		jobsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontology_jobs_failed_total",
				Help: "Total jobs that finished with an error, by job type",
			},
			[]string{"type"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ontology_job_duration_seconds",
				Help:    "Wall-clock job duration from creation to terminal state",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"type"},
		),
		modelLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontology_model_loads_total",
				Help: "Physical base model loads, by outcome",
			},
			[]string{"outcome"},
		),
		adapterSwitches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ontology_adapter_switches_total",
				Help: "Overlay adapter switches performed on the shared base model",
			},
		),
		slotReady: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ontology_slot_ready",
				Help: "Whether a model slot is in the ready state (1) or not (0)",
			},
			[]string{"slot"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ontology_http_requests_total",
				Help: "HTTP requests served, by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}

	m.registry.MustRegister(
		m.jobsCreated,
		m.jobsCompleted,
		m.jobsFailed,
		m.jobDuration,
		m.modelLoads,
		m.adapterSwitches,
		m.slotReady,
		m.httpRequests,
	)
	return m
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobCreated records a newly created job.
func (m *Metrics) JobCreated(jobType string) {
	m.jobsCreated.WithLabelValues(jobType).Inc()
}

// JobCompleted records a successful job and its duration.
func (m *Metrics) JobCompleted(jobType string, seconds float64) {
	m.jobsCompleted.WithLabelValues(jobType).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(seconds)
}

// JobFailed records a failed job and its duration.
func (m *Metrics) JobFailed(jobType string, seconds float64) {
	m.jobsFailed.WithLabelValues(jobType).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(seconds)
}

// ModelLoad records one physical base model load attempt.
func (m *Metrics) ModelLoad(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.modelLoads.WithLabelValues(outcome).Inc()
}

// AdapterSwitch records one overlay switch on the base model.
func (m *Metrics) AdapterSwitch() {
	m.adapterSwitches.Inc()
}

// SlotReady tracks whether a model slot is currently ready.
func (m *Metrics) SlotReady(slot string, ready bool) {
	v := 0.0
	if ready {
		v = 1
	}
	m.slotReady.WithLabelValues(slot).Set(v)
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route, status string) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}
