// Package metrics exposes Prometheus instrumentation for assessments.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardiopredict/web/internal/domain"
)

const namespace = "cardio"

// Recorder owns the assessment metrics and the registry they live in.
type Recorder struct {
	registry *prometheus.Registry

	submissions     *prometheus.CounterVec
	tiers           *prometheus.CounterVec
	predictLatency  prometheus.Histogram
	activeSessions  prometheus.Gauge
	rejectedInputs  prometheus.Counter
	inFlightRejects prometheus.Counter
}

// New builds a Recorder on a private registry so tests can create many.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "settled_total",
			Help:      "Settled submissions by outcome.",
		}, []string{"outcome"}),
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "tier_total",
			Help:      "Succeeded submissions by display risk tier.",
		}, []string{"tier"}),
		predictLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "predictor",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the prediction service.",
			Buckets:   prometheus.DefBuckets,
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Assessment sessions currently held in memory.",
		}),
		rejectedInputs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "validation_rejected_total",
			Help:      "Submissions blocked by input validation.",
		}),
		inFlightRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assessment",
			Name:      "in_flight_rejected_total",
			Help:      "Submissions ignored because one was already pending.",
		}),
	}
	reg.MustRegister(r.submissions, r.tiers, r.predictLatency, r.activeSessions, r.rejectedInputs, r.inFlightRejects)
	return r
}

// Settled records one settled submission.
func (r *Recorder) Settled(outcome domain.Outcome, tier domain.RiskTier, latency time.Duration) {
	r.submissions.WithLabelValues(string(outcome)).Inc()
	if outcome == domain.OutcomeStale {
		return
	}
	r.predictLatency.Observe(latency.Seconds())
	if outcome == domain.OutcomeSucceeded {
		r.tiers.WithLabelValues(string(tier)).Inc()
	}
}

// Rejected records a submission that never reached the backend.
func (r *Recorder) Rejected(err error) {
	if errors.Is(err, domain.ErrSubmissionInFlight) {
		r.inFlightRejects.Inc()
		return
	}
	r.rejectedInputs.Inc()
}

// SetActiveSessions updates the session gauge.
func (r *Recorder) SetActiveSessions(n int) {
	r.activeSessions.Set(float64(n))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
