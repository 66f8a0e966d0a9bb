// Package metrics defines the Prometheus collectors of the estimator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/standardbeagle/estimator/internal/apperr"
)

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	outcomes      *prometheus.CounterVec
	requests      *prometheus.HistogramVec
	invalidations prometheus.Counter
	staleResults  prometheus.Counter
	reg           prometheus.Registerer
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estimator",
			Name:      "operation_outcomes_total",
			Help:      "Orchestrator operations by result.",
		}, []string{"operation", "outcome"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "estimator",
			Name:      "dataservice_request_seconds",
			Help:      "Latency of data service calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estimator",
			Name:      "cache_invalidations_total",
			Help:      "Cache invalidations after mutations or external changes.",
		}),
		staleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estimator",
			Name:      "stale_results_total",
			Help:      "Async results discarded because the view moved on.",
		}),
	}
	m.reg = reg
	if reg != nil {
		reg.MustRegister(m.outcomes, m.requests, m.invalidations, m.staleResults)
	}
	return m
}

// Outcome counts an orchestrator result. err, when set, decides the label.
func (m *Metrics) Outcome(operation, outcome string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

// ObserveRequest implements dataservice.Observer.
func (m *Metrics) ObserveRequest(operation string, took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = string(apperr.Classify(operation, err).Kind)
	}
	m.requests.WithLabelValues(operation, status).Observe(took.Seconds())
}

// CacheInvalidated counts one invalidation.
func (m *Metrics) CacheInvalidated(string) {
	if m == nil {
		return
	}
	m.invalidations.Inc()
}

// StaleResult counts one discarded async result.
func (m *Metrics) StaleResult() {
	if m == nil {
		return
	}
	m.staleResults.Inc()
}

// TrackCacheSize exports size as the cache entries gauge.
func (m *Metrics) TrackCacheSize(size func() int) {
	if m == nil || m.reg == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "estimator",
		Name:      "cache_entries",
		Help:      "Estimates held in the cache.",
	}, func() float64 { return float64(size()) }))
}
