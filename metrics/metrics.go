package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the routing service.
type Metrics struct {
	SamplesTotal        *prometheus.CounterVec
	StateCode           prometheus.Gauge
	StateTransitions    *prometheus.CounterVec
	FallbackActivations prometheus.Counter
	FallbackSeconds     prometheus.Counter
	AnomaliesTotal      prometheus.Counter
	AnomalyDeltaPct     prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg. Tests pass a fresh registry so
// repeated constructions do not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SamplesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedrouter_samples_total",
			Help: "Samples seen per provider by outcome (routed or rejected)",
		}, []string{"source", "outcome"}),

		StateCode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feedrouter_state",
			Help: "Current routing state (0 startup, 1 primary, 2 fallback, 3 both unavailable)",
		}),

		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedrouter_state_transitions_total",
			Help: "State transitions by destination state",
		}, []string{"to"}),

		FallbackActivations: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedrouter_fallback_activations_total",
			Help: "Times the fallback feed became authoritative",
		}),

		FallbackSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedrouter_fallback_seconds_total",
			Help: "Cumulative seconds spent on the fallback feed",
		}),

		AnomaliesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedrouter_anomalies_total",
			Help: "Routed samples that moved hard against the previous routed price",
		}),

		AnomalyDeltaPct: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedrouter_anomaly_delta_pct",
			Help:    "Absolute percent move of anomalous samples against the previous routed price",
			Buckets: []float64{5, 7.5, 10, 15, 20, 30, 50, 100},
		}),
	}
}
