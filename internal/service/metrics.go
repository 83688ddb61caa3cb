package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records the outcome and latency of every transformation.
type Metrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the transformation metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docgate_transform_total",
				Help: "Transformations processed, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docgate_transform_duration_seconds",
				Help:    "Time spent running a transformation engine.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"kind"},
		),
	}
	for _, c := range []prometheus.Collector{m.total, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.total.WithLabelValues(kind, outcome).Inc()
	if outcome == outcomeOK {
		m.duration.WithLabelValues(kind).Observe(seconds)
	}
}
