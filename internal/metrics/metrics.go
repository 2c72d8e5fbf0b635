// Package metrics exposes Prometheus collectors for the generation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Generations struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewGenerations registers the collectors with reg.
func NewGenerations(reg prometheus.Registerer) *Generations {
	g := &Generations{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quickai_generations_total",
			Help: "Generation requests by operation kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quickai_generation_duration_seconds",
			Help:    "Time spent serving a generation request.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
	}
	reg.MustRegister(g.total, g.duration)
	return g
}

func (g *Generations) Observe(kind, outcome string, elapsed time.Duration) {
	g.total.WithLabelValues(kind, outcome).Inc()
	g.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
