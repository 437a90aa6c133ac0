package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors recorded while handling chat turns.
type Metrics struct {
	Turns         *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
	Degraded      *prometheus.CounterVec
	ItemsUpserted prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planwise",
			Name:      "turns_total",
			Help:      "Chat turns handled, by outcome.",
		}, []string{"outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "planwise",
			Name:      "turn_duration_seconds",
			Help:      "Wall time spent handling a chat turn.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		Degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planwise",
			Name:      "provider_degraded_total",
			Help:      "Provider calls that fell back to empty results or fallback text.",
		}, []string{"provider"}),
		ItemsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planwise",
			Name:      "pricing_items_upserted_total",
			Help:      "Budget items merged from pricing lookups.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Turns, m.TurnDuration, m.Degraded, m.ItemsUpserted)
	}
	return m
}
