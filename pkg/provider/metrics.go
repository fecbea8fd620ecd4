package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Strategy outcomes recorded in metrics.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Metrics counts strategy outcomes per provider. A nil *Metrics records nothing.
type Metrics struct {
	strategyResults *prometheus.CounterVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	return &Metrics{
		strategyResults: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_results_total",
			Help:      "Outcomes of provider now-playing strategies.",
		}, []string{"provider", "strategy", "result"}),
	}
}

func (m *Metrics) observe(provider, strategy, result string) {
	if m == nil {
		return
	}
	m.strategyResults.WithLabelValues(provider, strategy, result).Inc()
}
