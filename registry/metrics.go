package registry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registry's collectors.
type Metrics struct {
	pools       prometheus.Gauge
	createPools *prometheus.CounterVec
}

// NewMetrics creates and registers the registry's collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "amm",
			Subsystem: "registry",
			Name:      "pools",
			Help:      "Number of pools created.",
		}),
		createPools: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "registry",
			Name:      "create_pool_total",
			Help:      "CreatePool calls by outcome.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.pools, m.createPools)
	return m
}

func (m *Metrics) observeCreate(err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrPoolAlreadyExists):
		result = "exists"
	default:
		result = "invalid"
	}
	m.createPools.WithLabelValues(result).Inc()
}
