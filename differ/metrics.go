package differ

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the differ's collectors.
type Metrics struct {
	diffDuration *prometheus.HistogramVec
	poolChanges  *prometheus.CounterVec
}

// NewMetrics creates and registers the differ's collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amm",
			Subsystem: "differ",
			Name:      "diff_duration_seconds",
			Help:      "Time taken to diff two states.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
		}, []string{}),
		poolChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Subsystem: "differ",
			Name:      "pool_changes_total",
			Help:      "Pools reported by diffs, by kind of change.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.diffDuration, m.poolChanges)
	return m
}
