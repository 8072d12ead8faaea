package dyld

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Bootstraps        prometheus.Counter
	BootstrapFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Bootstraps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dyldsym_bootstrap_total",
			Help: "Number of dyld accessor discoveries",
		}),
		BootstrapFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dyldsym_bootstrap_failures_total",
			Help: "Number of dyld accessor discoveries that failed",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Bootstraps,
			m.BootstrapFailures,
		)
	}
	return m
}
