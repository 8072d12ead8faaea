package image

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wnxd/dyldsym/dyld"
)

type Metrics struct {
	Opens   *prometheus.CounterVec
	Lookups *prometheus.CounterVec
	Dyld    *dyld.Metrics
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dyldsym_image_opens_total",
			Help: "Number of image open attempts by result",
		}, []string{"result"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dyldsym_symbol_lookups_total",
			Help: "Number of private symbol lookups by result",
		}, []string{"result"}),
		Dyld: dyld.NewMetrics(reg),
	}
	if reg != nil {
		reg.MustRegister(
			m.Opens,
			m.Lookups,
		)
	}
	return m
}
