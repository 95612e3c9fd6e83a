// Package metrics exposes Prometheus collectors for cart activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	cartOps   *prometheus.CounterVec
	cartUnits prometheus.Histogram
}

// New builds a registry holding the cart collectors plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		cartOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "indieconverters",
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart operations by kind and outcome.",
		}, []string{"op", "result"}),
		cartUnits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "indieconverters",
			Subsystem: "cart",
			Name:      "units",
			Help:      "Units in a cart after each change.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
	}
	reg.MustRegister(
		m.cartOps,
		m.cartUnits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// CartOp counts one finished cart operation.
func (m *Metrics) CartOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cartOps.WithLabelValues(op, result).Inc()
}

// CartUnits records the unit count of a cart after a change.
func (m *Metrics) CartUnits(n int) { m.cartUnits.Observe(float64(n)) }
