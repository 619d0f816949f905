package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Success = "success"
	Failure = "failure"
)

// Observer is the global metrics instance.
var Observer = NewMetrics(prometheus.DefaultRegisterer)

type Metrics struct {
	prometheus Prometheus
}

// NewMetrics creates the model metrics and registers them with the given registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	p := NewPrometheusMetrics()
	registerer.MustRegister(p.collectors()...)
	return &Metrics{prometheus: p}
}

// Update records the outcome of a posterior update.
func (m *Metrics) Update(model string, observations int, err error) {
	if err != nil {
		m.prometheus.Updates.WithLabelValues(model, Failure).Inc()
		return
	}
	m.prometheus.Updates.WithLabelValues(model, Success).Inc()
	m.prometheus.Observations.WithLabelValues(model).Add(float64(observations))
}

// Posterior records the uncertainty left in the posterior and the calibration of the last batch.
func (m *Metrics) Posterior(model string, trace, coverage float64) {
	m.prometheus.Trace.WithLabelValues(model).Set(trace)
	m.prometheus.Coverage.WithLabelValues(model).Set(coverage)
}

// Remove drops the series of the given model.
func (m *Metrics) Remove(model string) {
	m.prometheus.Observations.DeleteLabelValues(model)
	m.prometheus.Updates.DeleteLabelValues(model, Success)
	m.prometheus.Updates.DeleteLabelValues(model, Failure)
	m.prometheus.Trace.DeleteLabelValues(model)
	m.prometheus.Coverage.DeleteLabelValues(model)
}

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
