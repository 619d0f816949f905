package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus holds the collectors for the model metrics.
type Prometheus struct {
	Observations *prometheus.CounterVec
	Updates      *prometheus.CounterVec
	Trace        *prometheus.GaugeVec
	Coverage     *prometheus.GaugeVec
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Observations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bayes",
				Name:      "observations",
				Help:      "observations absorbed into the posterior",
			}, []string{"model"}),
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bayes",
				Name:      "updates",
				Help:      "posterior updates by outcome",
			}, []string{"model", "outcome"}),
		Trace: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bayes",
				Name:      "posterior_trace",
				Help:      "trace of the posterior covariance",
			}, []string{"model"}),
		Coverage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bayes",
				Name:      "coverage",
				Help:      "fraction of the last batch within the prediction limits",
			}, []string{"model"}),
	}
}

func (p Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{p.Observations, p.Updates, p.Trace, p.Coverage}
}
