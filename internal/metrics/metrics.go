package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of analysis runs.
type Metrics struct {
	Registry *prometheus.Registry

	AnalysesTotal     *prometheus.CounterVec // labels: direction
	FailuresTotal     *prometheus.CounterVec // labels: reason
	ExplainerFailures prometheus.Counter
	FetchDuration     prometheus.Histogram
}

// NewMetrics registers and returns all metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moonia_analyses_total",
			Help: "Completed analyses by signal direction",
		}, []string{"direction"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moonia_analysis_failures_total",
			Help: "Failed analyses by reason",
		}, []string{"reason"}),
		ExplainerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moonia_explainer_failures_total",
			Help: "Explanations that came back as error text",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moonia_fetch_duration_seconds",
			Help:    "Time spent fetching price history",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.Registry.MustRegister(m.AnalysesTotal, m.FailuresTotal, m.ExplainerFailures, m.FetchDuration)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
