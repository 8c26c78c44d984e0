package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/davinci/pkg/domain"
)

const namespace = "davinci"

// Metrics holds the collectors fed by the workflow hooks.
type Metrics struct {
	Nodes     *prometheus.CounterVec
	Requests  *prometheus.CounterVec
	Durations *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Nodes entered, by kind.",
		}, []string{"kind"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Round trips to the flow server, by method and outcome.",
		}, []string{"method", "outcome"}),
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Round trip latency to the flow server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.Nodes, m.Requests, m.Durations)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.Nodes.WithLabelValues(e.Kind).Inc()
		},
		OnResponse: func(ctx context.Context, e *domain.ResponseEvent) {
			m.Requests.WithLabelValues(e.Method, outcome(e)).Inc()
			m.Durations.WithLabelValues(e.Method).Observe(e.Duration.Seconds())
		},
	}
}

// outcome buckets a response into error, or its status class (2xx, 4xx...).
func outcome(e *domain.ResponseEvent) string {
	if e.Err != nil || e.Status == 0 {
		return "error"
	}
	return strconv.Itoa(e.Status/100) + "xx"
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
