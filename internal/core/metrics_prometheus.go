package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports mutation and queue metrics through a
// prometheus registry. Construct one per registry; registering the same
// recorder twice on one registry panics inside the client library.
type PrometheusMetricsRecorder struct {
	latency *prometheus.HistogramVec
	results *prometheus.CounterVec
	depth   *prometheus.GaugeVec
	dropped *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder builds a recorder and registers its collectors
// with reg. A nil reg falls back to the default registerer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusMetricsRecorder{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridcore",
			Subsystem: "mutation",
			Name:      "latency_seconds",
			Help:      "Mutation execution latency in seconds, including retries",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation", "status"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridcore",
			Subsystem: "mutation",
			Name:      "results_total",
			Help:      "Mutation executions by operation and status",
		}, []string{"operation", "status"}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gridcore",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Pending mutations per serialization key",
		}, []string{"key"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridcore",
			Subsystem: "queue",
			Name:      "dropped_total",
			Help:      "Mutations abandoned after exhausting retries",
		}, []string{"key"}),
	}
	reg.MustRegister(r.latency, r.results, r.depth, r.dropped)
	return r
}

// Observe records a mutation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.latency.WithLabelValues(operation, status).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// QueueDepth records the current depth of a serialization key's queue.
func (r *PrometheusMetricsRecorder) QueueDepth(key string, depth int) {
	r.depth.WithLabelValues(key).Set(float64(depth))
}

// Dropped counts a mutation abandoned after exhausting its retry budget.
func (r *PrometheusMetricsRecorder) Dropped(key string) {
	r.dropped.WithLabelValues(key).Inc()
}

var (
	_ MetricsRecorder = NoopMetricsRecorder{}
	_ MetricsRecorder = (*ExpvarMetricsRecorder)(nil)
	_ MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
)
