// Package metrics provides domain.MetricsRecorder implementations: a
// Prometheus recorder for production deployments and an expvar recorder
// for environments that just want a JSON counter dump.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder observes operation outcomes and durations through a
// total counter, an error counter, and a duration histogram, all registered
// under the "gradecore" namespace.
type PrometheusRecorder struct {
	total    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusRecorder registers its metrics against registerer. Pass
// prometheus.DefaultRegisterer in production, or a fresh
// prometheus.NewRegistry() in tests to avoid cross-test collisions.
func NewPrometheusRecorder(registerer prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(registerer)
	return &PrometheusRecorder{
		total: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradecore",
			Name:      "operations_total",
			Help:      "Total operations observed by the run engine, by operation name.",
		}, []string{"operation"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradecore",
			Name:      "operation_errors_total",
			Help:      "Total failed operations, by operation name.",
		}, []string{"operation"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gradecore",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency in seconds, by operation name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Observe implements domain.MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.total.WithLabelValues(operation).Inc()
	if !success {
		r.errors.WithLabelValues(operation).Inc()
	}
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
}
