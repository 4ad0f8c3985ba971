package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Backend and reasoner Prometheus metrics.
var (
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend calls issued by the query router",
		},
		[]string{"backend", "operation", "status"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "operation"},
	)

	ReasonerAnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoner_answers_total",
			Help:      "Answers served per reasoner mode",
		},
		[]string{"mode"}, // "generative" / "fallback"
	)
)

var registerOnce sync.Once

// Register registers the domain metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			BackendRequestsTotal,
			BackendRequestDuration,
			ReasonerAnswersTotal,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

// ObserveBackend records one backend call.
func ObserveBackend(backend, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	BackendRequestsTotal.WithLabelValues(backend, operation, status).Inc()
	BackendRequestDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}
