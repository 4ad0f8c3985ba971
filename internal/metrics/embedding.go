package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace          = "taarya"
	embeddingSubsystem = "embedding"
)

// Embedding provider metrics, labelled by provider and model. Exposed as
// taarya_embedding_*.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "requests_total",
			Help:      "Embedding provider calls by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Latency of successful embedding provider calls",
			Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10),
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "tokens_total",
			Help:      "Tokens billed by the embedding provider",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "errors_total",
			Help:      "Embedding failures by kind",
		},
		[]string{"provider", "model", "error_type"},
	)

	// EmbeddingCacheTotal counts cache lookups; result is "hit" or "miss".
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: embeddingSubsystem,
			Name:      "cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"result"},
	)
)

// EmbeddingCall is the outcome of one provider round-trip.
type EmbeddingCall struct {
	Provider     string
	Model        string
	Start        time.Time
	PromptTokens int
	TotalTokens  int
	// ErrorKind is empty on success.
	ErrorKind string
}

// ObserveEmbedding records c. Latency is only observed for successful calls.
func ObserveEmbedding(c EmbeddingCall) {
	if c.ErrorKind != "" {
		EmbeddingRequestsTotal.WithLabelValues(c.Provider, c.Model, "error").Inc()
		EmbeddingErrorsTotal.WithLabelValues(c.Provider, c.Model, c.ErrorKind).Inc()
		return
	}

	EmbeddingRequestsTotal.WithLabelValues(c.Provider, c.Model, "success").Inc()
	EmbeddingRequestDuration.WithLabelValues(c.Provider, c.Model).Observe(time.Since(c.Start).Seconds())
	if c.TotalTokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(c.Provider, c.Model, "prompt").Add(float64(c.PromptTokens))
		EmbeddingTokensTotal.WithLabelValues(c.Provider, c.Model, "total").Add(float64(c.TotalTokens))
	}
}
