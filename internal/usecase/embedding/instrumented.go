// Package embedding decorates an embedding provider with logging, request
// splitting and a dimension guard. It is the outermost layer of the chain
// provider -> cache -> instrumented that the similarity service sees.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/domain"
	"github.com/kailas-cloud/taarya/internal/metrics"
)

// DefaultMaxAPIBatchSize is the largest batch sent in one provider request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder logs every call and rejects vectors whose length is not
// the collection dimension. Provider request metrics live in transport/openai.
type InstrumentedEmbedder struct {
	inner     domain.Embedder
	provider  string
	model     string
	dimension int
	maxBatch  int
	logger    *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. A dimension of 0 disables the guard.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, dimension int, logger *zap.Logger,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:     inner,
		provider:  provider,
		model:     model,
		dimension: dimension,
		maxBatch:  DefaultMaxAPIBatchSize,
		logger:    logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// WithMaxBatch caps the texts sent per provider request.
func (p *InstrumentedEmbedder) WithMaxBatch(n int) *InstrumentedEmbedder {
	if n > 0 {
		p.maxBatch = n
	}
	return p
}

// Embed vectorizes one text.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Error("Embedding failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	if err := p.guard(res.Embedding); err != nil {
		return domain.EmbeddingResult{}, err
	}

	p.logger.Debug("Embedded text",
		zap.Duration("duration", time.Since(start)),
		zap.Int("chars", len(text)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// BatchEmbed vectorizes texts in requests of at most maxBatch, keeping input order.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	requests := 0

	for offset := 0; offset < len(texts); offset += p.maxBatch {
		chunk := texts[offset:min(offset+p.maxBatch, len(texts))]
		res, err := domain.EmbedBatch(ctx, p.inner, chunk)
		if err != nil {
			p.logger.Error("Batch embedding failed",
				zap.Int("offset", offset), zap.Int("chunk", len(chunk)), zap.Error(err))
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed at offset %d: %w", offset, err)
		}
		requests++

		for i, vec := range res.Embeddings {
			if err := p.guard(vec); err != nil {
				return domain.BatchEmbeddingResult{}, fmt.Errorf("text %d: %w", offset+i, err)
			}
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	p.logger.Debug("Embedded batch",
		zap.Duration("duration", time.Since(start)),
		zap.Int("texts", len(texts)),
		zap.Int("requests", requests),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

// guard rejects vectors that would not fit the collection; they are never padded or cut.
func (p *InstrumentedEmbedder) guard(vec []float32) error {
	if p.dimension == 0 || len(vec) == p.dimension {
		return nil
	}
	metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, "dimension_mismatch").Inc()
	p.logger.Error("Embedding dimension mismatch", zap.Int("expected", p.dimension), zap.Int("got", len(vec)))
	return fmt.Errorf("%w: expected %d dimensions, got %d", domain.ErrEmbeddingProviderError, p.dimension, len(vec))
}

// HealthCheck delegates to the wrapped provider when it supports checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
