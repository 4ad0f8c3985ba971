package domain

import (
	"context"
	"fmt"
)

// Embedder turns text into a fixed-length vector. Identical input yields identical output.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single provider call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one vector and the tokens spent producing it. Cache hits
// report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult holds vectors in input order and the summed usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Append adds one vector and its usage.
func (b *BatchEmbeddingResult) Append(r EmbeddingResult) {
	b.Embeddings = append(b.Embeddings, r.Embedding)
	b.PromptTokens += r.PromptTokens
	b.TotalTokens += r.TotalTokens
}

// EmbedBatch vectorizes texts with one provider call when e implements
// BatchEmbedder, otherwise one call per text. A reply with the wrong number of
// vectors is an ErrEmbeddingProviderError.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	var (
		res BatchEmbeddingResult
		err error
	)
	if be, ok := e.(BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("batch embed %d texts: %w", len(texts), err)
		}
	} else {
		res.Embeddings = make([][]float32, 0, len(texts))
		for i, text := range texts {
			one, err := e.Embed(ctx, text)
			if err != nil {
				return BatchEmbeddingResult{}, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
			}
			res.Append(one)
		}
	}

	if len(res.Embeddings) != len(texts) {
		return BatchEmbeddingResult{}, fmt.Errorf("%w: %d vectors for %d texts",
			ErrEmbeddingProviderError, len(res.Embeddings), len(texts))
	}
	return res, nil
}
