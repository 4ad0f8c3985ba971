// Package hashembed is a deterministic local embedder. Lowercased word tokens are
// hashed into a fixed number of buckets, so texts sharing words land close together.
// It needs no network and is used for offline runs and tests.
package hashembed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/kailas-cloud/taarya/internal/domain"
)

// DefaultDimensions matches the default paper collection.
const DefaultDimensions = 384

// Embedder produces feature-hashed, unit-length vectors.
type Embedder struct {
	dimensions int
}

// New returns an embedder of the given dimension (DefaultDimensions when <= 0).
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Dimensions returns the vector length.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed implements domain.Embedder. Token counts are reported as word counts.
func (e *Embedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec, tokens := e.vector(text)
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: tokens, TotalTokens: tokens}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		vec, tokens := e.vector(t)
		out.Embeddings[i] = vec
		out.PromptTokens += tokens
		out.TotalTokens += tokens
	}
	return out, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) vector(text string) ([]float32, int) {
	vec := make([]float32, e.dimensions)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, tok := range tokens {
		h := hash(tok)
		sign := float32(1)
		if h&1 == 1 {
			sign = -1
		}
		vec[int((h>>1)%uint64(e.dimensions))] += sign
	}

	if len(tokens) == 0 {
		// no words: spread the whole-string hash so distinct inputs still differ
		h := float64(hash(text) % 1_000_003)
		for i := range vec {
			vec[i] = float32(math.Sin(h*float64(i+1)*0.1) + 0.01)
		}
	}

	normalize(vec)
	return vec, len(tokens)
}

func hash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
