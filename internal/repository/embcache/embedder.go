// Package embcache caches embedding vectors in Redis so re-ingesting a paper
// or repeating a query never pays the provider twice.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/db"
	"github.com/kailas-cloud/taarya/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder decorates a provider with a read-through cache. Cache
// failures are logged and never fail the call.
type CachedEmbedder struct {
	inner   domain.Embedder
	store   store
	prefix  string
	ttl     time.Duration
	dim     int
	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

// New wraps inner. Keys are {keyPrefix}emb:{model}:{sha256(text)} so vectors
// of different models never mix. lookups takes the label "result" and may be nil.
func New(
	inner domain.Embedder,
	s store,
	keyPrefix, model string,
	lookups *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:   inner,
		store:   s,
		prefix:  keyPrefix + "emb:" + model + ":",
		lookups: lookups,
		logger:  logger,
	}
}

// WithTTL expires cached vectors after ttl. Zero keeps them until evicted.
func (c *CachedEmbedder) WithTTL(ttl time.Duration) *CachedEmbedder {
	c.ttl = ttl
	return c
}

// WithDimension treats cached vectors of any other length as misses, so a
// model switched to a new output size refills the cache.
func (c *CachedEmbedder) WithDimension(dim int) *CachedEmbedder {
	c.dim = dim
	return c
}

// Embed serves text from the cache, or from the provider on a miss. Hits report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec, ok := c.lookup(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.save(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed serves hits from the cache and sends each distinct missing text
// to the provider once, in a single batch.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := make([][]float32, len(texts))
	pending := make(map[string][]int) // text -> positions waiting for it
	var misses []string

	for i, text := range texts {
		if at, seen := pending[text]; seen {
			pending[text] = append(at, i)
			continue
		}
		if vec, ok := c.lookup(ctx, c.key(text)); ok {
			out[i] = vec
			continue
		}
		pending[text] = []int{i}
		misses = append(misses, text)
	}

	if len(misses) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := domain.EmbedBatch(ctx, c.inner, misses)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(misses), err)
	}

	for j, text := range misses {
		vec := res.Embeddings[j]
		for _, i := range pending[text] {
			out[i] = vec
		}
		c.save(ctx, c.key(text), vec)
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck reports the provider's health; the cache itself is optional.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	vec, err := c.read(ctx, key)
	if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
	}
	result := "miss"
	if err == nil {
		result = "hit"
	}
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
	return vec, err == nil
}

func (c *CachedEmbedder) read(ctx context.Context, key string) ([]float32, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err //nolint:wrapcheck // classified by lookup
	}
	vec, err := decode(data)
	if err != nil {
		return nil, err
	}
	if c.dim > 0 && len(vec) != c.dim {
		return nil, fmt.Errorf("cached vector has dimension %d, want %d", len(vec), c.dim)
	}
	return vec, nil
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, encode(vec), c.ttl); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// encode packs vec as little-endian float32s.
func encode(vec []float32) []byte {
	buf := make([]byte, 0, 4*len(vec))
	for _, f := range vec {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func decode(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector: %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
