package embcache

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/taarya/internal/db"
	"github.com/kailas-cloud/taarya/internal/domain"
)

// fakeProvider embeds text as [len(text), 1] and records every call.
type fakeProvider struct {
	err        error
	embedCalls []string
	batchCalls [][]string
	tokens     int
}

func (p *fakeProvider) vector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func (p *fakeProvider) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	p.embedCalls = append(p.embedCalls, text)
	if p.err != nil {
		return domain.EmbeddingResult{}, p.err
	}
	return domain.EmbeddingResult{Embedding: p.vector(text), PromptTokens: p.tokens, TotalTokens: p.tokens}, nil
}

func (p *fakeProvider) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	p.batchCalls = append(p.batchCalls, texts)
	if p.err != nil {
		return domain.BatchEmbeddingResult{}, p.err
	}
	var res domain.BatchEmbeddingResult
	for _, text := range texts {
		res.Append(domain.EmbeddingResult{Embedding: p.vector(text), PromptTokens: p.tokens, TotalTokens: p.tokens})
	}
	return res, nil
}

// memStore is an in-memory cache. getErr and setErr, when set, fail every call.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}
