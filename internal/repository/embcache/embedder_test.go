package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/domain"
)

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lookups"}, []string{"result"})
}

func TestEmbed_MissThenHit(t *testing.T) {
	provider := &fakeProvider{tokens: 9}
	store := newMemStore()
	lookups := newCounter()
	ce := New(provider, store, "t:", "minilm", lookups, zap.NewNop())
	ctx := context.Background()

	first, err := ce.Embed(ctx, "accretion disk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 9 {
		t.Errorf("a miss reports provider usage, got %d tokens", first.TotalTokens)
	}

	second, err := ce.Embed(ctx, "accretion disk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.embedCalls) != 1 {
		t.Errorf("expected the provider once, got %d calls", len(provider.embedCalls))
	}
	if second.TotalTokens != 0 || second.Embedding[0] != first.Embedding[0] {
		t.Errorf("a hit returns the cached vector without usage, got %+v", second)
	}
	if testutil.ToFloat64(lookups.WithLabelValues("miss")) != 1 || testutil.ToFloat64(lookups.WithLabelValues("hit")) != 1 {
		t.Error("expected one miss and one hit")
	}
}

func TestEmbed_ProviderError(t *testing.T) {
	provider := &fakeProvider{err: domain.ErrEmbeddingProviderError}
	store := newMemStore()
	ce := New(provider, store, "t:", "minilm", nil, nil)

	_, err := ce.Embed(context.Background(), "pulsar timing")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if len(store.data) != 0 {
		t.Error("failed embeddings must not be cached")
	}
}

func TestEmbed_CacheFailuresFallThrough(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemStore()
	store.getErr = errors.New("connection reset")
	store.setErr = errors.New("connection reset")
	ce := New(provider, store, "t:", "minilm", nil, zap.NewNop())

	res, err := ce.Embed(context.Background(), "cepheid")
	if err != nil {
		t.Fatalf("cache outages must not fail embedding: %v", err)
	}
	if len(res.Embedding) != 2 || len(provider.embedCalls) != 1 {
		t.Errorf("expected a provider vector, got %v after %d calls", res.Embedding, len(provider.embedCalls))
	}
}

func TestEmbed_DimensionGuardRefills(t *testing.T) {
	provider := &fakeProvider{}
	store := newMemStore()
	ce := New(provider, store, "t:", "minilm", nil, nil).WithDimension(2)
	ctx := context.Background()

	// A vector left behind by a 1-dimensional configuration.
	store.data[ce.key("quasar")] = encode([]float32{0.5})

	res, err := ce.Embed(ctx, "quasar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 2 || len(provider.embedCalls) != 1 {
		t.Fatalf("expected a fresh 2-dim vector, got %v", res.Embedding)
	}
	if vec, _ := decode(store.data[ce.key("quasar")]); len(vec) != 2 {
		t.Errorf("expected the stale entry to be overwritten, got %v", vec)
	}
}

func TestEmbed_TTL(t *testing.T) {
	store := newMemStore()
	ce := New(&fakeProvider{}, store, "t:", "minilm", nil, nil).WithTTL(time.Hour)

	if _, err := ce.Embed(context.Background(), "blazar"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.ttls[ce.key("blazar")]; got != time.Hour {
		t.Errorf("expected 1h ttl, got %s", got)
	}
}

func TestBatchEmbed_OnlyDistinctMissesReachProvider(t *testing.T) {
	provider := &fakeProvider{tokens: 4}
	store := newMemStore()
	ce := New(provider, store, "t:", "minilm", nil, nil)
	ctx := context.Background()

	if _, err := ce.Embed(ctx, "Vega"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	texts := []string{"Sirius", "Vega", "Sirius", "Betelgeuse"}
	res, err := ce.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(provider.batchCalls) != 1 {
		t.Fatalf("expected one batch call, got %d", len(provider.batchCalls))
	}
	if got := strings.Join(provider.batchCalls[0], ","); got != "Sirius,Betelgeuse" {
		t.Errorf("expected only distinct misses in order, got %s", got)
	}
	for i, text := range texts {
		if res.Embeddings[i][0] != float32(len(text)) {
			t.Errorf("vector %d belongs to another text: %v", i, res.Embeddings[i])
		}
	}
	if res.TotalTokens != 8 {
		t.Errorf("expected usage of the two misses, got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_AllCached(t *testing.T) {
	provider := &fakeProvider{}
	ce := New(provider, newMemStore(), "t:", "minilm", nil, nil)
	ctx := context.Background()

	texts := []string{"M31", "M33"}
	if _, err := ce.BatchEmbed(ctx, texts); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	res, err := ce.BatchEmbed(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(provider.batchCalls) != 1 {
		t.Errorf("expected the second batch to be served from cache, got %d calls", len(provider.batchCalls))
	}
	if len(res.Embeddings) != 2 || res.TotalTokens != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestBatchEmbed_ProviderError(t *testing.T) {
	ce := New(&fakeProvider{err: errors.New("503")}, newMemStore(), "t:", "minilm", nil, nil)
	if _, err := ce.BatchEmbed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	provider := &fakeProvider{}
	res, err := New(provider, newMemStore(), "t:", "minilm", nil, nil).BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil || len(provider.batchCalls) != 0 {
		t.Fatalf("expected a no-op, got %+v, %v", res, err)
	}
}

func TestKey_NamespacedByModel(t *testing.T) {
	a := New(&fakeProvider{}, newMemStore(), "taarya:", "model-a", nil, nil)
	b := New(&fakeProvider{}, newMemStore(), "taarya:", "model-b", nil, nil)

	if a.key("vega") == b.key("vega") {
		t.Fatal("keys of different models must differ")
	}
	if !strings.HasPrefix(a.key("vega"), "taarya:emb:model-a:") {
		t.Errorf("unexpected key: %s", a.key("vega"))
	}
}

func TestDecode_RejectsCorruptData(t *testing.T) {
	for _, data := range [][]byte{nil, {1, 2, 3}} {
		if _, err := decode(data); err == nil {
			t.Errorf("expected error for %d bytes", len(data))
		}
	}
	vec, err := decode(encode([]float32{1.5, -2}))
	if err != nil || vec[0] != 1.5 || vec[1] != -2 {
		t.Errorf("round trip failed: %v, %v", vec, err)
	}
}
