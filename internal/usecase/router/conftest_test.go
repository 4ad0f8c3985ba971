package router

import (
	"context"
	"sync"

	"github.com/kailas-cloud/taarya/internal/domain"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// --- Catalog mock ---

type mockCatalog struct {
	mu      sync.Mutex
	calls   int
	records map[string]domcat.Record
	hits    []domcat.Hit
	count   int
	err     error
	// coneHook runs inside ConeSearch before returning (used for concurrency and timeout tests).
	coneHook func(ctx context.Context) error
}

func (m *mockCatalog) inc() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockCatalog) ConeSearch(ctx context.Context, _, _, _ float64, limit int) ([]domcat.Hit, error) {
	m.inc()
	if m.coneHook != nil {
		if err := m.coneHook(ctx); err != nil {
			return nil, err
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.hits[:min(limit, len(m.hits))], nil
}

func (m *mockCatalog) RadialSearchFiltered(
	ctx context.Context, ra, dec, radius float64, _ domcat.Filters, limit int,
) ([]domcat.Hit, error) {
	return m.ConeSearch(ctx, ra, dec, radius, limit)
}

func (m *mockCatalog) Lookup(_ context.Context, id string) (domcat.Record, error) {
	m.inc()
	if m.err != nil {
		return domcat.Record{}, m.err
	}
	rec, ok := m.records[id]
	if !ok {
		return domcat.Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *mockCatalog) NeighborsOf(_ context.Context, _ string, _ float64, _ int) ([]domcat.Hit, error) {
	m.inc()
	return m.hits, m.err
}

func (m *mockCatalog) CountInRegion(_ context.Context, _, _, _ float64) (int, error) {
	m.inc()
	return m.count, m.err
}

func (m *mockCatalog) Count(_ context.Context) (int, error) {
	m.inc()
	return m.count, m.err
}

// --- Similarity mock ---

type mockSimilarity struct {
	mu         sync.Mutex
	calls      int
	collection string
	hits       []domsim.Hit
	err        error
	infoErr    error
	searchHook func(ctx context.Context) error
}

func (m *mockSimilarity) SearchSimilar(
	ctx context.Context, collection, _ string, limit int, _ *float64, _ map[string]string,
) ([]domsim.Hit, error) {
	m.mu.Lock()
	m.calls++
	m.collection = collection
	m.mu.Unlock()
	if m.searchHook != nil {
		if err := m.searchHook(ctx); err != nil {
			return nil, err
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.hits[:min(limit, len(m.hits))], nil
}

func (m *mockSimilarity) CollectionInfo(_ context.Context, name string) (domsim.CollectionInfo, error) {
	if m.infoErr != nil {
		return domsim.CollectionInfo{}, m.infoErr
	}
	return domsim.CollectionInfo{Name: name, Exists: true, PointsCount: 3, VectorsCount: 3, Status: domsim.StatusGreen}, nil
}

func (m *mockSimilarity) DefaultCollection() string { return "papers" }

// --- Graph mock ---

type mockGraph struct {
	mu           sync.Mutex
	papersCalls  []string
	starsCalls   []string
	papers       map[string][]domgraph.Paper
	stars        map[string][]domgraph.StarRef
	related      []domgraph.RelatedStar
	err          error
	papersErrFor map[string]error
}

func (m *mockGraph) PapersForStar(_ context.Context, id string) ([]domgraph.Paper, error) {
	m.mu.Lock()
	m.papersCalls = append(m.papersCalls, id)
	m.mu.Unlock()
	if err := m.papersErrFor[id]; err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.papers[id], nil
}

func (m *mockGraph) StarsInPaper(_ context.Context, arxivID string) ([]domgraph.StarRef, error) {
	m.mu.Lock()
	m.starsCalls = append(m.starsCalls, arxivID)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.stars[arxivID], nil
}

func (m *mockGraph) RelatedStars(_ context.Context, _ string, _, limit int) ([]domgraph.RelatedStar, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.related[:min(limit, len(m.related))], nil
}

func (m *mockGraph) PapersByTopicKeyword(_ context.Context, _ string, _ int) ([]domgraph.Paper, error) {
	return nil, m.err
}

func (m *mockGraph) GraphStats(_ context.Context) (domgraph.Stats, error) {
	if m.err != nil {
		return domgraph.Stats{}, m.err
	}
	return domgraph.Stats{Stars: 2, Papers: 1, Relationships: 2}, nil
}

// --- Helpers ---

func strp(s string) *string   { return &s }
func f64p(v float64) *float64 { return &v }

func starHits(ids ...string) []domcat.Hit {
	out := make([]domcat.Hit, len(ids))
	for i, id := range ids {
		out[i] = domcat.Hit{Record: domcat.Record{ID: id, RA: 45, Dec: 0.5}, AngularDistance: float64(i) * 0.01}
	}
	return out
}

func fixture() (*mockCatalog, *mockSimilarity, *mockGraph) {
	cat := &mockCatalog{
		records: map[string]domcat.Record{"S1": {ID: "S1", RA: 45, Dec: 0.5}},
		hits:    starHits("S1", "S2"),
		count:   2,
	}
	sim := &mockSimilarity{hits: []domsim.Hit{
		{ID: "1", Score: 0.9, Metadata: map[string]string{domsim.MetaExternalID: "P1", domsim.MetaTitle: "Binary stars"}},
	}}
	g := &mockGraph{
		papers:  map[string][]domgraph.Paper{"S1": {{ArxivID: "P1", Title: "Binary stars"}}},
		stars:   map[string][]domgraph.StarRef{"P1": {{SourceID: "S1"}, {SourceID: "S2"}}},
		related: []domgraph.RelatedStar{{SourceID: "S2", Hops: 2}},
	}
	return cat, sim, g
}
