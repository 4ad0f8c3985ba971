package reasoner

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/taarya/internal/domain"
	"github.com/kailas-cloud/taarya/internal/domain/agent"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// --- Router mock ---

type coneCall struct {
	ra, dec, radius float64
	limit           int
}

type mockRouter struct {
	cones     []coneCall
	hits      []domcat.Hit
	records   map[string]domcat.Record
	papers    []domsim.Hit
	semantic  []string
	semLimit  int
	graph     []domgraph.Paper
	related   []domgraph.RelatedStar
	count     int
	err       error
	neighbors []domcat.Hit
}

func (m *mockRouter) ConeSearch(_ context.Context, ra, dec, radius float64, limit int) ([]domcat.Hit, error) {
	m.cones = append(m.cones, coneCall{ra, dec, radius, limit})
	if m.err != nil {
		return nil, m.err
	}
	return m.hits[:min(limit, len(m.hits))], nil
}

func (m *mockRouter) Lookup(_ context.Context, id string) (domcat.Record, error) {
	if m.err != nil {
		return domcat.Record{}, m.err
	}
	rec, ok := m.records[id]
	if !ok {
		return domcat.Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *mockRouter) NeighborsOf(_ context.Context, id string, _ float64, _ int) ([]domcat.Hit, error) {
	if _, ok := m.records[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return m.neighbors, m.err
}

func (m *mockRouter) CountInRegion(_ context.Context, _, _, _ float64) (int, error) {
	return m.count, m.err
}

func (m *mockRouter) SemanticSearch(_ context.Context, text string, limit int) ([]domsim.Hit, error) {
	m.semantic = append(m.semantic, text)
	m.semLimit = limit
	return m.papers, m.err
}

func (m *mockRouter) PapersForStar(_ context.Context, _ string) ([]domgraph.Paper, error) {
	return m.graph, m.err
}

func (m *mockRouter) RelatedStars(_ context.Context, _ string, _, _ int) ([]domgraph.RelatedStar, error) {
	return m.related, m.err
}

// --- Chat mock ---

type mockChat struct {
	replies   []agent.Message
	err       error
	calls     int
	seen      [][]agent.Message
	deadlines []time.Time
}

func (m *mockChat) Complete(ctx context.Context, msgs []agent.Message, tools []agent.ToolSpec) (agent.Message, error) {
	m.seen = append(m.seen, append([]agent.Message(nil), msgs...))
	if d, ok := ctx.Deadline(); ok {
		m.deadlines = append(m.deadlines, d)
	}
	m.calls++
	if m.err != nil {
		return agent.Message{}, m.err
	}
	if len(tools) == 0 {
		return agent.Message{}, errors.New("no tools offered")
	}
	if len(m.replies) == 0 {
		return agent.Message{Role: agent.RoleAssistant, Content: "done"}, nil
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r, nil
}

// --- Helpers ---

func f64p(v float64) *float64 { return &v }

func newMockRouter() *mockRouter {
	return &mockRouter{
		hits: []domcat.Hit{
			{Record: domcat.Record{ID: "S1", RA: 45, Dec: 0.5, MagnitudeG: f64p(8.1)}},
			{Record: domcat.Record{ID: "S2", RA: 45.1, Dec: 0.5}, AngularDistance: 0.1},
		},
		records: map[string]domcat.Record{
			"S1": {ID: "S1", RA: 45, Dec: 0.5, Parallax: f64p(10), MagnitudeG: f64p(8.1), MagnitudeBP: f64p(8.5), MagnitudeRP: f64p(7.6)},
		},
		papers: []domsim.Hit{
			{ID: "1", Score: 0.87, Metadata: map[string]string{domsim.MetaTitle: "Wide binaries in Gaia", domsim.MetaExternalID: "2301.00001"}},
		},
		graph:   []domgraph.Paper{{ArxivID: "2301.00001", Title: "Wide binaries in Gaia"}},
		related: []domgraph.RelatedStar{{SourceID: "S2", Hops: 2}},
		count:   42,
	}
}
