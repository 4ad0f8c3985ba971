package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/taarya/internal/domain/agent"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	"github.com/kailas-cloud/taarya/internal/domain/search"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
	"github.com/kailas-cloud/taarya/internal/usecase/health"
)

// --- Mock Router ---

type mockRouter struct {
	calls []string

	hits    []domcat.Hit
	record  domcat.Record
	count   int
	papers  []domgraph.Paper
	simHits []domsim.Hit
	multi   search.Response
	cone    search.ConeContext
	sources search.SemanticSources
	stats   health.Report
	err     error

	lastLimit   int
	lastRadius  float64
	lastFilters domcat.Filters
	lastEnrich  bool
	lastRequest search.Request
}

func (m *mockRouter) ConeSearch(_ context.Context, _, _, radius float64, limit int) ([]domcat.Hit, error) {
	m.calls = append(m.calls, "cone")
	m.lastRadius, m.lastLimit = radius, limit
	return m.hits, m.err
}

func (m *mockRouter) RadialSearch(
	_ context.Context, _, _, radius float64, f domcat.Filters, limit int,
) ([]domcat.Hit, error) {
	m.calls = append(m.calls, "radial")
	m.lastRadius, m.lastLimit, m.lastFilters = radius, limit, f
	return m.hits, m.err
}

func (m *mockRouter) Lookup(_ context.Context, _ string) (domcat.Record, error) {
	m.calls = append(m.calls, "lookup")
	return m.record, m.err
}

func (m *mockRouter) NeighborsOf(_ context.Context, _ string, radius float64, limit int) ([]domcat.Hit, error) {
	m.calls = append(m.calls, "neighbors")
	m.lastRadius, m.lastLimit = radius, limit
	return m.hits, m.err
}

func (m *mockRouter) CountInRegion(_ context.Context, _, _, _ float64) (int, error) {
	m.calls = append(m.calls, "count")
	return m.count, m.err
}

func (m *mockRouter) SemanticSearch(_ context.Context, _ string, limit int) ([]domsim.Hit, error) {
	m.calls = append(m.calls, "semantic")
	m.lastLimit = limit
	return m.simHits, m.err
}

func (m *mockRouter) PapersForStar(_ context.Context, _ string) ([]domgraph.Paper, error) {
	m.calls = append(m.calls, "papers")
	return m.papers, m.err
}

func (m *mockRouter) PapersByTopic(_ context.Context, _ string, limit int) ([]domgraph.Paper, error) {
	m.calls = append(m.calls, "topic")
	m.lastLimit = limit
	return m.papers, m.err
}

func (m *mockRouter) MultiSearch(_ context.Context, req search.Request) (search.Response, error) {
	m.calls = append(m.calls, "multi")
	m.lastRequest = req
	return m.multi, m.err
}

func (m *mockRouter) ConeSearchWithContext(
	_ context.Context, _, _, _ float64, limit int, enrich bool,
) (search.ConeContext, error) {
	m.calls = append(m.calls, "cone_context")
	m.lastLimit, m.lastEnrich = limit, enrich
	return m.cone, m.err
}

func (m *mockRouter) SemanticSearchWithSources(
	_ context.Context, _, _ string, limit int,
) (search.SemanticSources, error) {
	m.calls = append(m.calls, "semantic_sources")
	m.lastLimit = limit
	return m.sources, m.err
}

func (m *mockRouter) SystemStats(_ context.Context) health.Report {
	m.calls = append(m.calls, "stats")
	return m.stats
}

// --- Mock Asker ---

type mockAsker struct {
	query   string
	history []agent.Turn
	answer  agent.Answer
	err     error
}

func (m *mockAsker) Ask(_ context.Context, query string, history []agent.Turn) (agent.Answer, error) {
	m.query, m.history = query, history
	return m.answer, m.err
}

// --- Mock HealthChecker ---

type mockHealth struct {
	report health.Report
}

func (m *mockHealth) Check(_ context.Context) health.Report { return m.report }

// --- helpers ---

func newTestHandler(rt *mockRouter, asker *mockAsker, hc *mockHealth) http.Handler {
	if asker == nil {
		asker = &mockAsker{}
	}
	if hc == nil {
		hc = &mockHealth{report: health.Report{Status: health.Healthy}}
	}
	return HandlerWithOptions(NewServer(rt, asker, hc, nil), ChiServerOptions{
		ErrorHandlerFunc: BindErrorHandler,
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
