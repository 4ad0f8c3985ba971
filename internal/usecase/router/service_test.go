package router

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/taarya/internal/domain"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	"github.com/kailas-cloud/taarya/internal/domain/search"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
	"github.com/kailas-cloud/taarya/internal/usecase/health"
)

func mustRequest(t *testing.T, p search.Params) search.Request {
	t.Helper()
	req, err := search.New(p)
	require.NoError(t, err)
	return req
}

func TestMultiSearch_IdentifierOnly(t *testing.T) {
	cat, sim, g := fixture()
	svc := New(cat, sim, g)

	resp, err := svc.MultiSearch(context.Background(), mustRequest(t, search.Params{SourceID: strp("S1")}))
	require.NoError(t, err)

	assert.Equal(t, []string{"graph"}, resp.BackendsUsed)
	assert.Nil(t, resp.Spatial)
	assert.Nil(t, resp.Semantic)
	require.NotNil(t, resp.StarDetail)
	assert.Equal(t, "S1", resp.StarDetail.Star.ID)
	assert.Len(t, resp.StarDetail.Papers, 1)
	assert.Len(t, resp.StarDetail.RelatedStars, 1)
	assert.Zero(t, sim.calls, "similarity must not be queried")
}

func TestMultiSearch_NoSignalIsUnclassifiable(t *testing.T) {
	cat, sim, g := fixture()

	_, err := New(cat, sim, g).MultiSearch(context.Background(), mustRequest(t, search.Params{Text: strp("   ")}))
	require.ErrorIs(t, err, domain.ErrUnclassifiable)
	assert.Zero(t, cat.calls)
	assert.Zero(t, sim.calls)
}

func TestMultiSearch_AllRoutes(t *testing.T) {
	cat, sim, g := fixture()

	resp, err := New(cat, sim, g).MultiSearch(context.Background(), mustRequest(t, search.Params{
		Text: strp("binary stars"), RA: f64p(45), Dec: f64p(0.5), Radius: f64p(1), SourceID: strp("S1"),
	}))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"spatial", "semantic", "graph"}, resp.BackendsUsed)
	require.NotNil(t, resp.Spatial)
	assert.Equal(t, 2, resp.Spatial.Count)
	require.NotNil(t, resp.Semantic)
	assert.Equal(t, 1, resp.Semantic.Count)
	assert.NotNil(t, resp.StarDetail)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, "binary stars", resp.Query.Text)
}

func TestMultiSearch_NeverEnriches(t *testing.T) {
	cat, sim, g := fixture()

	resp, err := New(cat, sim, g).MultiSearch(context.Background(), mustRequest(t, search.Params{
		Text: strp("binary stars"), RA: f64p(45), Dec: f64p(0.5), Radius: f64p(1),
	}))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"spatial", "semantic"}, resp.BackendsUsed)
	assert.Nil(t, resp.StarDetail)
	assert.Empty(t, g.papersCalls, "spatial hits are not decorated with papers")
	assert.Empty(t, g.starsCalls, "semantic hits are not decorated with stars")
}

func TestMultiSearch_FailureIsIsolated(t *testing.T) {
	cat, sim, g := fixture()
	sim.err = errors.New("redis: connection refused")

	resp, err := New(cat, sim, g).MultiSearch(context.Background(), mustRequest(t, search.Params{
		Text: strp("binary stars"), RA: f64p(45), Dec: f64p(0.5), Radius: f64p(1),
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"spatial"}, resp.BackendsUsed)
	require.NotNil(t, resp.Spatial)
	assert.Nil(t, resp.Semantic)
	assert.Contains(t, resp.Errors["semantic"], "connection refused")
	assert.Contains(t, resp.Errors["semantic"], domain.BackendSimilarity)
}

func TestMultiSearch_AllRoutesFail(t *testing.T) {
	cat, sim, g := fixture()
	cat.err = errors.New("pq: too many connections")
	sim.err = errors.New("redis: timeout")

	resp, err := New(cat, sim, g).MultiSearch(context.Background(), mustRequest(t, search.Params{
		Text: strp("binary stars"), RA: f64p(45), Dec: f64p(0.5), Radius: f64p(1),
	}))
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Len(t, resp.Errors, 2)
	assert.Empty(t, resp.BackendsUsed)
}

func TestMultiSearch_SingleRouteFailureKeepsCause(t *testing.T) {
	cat, sim, g := fixture()

	_, err := New(cat, sim, g).MultiSearch(context.Background(), mustRequest(t, search.Params{SourceID: strp("S404")}))
	require.ErrorIs(t, err, domain.ErrNotFound)

	var be *domain.BackendError
	assert.False(t, errors.As(err, &be), "not-found must not be tagged as a backend failure")
}

func TestMultiSearch_RoutesRunConcurrently(t *testing.T) {
	cat, sim, g := fixture()
	catStarted, simStarted := make(chan struct{}), make(chan struct{})

	// Each backend waits for the other to start; sequential dispatch would time out.
	cat.coneHook = func(ctx context.Context) error {
		close(catStarted)
		select {
		case <-simStarted:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	sim.searchHook = func(ctx context.Context) error {
		close(simStarted)
		select {
		case <-catStarted:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	resp, err := New(cat, sim, g).WithTimeout(2*time.Second).MultiSearch(context.Background(), mustRequest(t, search.Params{
		Text: strp("binary stars"), RA: f64p(45), Dec: f64p(0.5), Radius: f64p(1),
	}))
	require.NoError(t, err)
	assert.Empty(t, resp.Errors)
	assert.Len(t, resp.BackendsUsed, 2)
}

func TestMultiSearch_SlowBackendTimesOut(t *testing.T) {
	cat, sim, g := fixture()
	sim.searchHook = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	start := time.Now()
	resp, err := New(cat, sim, g).WithTimeout(50*time.Millisecond).MultiSearch(context.Background(), mustRequest(t, search.Params{
		Text: strp("binary stars"), RA: f64p(45), Dec: f64p(0.5), Radius: f64p(1),
	}))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"spatial"}, resp.BackendsUsed)
	assert.Contains(t, resp.Errors["semantic"], context.DeadlineExceeded.Error())
}

func TestCall_TagsTransportErrorsOnly(t *testing.T) {
	svc := New(nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		err    error
		tagged bool
	}{
		{"transport", errors.New("dial tcp: refused"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"not found", fmt.Errorf("lookup: %w", domain.ErrNotFound), false},
		{"invalid", domain.ErrInvalidParameter, false},
		{"embedding", domain.ErrEmbeddingProviderError, false},
		{"already tagged", domain.NewBackendError("graph", errors.New("x")), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := call(ctx, svc, domain.BackendCatalog, "test", func(context.Context) (int, error) {
				return 0, tc.err
			})
			require.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.tagged, errors.Is(err, domain.ErrBackendUnavailable))
		})
	}
}

func TestStarDetail_GraphFailureFailsPath(t *testing.T) {
	cat, sim, g := fixture()
	g.err = errors.New("neo4j: service unavailable")

	_, err := New(cat, sim, g).StarDetail(context.Background(), "S1")
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)

	var be *domain.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, domain.BackendGraph, be.Backend)
}

func TestConeSearchWithContext_EnrichesFirstTen(t *testing.T) {
	cat, sim, g := fixture()
	ids := make([]string, 15)
	for i := range ids {
		ids[i] = fmt.Sprintf("S%d", i+1)
	}
	cat.hits = starHits(ids...)
	g.papers = map[string][]domgraph.Paper{
		"S1":  {{ArxivID: "P1"}},
		"S3":  {{ArxivID: "P2"}, {ArxivID: "P3"}},
		"S12": {{ArxivID: "P9"}}, // beyond the enrichment cap
	}

	out, err := New(cat, sim, g).ConeSearchWithContext(context.Background(), 45, 0.5, 1, 20, true)
	require.NoError(t, err)

	assert.Equal(t, 15, out.Count)
	assert.Len(t, g.papersCalls, domain.EnrichmentLimit)
	require.Len(t, out.RelatedPapers, 2)
	assert.Equal(t, "S1", out.RelatedPapers[0].SourceID)
	assert.Equal(t, "S3", out.RelatedPapers[1].SourceID)
	assert.Len(t, out.RelatedPapers[1].Papers, 2)
	assert.Empty(t, out.Errors)
}

func TestConeSearchWithContext_NoEnrich(t *testing.T) {
	cat, sim, g := fixture()

	out, err := New(cat, sim, g).ConeSearchWithContext(context.Background(), 45, 0.5, 1, 20, false)
	require.NoError(t, err)
	assert.Empty(t, g.papersCalls)
	assert.NotNil(t, out.RelatedPapers)
	assert.Empty(t, out.RelatedPapers)
}

func TestConeSearchWithContext_EnrichmentFailureKeepsStars(t *testing.T) {
	cat, sim, g := fixture()
	g.papersErrFor = map[string]error{"S2": errors.New("neo4j: timeout")}

	out, err := New(cat, sim, g).ConeSearchWithContext(context.Background(), 45, 0.5, 1, 20, true)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Count)
	require.Len(t, out.RelatedPapers, 1)
	assert.Equal(t, "S1", out.RelatedPapers[0].SourceID)
	assert.Contains(t, out.Errors[domain.BackendGraph], "timeout")
}

func TestConeSearchWithContext_PrimaryFailureIsFatal(t *testing.T) {
	cat, sim, g := fixture()
	cat.err = errors.New("pq: connection reset")

	_, err := New(cat, sim, g).ConeSearchWithContext(context.Background(), 45, 0.5, 1, 20, true)
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Empty(t, g.papersCalls)
}

func TestSemanticSearchWithSources_DedupesExternalIDs(t *testing.T) {
	cat, sim, g := fixture()
	sim.hits = []domsim.Hit{
		{ID: "1", Score: 0.9, Metadata: map[string]string{domsim.MetaExternalID: "P1"}},
		{ID: "2", Score: 0.8, Metadata: map[string]string{domsim.MetaExternalID: "P1"}},
		{ID: "3", Score: 0.7, Metadata: map[string]string{domsim.MetaTitle: "no id"}},
		{ID: "4", Score: 0.6, Metadata: map[string]string{domsim.MetaExternalID: "P2"}},
	}

	out, err := New(cat, sim, g).SemanticSearchWithSources(context.Background(), "binary stars", "", 5)
	require.NoError(t, err)

	assert.Equal(t, "papers", sim.collection)
	assert.Equal(t, 4, out.Count)
	assert.ElementsMatch(t, []string{"P1", "P2"}, g.starsCalls)
	require.Len(t, out.MentionedStars, 1)
	assert.Equal(t, "P1", out.MentionedStars[0].ArxivID)
	assert.Len(t, out.MentionedStars[0].Stars, 2)
}

func TestSemanticSearchWithSources_ExplicitCollection(t *testing.T) {
	cat, sim, g := fixture()
	sim.hits = nil

	out, err := New(cat, sim, g).SemanticSearchWithSources(context.Background(), "x", "abstracts", 5)
	require.NoError(t, err)
	assert.Equal(t, "abstracts", sim.collection)
	assert.NotNil(t, out.MentionedStars)
	assert.Empty(t, g.starsCalls)
}

func TestSystemStats(t *testing.T) {
	cat, sim, g := fixture()

	rep := New(cat, sim, g).SystemStats(context.Background())
	assert.Equal(t, health.Healthy, rep.Status)
	assert.Equal(t, 2, rep.Components[domain.BackendCatalog]["total_stars"])
	assert.Equal(t, 2, rep.Components[domain.BackendGraph]["relationships"])
	assert.Equal(t, true, rep.Components[domain.BackendSimilarity]["exists"])
}

func TestSystemStats_OneBackendDown(t *testing.T) {
	cat, sim, g := fixture()
	g.err = errors.New("neo4j: connection refused")

	rep := New(cat, sim, g).SystemStats(context.Background())
	assert.Equal(t, health.Degraded, rep.Status)
	assert.Equal(t, health.CheckError, rep.Components[domain.BackendGraph].Result())
	assert.Contains(t, rep.Components[domain.BackendGraph]["error"], "connection refused")
	assert.Equal(t, health.CheckOK, rep.Components[domain.BackendCatalog].Result())
}
