package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/db/sqldb"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
)

func f64(v float64) *float64 { return &v }

func newTestSQL(t *testing.T) *SQL {
	t.Helper()
	d, err := sqldb.Open(sqldb.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	g := NewSQL(d)
	require.NoError(t, g.EnsureSchema(context.Background()))
	return g
}

// seed builds S1 -> P1 <- S2, S2 -> P2 <- S3, S4 -> C1 <- S1, P2 -CITES-> P1.
func seed(t *testing.T, g *SQL) {
	t.Helper()
	ctx := context.Background()
	for _, s := range []domgraph.Star{
		{SourceID: "S1", RA: 10, Dec: 1, MagnitudeG: f64(9)},
		{SourceID: "S2", RA: 11, Dec: 1, MagnitudeG: f64(12)},
		{SourceID: "S3", RA: 12, Dec: 1},
		{SourceID: "S4", RA: 13, Dec: 1, MagnitudeG: f64(7)},
	} {
		require.NoError(t, g.UpsertStar(ctx, s))
	}
	require.NoError(t, g.UpsertPaper(ctx, domgraph.Paper{ArxivID: "P1", Title: "Binary stars", PublishedDate: "2020-01-01"}))
	require.NoError(t, g.UpsertPaper(ctx, domgraph.Paper{ArxivID: "P2", Title: "Cepheid survey", Abstract: "Variable STARS", PublishedDate: "2023-05-01"}))
	require.NoError(t, g.UpsertPaper(ctx, domgraph.Paper{ArxivID: "P3", Title: "Undated stars note"}))
	require.NoError(t, g.UpsertCluster(ctx, domgraph.Cluster{Name: "C1", RA: 13, Dec: 1}))

	require.NoError(t, g.Link(ctx, domgraph.MentionedIn, "S1", "P1"))
	require.NoError(t, g.Link(ctx, domgraph.MentionedIn, "S2", "P1"))
	require.NoError(t, g.Link(ctx, domgraph.MentionedIn, "S2", "P2"))
	require.NoError(t, g.Link(ctx, domgraph.MentionedIn, "S3", "P2"))
	require.NoError(t, g.Link(ctx, domgraph.MemberOf, "S4", "C1"))
	require.NoError(t, g.Link(ctx, domgraph.MemberOf, "S1", "C1"))
	require.NoError(t, g.Link(ctx, domgraph.Cites, "P2", "P1"))
}

func TestSQL_UpsertIdempotent(t *testing.T) {
	g := newTestSQL(t)
	ctx := context.Background()
	seed(t, g)

	before, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, domgraph.Stats{Stars: 4, Papers: 3, Clusters: 1, Relationships: 7}, before)

	require.NoError(t, g.UpsertStar(ctx, domgraph.Star{SourceID: "S1", RA: 10, Dec: 1, MagnitudeG: f64(9)}))
	require.NoError(t, g.Link(ctx, domgraph.MentionedIn, "S1", "P1"))
	require.NoError(t, g.UpsertCluster(ctx, domgraph.Cluster{Name: "C1", RA: 13, Dec: 1}))

	after, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSQL_LinkMissingEndpointIsNoop(t *testing.T) {
	g := newTestSQL(t)
	ctx := context.Background()
	require.NoError(t, g.UpsertStar(ctx, domgraph.Star{SourceID: "S1"}))

	require.NoError(t, g.Link(ctx, domgraph.MentionedIn, "S1", "missing"))
	st, err := g.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, st.Relationships)

	require.Error(t, g.Link(ctx, domgraph.EdgeType("LIKES"), "S1", "S1"))
}

func TestSQL_RelatedStarsViaSharedPaper(t *testing.T) {
	g := newTestSQL(t)
	seed(t, g)

	related, err := g.RelatedStars(context.Background(), "S1", 2, 10)
	require.NoError(t, err)

	byID := map[string]int{}
	for _, r := range related {
		byID[r.SourceID] = r.Hops
	}
	require.Equal(t, 2, byID["S2"])
	require.Equal(t, 2, byID["S4"])
	require.NotContains(t, byID, "S1")
	require.NotContains(t, byID, "S3") // three hops away

	// same distance: brighter S4 (7) before S2 (12)
	require.Equal(t, "S4", related[0].SourceID)
}

func TestSQL_RelatedStarsHopsClamped(t *testing.T) {
	g := newTestSQL(t)
	seed(t, g)

	related, err := g.RelatedStars(context.Background(), "S1", 99, 10)
	require.NoError(t, err)

	prev := 0
	for _, r := range related {
		require.NotEqual(t, "S1", r.SourceID)
		require.LessOrEqual(t, r.Hops, domgraph.MaxHops)
		require.GreaterOrEqual(t, r.Hops, prev)
		prev = r.Hops
	}
	// S3 is reachable in 3 hops: S1 -> P1 <- P2 (CITES) <- S3
	require.Contains(t, ids(related), "S3")
}

func TestSQL_RelatedStarsUnknownOrigin(t *testing.T) {
	g := newTestSQL(t)
	related, err := g.RelatedStars(context.Background(), "nope", 2, 10)
	require.NoError(t, err)
	require.Empty(t, related)
}

func TestSQL_PapersForStarNewestFirst(t *testing.T) {
	g := newTestSQL(t)
	seed(t, g)

	papers, err := g.PapersForStar(context.Background(), "S2")
	require.NoError(t, err)
	require.Len(t, papers, 2)
	require.Equal(t, "P2", papers[0].ArxivID)
	require.Equal(t, "P1", papers[1].ArxivID)
}

func TestSQL_StarsInPaper(t *testing.T) {
	g := newTestSQL(t)
	seed(t, g)

	stars, err := g.StarsInPaper(context.Background(), "P1")
	require.NoError(t, err)
	require.Len(t, stars, 2)
	require.Equal(t, "S1", stars[0].SourceID)
	require.Equal(t, 10.0, stars[0].RA)
}

func TestSQL_ClusterMembers(t *testing.T) {
	g := newTestSQL(t)
	seed(t, g)

	stars, err := g.ClusterMembers(context.Background(), "C1", 1)
	require.NoError(t, err)
	require.Len(t, stars, 1)
	require.Equal(t, "S4", stars[0].SourceID)
}

func TestSQL_PapersByTopic(t *testing.T) {
	g := newTestSQL(t)
	seed(t, g)
	ctx := context.Background()

	papers, err := g.PapersByTopic(ctx, "Stars", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"P2", "P1", "P3"}, paperIDs(papers))

	papers, err = g.PapersByTopic(ctx, "cepheid", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"P2"}, paperIDs(papers))

	papers, err = g.PapersByTopic(ctx, "100%", 10)
	require.NoError(t, err)
	require.Empty(t, papers)
}

func TestSQL_NonISODatesSortLastUnderLimit(t *testing.T) {
	g := newTestSQL(t)
	ctx := context.Background()
	for _, p := range []domgraph.Paper{
		{ArxivID: "a", Title: "Halo stars", PublishedDate: "2023-05-01"},
		{ArxivID: "b", Title: "Halo stars", PublishedDate: "unknown"},
		{ArxivID: "c", Title: "Halo stars", PublishedDate: "2024-01-10"},
		{ArxivID: "d", Title: "Halo stars", PublishedDate: "N/A"},
	} {
		require.NoError(t, g.UpsertPaper(ctx, p))
	}

	papers, err := g.PapersByTopic(ctx, "halo", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, paperIDs(papers))

	require.NoError(t, g.UpsertStar(ctx, domgraph.Star{SourceID: "S9"}))
	for _, p := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.Link(ctx, domgraph.MentionedIn, "S9", p))
	}
	papers, err = g.PapersForStar(ctx, "S9")
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b", "d"}, paperIDs(papers))
}

func TestSQL_EnsureSchemaFailsOnClosedDB(t *testing.T) {
	d, err := sqldb.Open(sqldb.SQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, d.Close())

	err = NewSQL(d).EnsureSchema(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "graph schema")
}

func ids(stars []domgraph.RelatedStar) []string {
	out := make([]string, len(stars))
	for i := range stars {
		out[i] = stars[i].SourceID
	}
	return out
}

func paperIDs(papers []domgraph.Paper) []string {
	out := make([]string, len(papers))
	for i := range papers {
		out[i] = papers[i].ArxivID
	}
	return out
}

func nopLogger() *zap.Logger { return zap.NewNop() }
