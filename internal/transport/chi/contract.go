package chi

import (
	"context"

	"github.com/kailas-cloud/taarya/internal/domain/agent"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	"github.com/kailas-cloud/taarya/internal/domain/search"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
	"github.com/kailas-cloud/taarya/internal/usecase/health"
)

// Router is the query router as seen by the HTTP layer.
type Router interface {
	ConeSearch(ctx context.Context, ra, dec, radius float64, limit int) ([]domcat.Hit, error)
	RadialSearch(ctx context.Context, ra, dec, radius float64, f domcat.Filters, limit int) ([]domcat.Hit, error)
	Lookup(ctx context.Context, id string) (domcat.Record, error)
	NeighborsOf(ctx context.Context, id string, radius float64, limit int) ([]domcat.Hit, error)
	CountInRegion(ctx context.Context, ra, dec, radius float64) (int, error)
	SemanticSearch(ctx context.Context, text string, limit int) ([]domsim.Hit, error)
	PapersForStar(ctx context.Context, id string) ([]domgraph.Paper, error)
	PapersByTopic(ctx context.Context, keyword string, limit int) ([]domgraph.Paper, error)
	MultiSearch(ctx context.Context, req search.Request) (search.Response, error)
	ConeSearchWithContext(ctx context.Context, ra, dec, radius float64, limit int, enrich bool) (search.ConeContext, error)
	SemanticSearchWithSources(ctx context.Context, query, collection string, limit int) (search.SemanticSources, error)
	SystemStats(ctx context.Context) health.Report
}

// Asker answers natural-language questions.
type Asker interface {
	Ask(ctx context.Context, query string, history []agent.Turn) (agent.Answer, error)
}

// HealthChecker reports service liveness.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}
