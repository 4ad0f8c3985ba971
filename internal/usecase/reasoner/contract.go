package reasoner

import (
	"context"

	"github.com/kailas-cloud/taarya/internal/domain/agent"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// Router is the subset of the query router the tools drive.
type Router interface {
	ConeSearch(ctx context.Context, ra, dec, radius float64, limit int) ([]domcat.Hit, error)
	Lookup(ctx context.Context, id string) (domcat.Record, error)
	NeighborsOf(ctx context.Context, id string, radius float64, limit int) ([]domcat.Hit, error)
	CountInRegion(ctx context.Context, ra, dec, radius float64) (int, error)
	SemanticSearch(ctx context.Context, text string, limit int) ([]domsim.Hit, error)
	PapersForStar(ctx context.Context, id string) ([]domgraph.Paper, error)
	RelatedStars(ctx context.Context, id string, maxHops, limit int) ([]domgraph.RelatedStar, error)
}

// ChatModel is a tool-calling language model.
type ChatModel interface {
	Complete(ctx context.Context, msgs []agent.Message, tools []agent.ToolSpec) (agent.Message, error)
}

// Reasoner answers a natural-language query, optionally in the context of prior turns.
type Reasoner interface {
	Ask(ctx context.Context, query string, history []agent.Turn) (agent.Answer, error)
}
