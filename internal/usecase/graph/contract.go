package graph

import (
	"context"

	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
)

// Repository is the relationship graph store.
//
//nolint:interfacebloat // node upserts, edges and traversals share one store
type Repository interface {
	EnsureSchema(ctx context.Context) error
	UpsertStar(ctx context.Context, s domgraph.Star) error
	UpsertPaper(ctx context.Context, p domgraph.Paper) error
	UpsertCluster(ctx context.Context, c domgraph.Cluster) error
	Link(ctx context.Context, edge domgraph.EdgeType, fromKey, toKey string) error
	PapersForStar(ctx context.Context, sourceID string) ([]domgraph.Paper, error)
	StarsInPaper(ctx context.Context, arxivID string) ([]domgraph.StarRef, error)
	RelatedStars(ctx context.Context, sourceID string, hops, limit int) ([]domgraph.RelatedStar, error)
	ClusterMembers(ctx context.Context, name string, limit int) ([]domgraph.StarRef, error)
	PapersByTopic(ctx context.Context, keyword string, limit int) ([]domgraph.Paper, error)
	Stats(ctx context.Context) (domgraph.Stats, error)
}
