package router

import (
	"context"

	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// CatalogIndex is the coordinate-indexed backend.
type CatalogIndex interface {
	ConeSearch(ctx context.Context, ra, dec, radius float64, limit int) ([]domcat.Hit, error)
	RadialSearchFiltered(ctx context.Context, ra, dec, radius float64, f domcat.Filters, limit int) ([]domcat.Hit, error)
	Lookup(ctx context.Context, id string) (domcat.Record, error)
	NeighborsOf(ctx context.Context, id string, radius float64, limit int) ([]domcat.Hit, error)
	CountInRegion(ctx context.Context, ra, dec, radius float64) (int, error)
	Count(ctx context.Context) (int, error)
}

// SimilarityIndex is the embedding-similarity backend.
type SimilarityIndex interface {
	SearchSimilar(
		ctx context.Context, collection, text string, limit int,
		scoreThreshold *float64, metadataFilter map[string]string,
	) ([]domsim.Hit, error)
	CollectionInfo(ctx context.Context, name string) (domsim.CollectionInfo, error)
	DefaultCollection() string
}

// RelationshipGraph is the graph backend.
type RelationshipGraph interface {
	PapersForStar(ctx context.Context, sourceID string) ([]domgraph.Paper, error)
	StarsInPaper(ctx context.Context, arxivID string) ([]domgraph.StarRef, error)
	RelatedStars(ctx context.Context, sourceID string, maxHops, limit int) ([]domgraph.RelatedStar, error)
	PapersByTopicKeyword(ctx context.Context, keyword string, limit int) ([]domgraph.Paper, error)
	GraphStats(ctx context.Context) (domgraph.Stats, error)
}
