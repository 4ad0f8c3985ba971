package ingest

import (
	"context"

	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// CatalogWriter upserts catalog records.
type CatalogWriter interface {
	Upsert(ctx context.Context, records []domcat.Record) (int, error)
}

// DocumentIndexer embeds and indexes documents.
type DocumentIndexer interface {
	IndexDocuments(ctx context.Context, collection string, docs []domsim.Document) (int, error)
	DefaultCollection() string
}

// GraphWriter merges nodes and edges.
type GraphWriter interface {
	UpsertStarNode(ctx context.Context, star domgraph.Star) error
	UpsertDocumentNode(ctx context.Context, p domgraph.Paper) error
	LinkStarToDocument(ctx context.Context, sourceID, arxivID string) error
}
