package similarity

import (
	"context"

	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// Repository is the vector store.
type Repository interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, collection string, points []domsim.Point) error
	Search(ctx context.Context, q domsim.Query) ([]domsim.Hit, error)
	Info(ctx context.Context, name string) (domsim.CollectionInfo, error)
}
