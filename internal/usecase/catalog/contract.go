package catalog

import (
	"context"

	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
)

// Repository is the coordinate-indexed store.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, records []domcat.Record) (int, error)
	Lookup(ctx context.Context, id string) (domcat.Record, error)
	Cone(ctx context.Context, q domcat.Query) ([]domcat.Hit, error)
	Count(ctx context.Context, cone *domcat.Cone) (int, error)
}
