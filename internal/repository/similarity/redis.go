// Package similarity stores embedded documents for nearest-neighbor search:
// a Redis Query Engine backend and an in-memory backend.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/taarya/internal/db"
	"github.com/kailas-cloud/taarya/internal/domain"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// DefaultKeyPrefix namespaces every key the repository writes.
const DefaultKeyPrefix = "taarya:"

// Reserved hash fields of a point.
const (
	fieldID        = "__id"
	fieldName      = "name"
	fieldDimension = "dimension"
	fieldCreatedAt = "created_at"
)

// store is the consumer interface for the vector collections (ISP).
//
//nolint:interfacebloat // collections need hash, index and search operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Redis implements usecase/similarity.Repository on a Redis FT index over hashes.
type Redis struct {
	store        store
	prefix       string
	hnsw         HNSWConfig
	filterFields []string
}

// NewRedis creates a Redis-backed repository.
func NewRedis(s store) *Redis {
	return &Redis{
		store:        s,
		prefix:       DefaultKeyPrefix,
		hnsw:         HNSWConfig{M: 16, EFConstruct: 200},
		filterFields: domsim.DefaultFilterFields,
	}
}

// WithKeyPrefix overrides the key namespace.
func (r *Redis) WithKeyPrefix(prefix string) *Redis {
	if prefix != "" {
		r.prefix = prefix
	}
	return r
}

// WithHNSW configures HNSW index parameters.
func (r *Redis) WithHNSW(cfg HNSWConfig) *Redis {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// WithFilterFields sets the metadata keys indexed as TAG fields.
func (r *Redis) WithFilterFields(fields ...string) *Redis {
	if len(fields) > 0 {
		r.filterFields = fields
	}
	return r
}

// EnsureCollection creates the collection if absent. An existing collection
// with a different dimension yields domain.ErrSchemaConflict.
func (r *Redis) EnsureCollection(ctx context.Context, name string, dim int) error {
	meta, err := r.store.HGetAll(ctx, r.metaKey(name))
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(meta) > 0 {
		have, err := strconv.Atoi(meta[fieldDimension])
		if err != nil {
			return fmt.Errorf("parse dimension of %s: %w", name, err)
		}
		if have != dim {
			return fmt.Errorf("%w: collection %s has dimension %d, requested %d",
				domain.ErrSchemaConflict, name, have, dim)
		}
		return r.ensureIndex(ctx, name, dim)
	}

	if err := r.store.HSet(ctx, r.metaKey(name), map[string]string{
		fieldName:      name,
		fieldDimension: strconv.Itoa(dim),
		fieldCreatedAt: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}); err != nil {
		return fmt.Errorf("hset collection %s: %w", name, err)
	}

	// FT.CREATE: rollback HSET on error
	if err := r.ensureIndex(ctx, name, dim); err != nil {
		cleanupErr := r.store.Del(ctx, r.metaKey(name))
		return errors.Join(err, cleanupErr)
	}
	return nil
}

func (r *Redis) ensureIndex(ctx context.Context, name string, dim int) error {
	def, err := db.NewIndex(r.indexName(name)).
		Prefix(r.pointPrefix(name)).
		Tag(r.filterFields...).
		VectorHNSW(dim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Upsert writes points in one pipeline. Vector length must equal the collection dimension.
func (r *Redis) Upsert(ctx context.Context, collection string, points []domsim.Point) error {
	if len(points) == 0 {
		return nil
	}
	dim, ok, err := r.dimension(ctx, collection)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("collection %s: %w", collection, domain.ErrNotFound)
	}

	items := make([]db.HashSetItem, len(points))
	for i := range points {
		p := &points[i]
		if len(p.Vector) != dim {
			return fmt.Errorf("%w: point %s has dimension %d, collection %s expects %d",
				domain.ErrSchemaConflict, p.ID, len(p.Vector), collection, dim)
		}
		fields := make(map[string]string, len(p.Metadata)+2)
		for k, v := range p.Metadata {
			fields[k] = v
		}
		fields[fieldID] = p.ID
		fields[db.VectorField] = db.EncodeVector(p.Vector)
		items[i] = db.HashSetItem{Key: r.pointKey(collection, p.ID), Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Search returns nearest neighbors by cosine similarity. A missing collection yields no hits.
func (r *Redis) Search(ctx context.Context, q domsim.Query) ([]domsim.Hit, error) {
	dim, ok, err := r.dimension(ctx, q.Collection)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domsim.Hit{}, nil
	}
	if len(q.Vector) != dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection %s expects %d",
			domain.ErrSchemaConflict, len(q.Vector), q.Collection, dim)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.indexName(q.Collection),
		Filter:    q.Filter,
		Vector:    q.Vector,
		K:         q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search %s: %w", q.Collection, err)
	}

	hits := make([]domsim.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		h := domsim.Hit{
			ID:       e.Fields[fieldID],
			Score:    1 - e.Score, // cosine distance to similarity
			Metadata: make(map[string]string, len(e.Fields)),
		}
		if h.ID == "" {
			h.ID = strings.TrimPrefix(e.Key, r.pointPrefix(q.Collection))
		}
		if q.ScoreThreshold != nil && h.Score < *q.ScoreThreshold {
			continue
		}
		for k, v := range e.Fields {
			if k == fieldID || k == db.VectorField {
				continue
			}
			h.Metadata[k] = v
		}
		hits = append(hits, h)
	}
	domsim.SortHits(hits)
	return hits, nil
}

// Info describes a collection; a missing one reports Exists=false.
func (r *Redis) Info(ctx context.Context, name string) (domsim.CollectionInfo, error) {
	dim, ok, err := r.dimension(ctx, name)
	if err != nil {
		return domsim.CollectionInfo{}, err
	}
	if !ok {
		return domsim.CollectionInfo{Name: name, Status: domsim.StatusMissing}, nil
	}

	n, err := r.store.SearchCount(ctx, r.indexName(name), "*")
	if err != nil {
		return domsim.CollectionInfo{}, fmt.Errorf("count %s: %w", name, err)
	}
	return domsim.CollectionInfo{
		Name:         name,
		Exists:       true,
		Dimension:    dim,
		VectorsCount: n,
		PointsCount:  n,
		Status:       domsim.StatusGreen,
	}, nil
}

func (r *Redis) dimension(ctx context.Context, name string) (int, bool, error) {
	meta, err := r.store.HGetAll(ctx, r.metaKey(name))
	if err != nil {
		return 0, false, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(meta) == 0 {
		return 0, false, nil
	}
	dim, err := strconv.Atoi(meta[fieldDimension])
	if err != nil {
		return 0, false, fmt.Errorf("parse dimension of %s: %w", name, err)
	}
	return dim, true, nil
}

// Key patterns: {prefix}collection:{name}, {prefix}{name}:idx, {prefix}{name}:{id}

func (r *Redis) metaKey(name string) string {
	return r.prefix + "collection:" + name
}

func (r *Redis) indexName(name string) string {
	return r.prefix + name + ":idx"
}

func (r *Redis) pointPrefix(name string) string {
	return r.prefix + name + ":"
}

func (r *Redis) pointKey(name, id string) string {
	return r.pointPrefix(name) + id
}
