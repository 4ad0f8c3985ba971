package similarity

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/taarya/internal/domain"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// Memory is a brute-force in-memory vector store for tests and offline runs.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	dim    int
	order  []string
	points map[string]domsim.Point
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

// EnsureCollection creates the collection or checks its dimension.
func (m *Memory) EnsureCollection(_ context.Context, name string, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.collections[name]; ok {
		if c.dim != dim {
			return fmt.Errorf("%w: collection %s has dimension %d, requested %d",
				domain.ErrSchemaConflict, name, c.dim, dim)
		}
		return nil
	}
	m.collections[name] = &memCollection{dim: dim, points: make(map[string]domsim.Point)}
	return nil
}

// Upsert replaces points by id.
func (m *Memory) Upsert(_ context.Context, collection string, points []domsim.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s: %w", collection, domain.ErrNotFound)
	}
	for i := range points {
		if len(points[i].Vector) != c.dim {
			return fmt.Errorf("%w: point %s has dimension %d, collection %s expects %d",
				domain.ErrSchemaConflict, points[i].ID, len(points[i].Vector), collection, c.dim)
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		meta := make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			meta[k] = v
		}
		if _, exists := c.points[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.points[p.ID] = domsim.Point{ID: p.ID, Vector: vec, Metadata: meta}
	}
	return nil
}

// Search scores every point by cosine similarity.
func (m *Memory) Search(_ context.Context, q domsim.Query) ([]domsim.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[q.Collection]
	if !ok {
		return []domsim.Hit{}, nil
	}
	if len(q.Vector) != c.dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection %s expects %d",
			domain.ErrSchemaConflict, len(q.Vector), q.Collection, c.dim)
	}

	hits := make([]domsim.Hit, 0, len(c.order))
	for _, id := range c.order {
		p := c.points[id]
		if !q.Filter.Accepts(p.Metadata) {
			continue
		}
		score := cosine(q.Vector, p.Vector)
		if q.ScoreThreshold != nil && score < *q.ScoreThreshold {
			continue
		}
		meta := make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			meta[k] = v
		}
		hits = append(hits, domsim.Hit{ID: id, Score: score, Metadata: meta})
	}
	domsim.SortHits(hits)
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// Info describes a collection.
func (m *Memory) Info(_ context.Context, name string) (domsim.CollectionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[name]
	if !ok {
		return domsim.CollectionInfo{Name: name, Status: domsim.StatusMissing}, nil
	}
	return domsim.CollectionInfo{
		Name:         name,
		Exists:       true,
		Dimension:    c.dim,
		VectorsCount: len(c.points),
		PointsCount:  len(c.points),
		Status:       domsim.StatusGreen,
	}, nil
}
