// Package db describes the Redis-compatible store behind the similarity index
// and the embedding cache. Implementations live in subpackages.
package db

import (
	"context"
	"time"
)

// Store is everything the redis subpackage offers. Repositories never take a
// Store; they declare the few methods they call.
//
//nolint:interfacebloat // facade for wiring only
type Store interface {
	Pinger
	PointStore
	Cache
	IndexManager
	Searcher
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Pinger checks connectivity. Health probes take it directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one key and its fields for a pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// PointStore keeps collection metadata and indexed points as hashes.
type PointStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// Cache stores opaque values. A ttl of zero or less keeps the value until evicted.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager creates FT indexes over point hashes.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
}

// Searcher runs FT.SEARCH queries.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
