package domain

import "time"

// Backend names as they appear in responses, metrics and stats.
const (
	BackendCatalog    = "catalog"
	BackendSimilarity = "similarity"
	BackendGraph      = "graph"
)

// SimilarityConfig holds similarity-collection defaults.
type SimilarityConfig struct {
	Collection string
	Dimension  int
	BatchSize  int
}

// DefaultSimilarityConfig matches the all-MiniLM-L6-v2 sized paper collection.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		Collection: "papers",
		Dimension:  384,
		BatchSize:  100,
	}
}

// EnrichmentLimit caps how many primary hits an enrichment pass decorates.
const EnrichmentLimit = 10

// DefaultBackendTimeout bounds a single backend call made by the router.
const DefaultBackendTimeout = 5 * time.Second
