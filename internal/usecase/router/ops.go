package router

import (
	"context"

	"github.com/kailas-cloud/taarya/internal/domain"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// Single-backend operations. Each is bounded by the backend timeout and metered.

// ConeSearch returns catalog records within radius of (ra, dec), nearest first.
func (s *Service) ConeSearch(ctx context.Context, ra, dec, radius float64, limit int) ([]domcat.Hit, error) {
	return call(ctx, s, domain.BackendCatalog, "cone_search", func(ctx context.Context) ([]domcat.Hit, error) {
		return s.catalog.ConeSearch(ctx, ra, dec, radius, limit)
	})
}

// RadialSearch is ConeSearch with magnitude/parallax filters.
func (s *Service) RadialSearch(
	ctx context.Context, ra, dec, radius float64, f domcat.Filters, limit int,
) ([]domcat.Hit, error) {
	return call(ctx, s, domain.BackendCatalog, "radial_search", func(ctx context.Context) ([]domcat.Hit, error) {
		return s.catalog.RadialSearchFiltered(ctx, ra, dec, radius, f, limit)
	})
}

// Lookup returns one catalog record or domain.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, id string) (domcat.Record, error) {
	return call(ctx, s, domain.BackendCatalog, "lookup", func(ctx context.Context) (domcat.Record, error) {
		return s.catalog.Lookup(ctx, id)
	})
}

// NeighborsOf returns stars around id, excluding id.
func (s *Service) NeighborsOf(ctx context.Context, id string, radius float64, limit int) ([]domcat.Hit, error) {
	return call(ctx, s, domain.BackendCatalog, "neighbors", func(ctx context.Context) ([]domcat.Hit, error) {
		return s.catalog.NeighborsOf(ctx, id, radius, limit)
	})
}

// CountInRegion counts catalog records in a cone.
func (s *Service) CountInRegion(ctx context.Context, ra, dec, radius float64) (int, error) {
	return call(ctx, s, domain.BackendCatalog, "count", func(ctx context.Context) (int, error) {
		return s.catalog.CountInRegion(ctx, ra, dec, radius)
	})
}

// SemanticSearch queries the default collection by text.
func (s *Service) SemanticSearch(ctx context.Context, text string, limit int) ([]domsim.Hit, error) {
	return s.semanticSearchIn(ctx, s.similarity.DefaultCollection(), text, limit)
}

func (s *Service) semanticSearchIn(ctx context.Context, collection, text string, limit int) ([]domsim.Hit, error) {
	return call(ctx, s, domain.BackendSimilarity, "search_similar", func(ctx context.Context) ([]domsim.Hit, error) {
		return s.similarity.SearchSimilar(ctx, collection, text, limit, nil, nil)
	})
}

// PapersForStar lists papers mentioning a star, newest first.
func (s *Service) PapersForStar(ctx context.Context, id string) ([]domgraph.Paper, error) {
	return call(ctx, s, domain.BackendGraph, "papers_for_star", func(ctx context.Context) ([]domgraph.Paper, error) {
		return s.graph.PapersForStar(ctx, id)
	})
}

// RelatedStars lists stars within maxHops of id.
func (s *Service) RelatedStars(ctx context.Context, id string, maxHops, limit int) ([]domgraph.RelatedStar, error) {
	return call(ctx, s, domain.BackendGraph, "related_stars", func(ctx context.Context) ([]domgraph.RelatedStar, error) {
		return s.graph.RelatedStars(ctx, id, maxHops, limit)
	})
}

// PapersByTopic lists papers whose title or abstract contains keyword.
func (s *Service) PapersByTopic(ctx context.Context, keyword string, limit int) ([]domgraph.Paper, error) {
	return call(ctx, s, domain.BackendGraph, "papers_by_topic", func(ctx context.Context) ([]domgraph.Paper, error) {
		return s.graph.PapersByTopicKeyword(ctx, keyword, limit)
	})
}

func (s *Service) starsInPaper(ctx context.Context, arxivID string) ([]domgraph.StarRef, error) {
	return call(ctx, s, domain.BackendGraph, "stars_in_paper", func(ctx context.Context) ([]domgraph.StarRef, error) {
		return s.graph.StarsInPaper(ctx, arxivID)
	})
}
