package router

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/taarya/internal/domain"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	"github.com/kailas-cloud/taarya/internal/domain/search"
	"github.com/kailas-cloud/taarya/internal/usecase/health"
)

// enrichConcurrency bounds parallel graph calls during one enrichment pass.
const enrichConcurrency = 4

// ConeSearchWithContext runs a cone search and, when enrich is set, attaches the
// papers mentioning each of the first domain.EnrichmentLimit hits. Enrichment
// failures are reported in Errors; the spatial result is still returned.
func (s *Service) ConeSearchWithContext(
	ctx context.Context, ra, dec, radius float64, limit int, enrich bool,
) (search.ConeContext, error) {
	hits, err := s.ConeSearch(ctx, ra, dec, radius, limit)
	if err != nil {
		return search.ConeContext{}, err
	}

	out := search.ConeContext{
		Query:         domcat.Cone{RA: ra, Dec: dec, Radius: radius},
		Count:         len(hits),
		Stars:         hits,
		RelatedPapers: []search.StarPapers{},
	}
	if !enrich || len(hits) == 0 {
		return out, nil
	}

	ids := make([]string, 0, domain.EnrichmentLimit)
	for i := range hits[:min(len(hits), domain.EnrichmentLimit)] {
		ids = append(ids, hits[i].ID)
	}

	papers, err := enrichEach(ctx, ids, s.PapersForStar)
	for i, id := range ids {
		if len(papers[i]) > 0 {
			out.RelatedPapers = append(out.RelatedPapers, search.StarPapers{SourceID: id, Papers: papers[i]})
		}
	}
	if err != nil {
		out.Errors = map[string]string{domain.BackendGraph: err.Error()}
		s.logger.Warn("enrichment failed", zap.String("backend", domain.BackendGraph), zap.Error(err))
	}
	return out, nil
}

// SemanticSearchWithSources runs a similarity search and, for each of the first
// domain.EnrichmentLimit hits carrying an external id, attaches the stars that
// paper mentions. An empty collection name means the default collection.
func (s *Service) SemanticSearchWithSources(
	ctx context.Context, query, collection string, limit int,
) (search.SemanticSources, error) {
	if collection == "" {
		collection = s.similarity.DefaultCollection()
	}
	hits, err := s.semanticSearchIn(ctx, collection, query, limit)
	if err != nil {
		return search.SemanticSources{}, err
	}

	out := search.SemanticSources{
		Query:          query,
		Count:          len(hits),
		Papers:         hits,
		MentionedStars: []search.PaperStars{},
	}

	seen := make(map[string]bool)
	var ids []string
	for i := range hits[:min(len(hits), domain.EnrichmentLimit)] {
		id := hits[i].ExternalID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return out, nil
	}

	stars, err := enrichEach(ctx, ids, s.starsInPaper)
	for i, id := range ids {
		if len(stars[i]) > 0 {
			out.MentionedStars = append(out.MentionedStars, search.PaperStars{ArxivID: id, Stars: stars[i]})
		}
	}
	if err != nil {
		out.Errors = map[string]string{domain.BackendGraph: err.Error()}
		s.logger.Warn("enrichment failed", zap.String("backend", domain.BackendGraph), zap.Error(err))
	}
	return out, nil
}

// enrichEach calls fn for every key with bounded concurrency. Results keep key order;
// failed keys get a nil entry and their errors are joined.
func enrichEach[T any](
	ctx context.Context, keys []string, fn func(context.Context, string) ([]T, error),
) ([][]T, error) {
	results := make([][]T, len(keys))

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(enrichConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			v, err := fn(ctx, key)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = v
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// SystemStats probes each backend for a count snapshot. One backend's failure
// becomes an error entry in its own section.
func (s *Service) SystemStats(ctx context.Context) health.Report {
	return health.New().
		WithTimeout(s.timeout).
		WithProbe(domain.BackendCatalog, func(ctx context.Context) (map[string]any, error) {
			n, err := s.catalog.Count(ctx)
			if err != nil {
				return nil, err //nolint:wrapcheck // reported verbatim
			}
			return map[string]any{"total_stars": n}, nil
		}).
		WithProbe(domain.BackendSimilarity, func(ctx context.Context) (map[string]any, error) {
			info, err := s.similarity.CollectionInfo(ctx, s.similarity.DefaultCollection())
			if err != nil {
				return nil, err //nolint:wrapcheck // reported verbatim
			}
			return map[string]any{
				"collection":        info.Name,
				"exists":            info.Exists,
				"vectors_count":     info.VectorsCount,
				"points_count":      info.PointsCount,
				"collection_status": info.Status,
			}, nil
		}).
		WithProbe(domain.BackendGraph, func(ctx context.Context) (map[string]any, error) {
			st, err := s.graph.GraphStats(ctx)
			if err != nil {
				return nil, err //nolint:wrapcheck // reported verbatim
			}
			return map[string]any{
				"stars":         st.Stars,
				"papers":        st.Papers,
				"clusters":      st.Clusters,
				"relationships": st.Relationships,
			}, nil
		}).
		Check(ctx)
}
