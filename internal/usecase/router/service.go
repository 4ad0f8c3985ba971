// Package router is the QueryRouter. It classifies a request, dispatches every
// applicable backend concurrently with per-backend failure isolation, and
// assembles the partial results into one response.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/taarya/internal/domain"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	"github.com/kailas-cloud/taarya/internal/domain/search"
	"github.com/kailas-cloud/taarya/internal/metrics"
)

// RelatedHops is the traversal depth of the identifier path.
const RelatedHops = 2

// Service holds the three backends. It keeps no state between requests.
type Service struct {
	catalog    CatalogIndex
	similarity SimilarityIndex
	graph      RelationshipGraph
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a router over the three backends.
func New(c CatalogIndex, s SimilarityIndex, g RelationshipGraph) *Service {
	return &Service{
		catalog:    c,
		similarity: s,
		graph:      g,
		timeout:    domain.DefaultBackendTimeout,
		logger:     zap.NewNop(),
	}
}

// WithTimeout bounds every individual backend call.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithLogger sets the logger for isolated backend failures.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// MultiSearch runs every route applicable to req concurrently and merges the sections.
// A failing route is reported in Errors and does not affect the others; the call
// fails only when nothing is applicable or every applicable route failed.
func (s *Service) MultiSearch(ctx context.Context, req search.Request) (search.Response, error) {
	routes, err := search.ClassifyStrict(req)
	if err != nil {
		return search.Response{}, err
	}

	var (
		spatial  *search.SpatialSection
		semantic *search.SemanticSection
		detail   *search.StarDetailSection
	)
	list := routes.List()
	errs := make([]error, len(list))

	var g errgroup.Group
	for i, r := range list {
		switch r {
		case search.RouteSpatial:
			g.Go(func() error {
				spatial, errs[i] = s.spatialRoute(ctx, req)
				return nil
			})
		case search.RouteSemantic:
			g.Go(func() error {
				semantic, errs[i] = s.semanticRoute(ctx, req)
				return nil
			})
		case search.RouteIdentifier:
			g.Go(func() error {
				id, _ := req.SourceID()
				detail, errs[i] = s.StarDetail(ctx, id)
				return nil
			})
		}
	}
	_ = g.Wait()

	resp := search.Response{
		Query:        search.Echo(req),
		BackendsUsed: make([]string, 0, len(list)),
		Spatial:      spatial,
		Semantic:     semantic,
		StarDetail:   detail,
	}
	var failures []error
	for i, r := range list {
		if errs[i] == nil {
			resp.BackendsUsed = append(resp.BackendsUsed, r.Name())
			continue
		}
		if resp.Errors == nil {
			resp.Errors = make(map[string]string)
		}
		resp.Errors[r.Name()] = errs[i].Error()
		failures = append(failures, errs[i])
		s.logger.Warn("route failed", zap.String("route", r.Name()), zap.Error(errs[i]))
	}

	switch {
	case len(failures) < len(list):
		return resp, nil
	case len(failures) == 1:
		return resp, failures[0]
	default:
		return resp, fmt.Errorf("all routes failed: %w", errors.Join(failures...))
	}
}

func (s *Service) spatialRoute(ctx context.Context, req search.Request) (*search.SpatialSection, error) {
	cone, _ := req.Cone()
	hits, err := s.ConeSearch(ctx, cone.RA, cone.Dec, cone.Radius, req.Limit())
	if err != nil {
		return nil, err
	}
	return &search.SpatialSection{Count: len(hits), Stars: hits}, nil
}

func (s *Service) semanticRoute(ctx context.Context, req search.Request) (*search.SemanticSection, error) {
	text, _ := req.Text()
	hits, err := s.SemanticSearch(ctx, text, req.Limit())
	if err != nil {
		return nil, err
	}
	return &search.SemanticSection{Count: len(hits), Papers: hits}, nil
}

// StarDetail is the identifier path: the catalog record, then its papers and
// related stars from the graph. Any failing step fails the whole path.
func (s *Service) StarDetail(ctx context.Context, id string) (*search.StarDetailSection, error) {
	star, err := call(ctx, s, domain.BackendCatalog, "lookup", func(ctx context.Context) (domcat.Record, error) {
		return s.catalog.Lookup(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	detail := &search.StarDetailSection{Star: star}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var perr error
		detail.Papers, perr = s.PapersForStar(gctx, id)
		return perr
	})
	g.Go(func() error {
		var rerr error
		detail.RelatedStars, rerr = s.RelatedStars(gctx, id, RelatedHops, domain.EnrichmentLimit)
		return rerr
	})
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already a backend error
	}
	return detail, nil
}

// call bounds fn by the backend timeout, records metrics, and tags transport
// failures with the backend name. Domain errors pass through unchanged.
func call[T any](
	ctx context.Context, s *Service, backend, op string, fn func(context.Context) (T, error),
) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	v, err := fn(cctx)
	metrics.ObserveBackend(backend, op, start, err)
	if err != nil {
		var zero T
		return zero, tagBackend(backend, err)
	}
	return v, nil
}

func tagBackend(backend string, err error) error {
	for _, passthrough := range []error{
		domain.ErrInvalidParameter,
		domain.ErrNotFound,
		domain.ErrSchemaConflict,
		domain.ErrUnclassifiable,
		domain.ErrEmbeddingProviderError,
	} {
		if errors.Is(err, passthrough) {
			return err
		}
	}
	var be *domain.BackendError
	if errors.As(err, &be) {
		return err
	}
	return domain.NewBackendError(backend, err)
}
