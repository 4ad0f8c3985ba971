// Package catalog is the CatalogIndex: cone, filtered radial, lookup, neighbor and count queries.
package catalog

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/taarya/internal/domain"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	"github.com/kailas-cloud/taarya/internal/domain/sky"
)

// Service validates catalog queries before they reach the store.
type Service struct {
	repo Repository
}

// New creates a catalog service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureSchema provisions the catalog table.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	return nil
}

// Upsert validates and stores records keyed on id.
func (s *Service) Upsert(ctx context.Context, records []domcat.Record) (int, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}
	n, err := s.repo.Upsert(ctx, records)
	if err != nil {
		return n, fmt.Errorf("upsert records: %w", err)
	}
	return n, nil
}

// ConeSearch returns records within radius of (ra, dec), nearest first, ties by id.
func (s *Service) ConeSearch(ctx context.Context, ra, dec, radius float64, limit int) ([]domcat.Hit, error) {
	return s.RadialSearchFiltered(ctx, ra, dec, radius, domcat.Filters{}, limit)
}

// RadialSearchFiltered is ConeSearch restricted by the supplied magnitude and parallax filters.
func (s *Service) RadialSearchFiltered(
	ctx context.Context, ra, dec, radius float64, filters domcat.Filters, limit int,
) ([]domcat.Hit, error) {
	cone, err := domcat.NewCone(ra, dec, radius, sky.MaxConeRadius)
	if err != nil {
		return nil, err
	}
	if err := domcat.ValidateLimit(limit); err != nil {
		return nil, err
	}

	hits, err := s.repo.Cone(ctx, domcat.Query{Cone: cone, Filters: filters, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("cone search: %w", err)
	}
	return hits, nil
}

// Lookup returns the record with the given id or domain.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, id string) (domcat.Record, error) {
	if err := domcat.ValidateID(id); err != nil {
		return domcat.Record{}, err
	}
	rec, err := s.repo.Lookup(ctx, id)
	if err != nil {
		return domcat.Record{}, fmt.Errorf("lookup %s: %w", id, err)
	}
	return rec, nil
}

// NeighborsOf runs a cone search centered on id, excluding id itself.
// An unknown id fails with domain.ErrNotFound.
func (s *Service) NeighborsOf(ctx context.Context, id string, radius float64, limit int) ([]domcat.Hit, error) {
	if err := domcat.ValidateID(id); err != nil {
		return nil, err
	}
	if err := domcat.ValidateLimit(limit); err != nil {
		return nil, err
	}
	if !sky.ValidRadius(radius, sky.MaxNeighborRadius) {
		return nil, fmt.Errorf("%w: radius %g outside (0,%g]",
			domain.ErrInvalidParameter, radius, sky.MaxNeighborRadius)
	}

	center, err := s.repo.Lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}

	cone := domcat.Cone{RA: center.RA, Dec: center.Dec, Radius: radius}
	hits, err := s.repo.Cone(ctx, domcat.Query{Cone: cone, ExcludeID: id, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("neighbor search: %w", err)
	}
	return hits, nil
}

// CountInRegion counts records within radius of (ra, dec).
func (s *Service) CountInRegion(ctx context.Context, ra, dec, radius float64) (int, error) {
	cone, err := domcat.NewCone(ra, dec, radius, sky.MaxConeRadius)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.Count(ctx, &cone)
	if err != nil {
		return 0, fmt.Errorf("count region: %w", err)
	}
	return n, nil
}

// Count returns the catalog size.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("count catalog: %w", err)
	}
	return n, nil
}
