// Package graph is the RelationshipGraph: idempotent node and edge upserts plus
// bounded traversal queries over stars, papers and clusters.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/taarya/internal/domain"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
)

// MaxLimit bounds list queries.
const MaxLimit = 1000

// Service validates keys and applies result ordering on top of a graph store.
type Service struct {
	repo Repository
}

// New creates a graph service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureSchema creates uniqueness constraints; pre-existing ones are not an error.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	return nil
}

// UpsertStarNode merges a Star by source id.
func (s *Service) UpsertStarNode(ctx context.Context, star domgraph.Star) error {
	if err := domgraph.ValidateKey(domgraph.KindStar, star.SourceID); err != nil {
		return err
	}
	if err := s.repo.UpsertStar(ctx, star); err != nil {
		return fmt.Errorf("upsert star %s: %w", star.SourceID, err)
	}
	return nil
}

// UpsertDocumentNode merges a Paper by arXiv id.
func (s *Service) UpsertDocumentNode(ctx context.Context, p domgraph.Paper) error {
	if err := domgraph.ValidateKey(domgraph.KindPaper, p.ArxivID); err != nil {
		return err
	}
	if err := s.repo.UpsertPaper(ctx, p); err != nil {
		return fmt.Errorf("upsert paper %s: %w", p.ArxivID, err)
	}
	return nil
}

// UpsertClusterNode merges a Cluster by name.
func (s *Service) UpsertClusterNode(ctx context.Context, c domgraph.Cluster) error {
	if err := domgraph.ValidateKey(domgraph.KindCluster, c.Name); err != nil {
		return err
	}
	if err := s.repo.UpsertCluster(ctx, c); err != nil {
		return fmt.Errorf("upsert cluster %s: %w", c.Name, err)
	}
	return nil
}

// LinkStarToDocument merges Star -MENTIONED_IN-> Paper.
func (s *Service) LinkStarToDocument(ctx context.Context, sourceID, arxivID string) error {
	return s.link(ctx, domgraph.MentionedIn, sourceID, arxivID)
}

// LinkStarToCluster merges Star -MEMBER_OF-> Cluster.
func (s *Service) LinkStarToCluster(ctx context.Context, sourceID, cluster string) error {
	return s.link(ctx, domgraph.MemberOf, sourceID, cluster)
}

// LinkDocumentCites merges Paper -CITES-> Paper.
func (s *Service) LinkDocumentCites(ctx context.Context, citing, cited string) error {
	return s.link(ctx, domgraph.Cites, citing, cited)
}

// link is a no-op when either endpoint does not exist.
func (s *Service) link(ctx context.Context, edge domgraph.EdgeType, fromKey, toKey string) error {
	from, to := edge.Endpoints()
	if err := domgraph.ValidateKey(from, fromKey); err != nil {
		return err
	}
	if err := domgraph.ValidateKey(to, toKey); err != nil {
		return err
	}
	if err := s.repo.Link(ctx, edge, fromKey, toKey); err != nil {
		return fmt.Errorf("link %s %s->%s: %w", edge, fromKey, toKey, err)
	}
	return nil
}

// PapersForStar returns papers mentioning the star, newest first.
func (s *Service) PapersForStar(ctx context.Context, sourceID string) ([]domgraph.Paper, error) {
	if err := domgraph.ValidateKey(domgraph.KindStar, sourceID); err != nil {
		return nil, err
	}
	papers, err := s.repo.PapersForStar(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("papers for star %s: %w", sourceID, err)
	}
	domgraph.SortPapersNewestFirst(papers)
	return nonNil(papers), nil
}

// StarsInPaper returns the stars a paper mentions, brightest first.
func (s *Service) StarsInPaper(ctx context.Context, arxivID string) ([]domgraph.StarRef, error) {
	if err := domgraph.ValidateKey(domgraph.KindPaper, arxivID); err != nil {
		return nil, err
	}
	stars, err := s.repo.StarsInPaper(ctx, arxivID)
	if err != nil {
		return nil, fmt.Errorf("stars in paper %s: %w", arxivID, err)
	}
	domgraph.SortStarRefs(stars)
	return nonNil(stars), nil
}

// RelatedStars returns stars within maxHops of sourceID, excluding it, ordered by
// hop distance then brightness. maxHops is clamped to [1, domgraph.MaxHops].
func (s *Service) RelatedStars(ctx context.Context, sourceID string, maxHops, limit int) ([]domgraph.RelatedStar, error) {
	if err := domgraph.ValidateKey(domgraph.KindStar, sourceID); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	related, err := s.repo.RelatedStars(ctx, sourceID, domgraph.ClampHops(maxHops), limit)
	if err != nil {
		return nil, fmt.Errorf("related stars %s: %w", sourceID, err)
	}

	out := related[:0]
	for _, r := range related {
		if r.SourceID != sourceID {
			out = append(out, r)
		}
	}
	domgraph.SortRelated(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return nonNil(out), nil
}

// ClusterMembers returns a cluster's stars, brightest first.
func (s *Service) ClusterMembers(ctx context.Context, name string, limit int) ([]domgraph.StarRef, error) {
	if err := domgraph.ValidateKey(domgraph.KindCluster, name); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	stars, err := s.repo.ClusterMembers(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("cluster members %s: %w", name, err)
	}
	domgraph.SortStarRefs(stars)
	return nonNil(stars), nil
}

// PapersByTopicKeyword matches keyword case-insensitively against titles and abstracts.
func (s *Service) PapersByTopicKeyword(ctx context.Context, keyword string, limit int) ([]domgraph.Paper, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", domain.ErrInvalidParameter)
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	papers, err := s.repo.PapersByTopic(ctx, keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("papers by topic %q: %w", keyword, err)
	}
	domgraph.SortPapersNewestFirst(papers)
	return nonNil(papers), nil
}

// GraphStats counts nodes per kind and edges.
func (s *Service) GraphStats(ctx context.Context) (domgraph.Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return domgraph.Stats{}, fmt.Errorf("graph stats: %w", err)
	}
	return st, nil
}

func validateLimit(limit int) error {
	if limit < 1 || limit > MaxLimit {
		return fmt.Errorf("%w: limit %d outside [1,%d]", domain.ErrInvalidParameter, limit, MaxLimit)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
