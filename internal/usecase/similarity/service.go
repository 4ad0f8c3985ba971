// Package similarity is the SimilarityIndex: collection provisioning, batched
// document indexing and nearest-neighbor queries by text or vector.
package similarity

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/kailas-cloud/taarya/internal/domain"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// MaxLimit bounds a single similarity query.
const MaxLimit = 1000

// Service embeds text through an injected embedder and queries the vector store.
type Service struct {
	repo  Repository
	embed domain.Embedder
	cfg   domain.SimilarityConfig
}

// New creates a similarity service with default collection settings.
func New(repo Repository, embed domain.Embedder) *Service {
	return &Service{repo: repo, embed: embed, cfg: domain.DefaultSimilarityConfig()}
}

// WithConfig overrides collection defaults. Zero fields keep their defaults.
func (s *Service) WithConfig(cfg domain.SimilarityConfig) *Service {
	if cfg.Collection != "" {
		s.cfg.Collection = cfg.Collection
	}
	if cfg.Dimension > 0 {
		s.cfg.Dimension = cfg.Dimension
	}
	if cfg.BatchSize > 0 {
		s.cfg.BatchSize = cfg.BatchSize
	}
	return s
}

// DefaultCollection returns the configured collection name.
func (s *Service) DefaultCollection() string { return s.cfg.Collection }

// Dimension returns the configured vector dimension.
func (s *Service) Dimension() int { return s.cfg.Dimension }

// EnsureCollection creates the collection if it does not exist.
// An existing collection of another dimension fails with domain.ErrSchemaConflict.
func (s *Service) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidParameter)
	}
	if err := s.repo.EnsureCollection(ctx, name, dim); err != nil {
		return fmt.Errorf("ensure collection %s: %w", name, err)
	}
	return nil
}

// EmbedText vectorizes a single text.
func (s *Service) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", domain.ErrInvalidParameter)
	}
	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	return res.Embedding, nil
}

// EmbedBatch vectorizes texts, preserving order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	res, err := domain.EmbedBatch(ctx, s.embed, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts: %w",
			len(res.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	return res.Embeddings, nil
}

// IndexDocuments embeds and upserts docs in fixed-size batches.
// A failing batch aborts the rest; the returned count covers the batches written before it.
func (s *Service) IndexDocuments(ctx context.Context, collection string, docs []domsim.Document) (int, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}
	texts := make([]string, len(docs))
	for i := range docs {
		if strings.TrimSpace(docs[i].ID) == "" {
			return 0, fmt.Errorf("%w: document %d has no id", domain.ErrInvalidParameter, i)
		}
		texts[i] = docs[i].EmbeddingText()
		if texts[i] == "" {
			return 0, fmt.Errorf("%w: document %s has no text", domain.ErrInvalidParameter, docs[i].ID)
		}
	}

	indexed := 0
	for start := 0; start < len(docs); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(docs))

		vectors, err := s.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return indexed, fmt.Errorf("batch at %d (indexed %d of %d): %w", start, indexed, len(docs), err)
		}

		points := make([]domsim.Point, end-start)
		for i := range points {
			d := &docs[start+i]
			points[i] = domsim.Point{ID: d.ID, Vector: vectors[i], Metadata: maps.Clone(d.Metadata)}
		}
		if err := s.repo.Upsert(ctx, collection, points); err != nil {
			return indexed, fmt.Errorf("batch at %d (indexed %d of %d): %w", start, indexed, len(docs), err)
		}
		indexed += len(points)
	}
	return indexed, nil
}

// SearchSimilar embeds text and returns the nearest documents, best first.
// A collection that does not exist yields an empty result.
func (s *Service) SearchSimilar(
	ctx context.Context, collection, text string, limit int,
	scoreThreshold *float64, metadataFilter map[string]string,
) ([]domsim.Hit, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	filter, err := domsim.NewFilter(metadataFilter)
	if err != nil {
		return nil, err
	}

	vec, err := s.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, domsim.Query{
		Collection:     collection,
		Vector:         vec,
		Limit:          limit,
		ScoreThreshold: scoreThreshold,
		Filter:         filter,
	})
}

// SearchByVector queries with a caller-supplied vector.
func (s *Service) SearchByVector(ctx context.Context, collection string, vector []float32, limit int) ([]domsim.Hit, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: vector is empty", domain.ErrInvalidParameter)
	}
	return s.search(ctx, domsim.Query{Collection: collection, Vector: vector, Limit: limit})
}

func (s *Service) search(ctx context.Context, q domsim.Query) ([]domsim.Hit, error) {
	hits, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", q.Collection, err)
	}
	if hits == nil {
		hits = []domsim.Hit{}
	}
	return hits, nil
}

// CollectionInfo describes a collection; a missing one reports Exists=false.
func (s *Service) CollectionInfo(ctx context.Context, name string) (domsim.CollectionInfo, error) {
	if err := validateCollection(name); err != nil {
		return domsim.CollectionInfo{}, err
	}
	info, err := s.repo.Info(ctx, name)
	if err != nil {
		return domsim.CollectionInfo{}, fmt.Errorf("collection info %s: %w", name, err)
	}
	return info, nil
}

func validateCollection(name string) error {
	if !domsim.ValidCollectionName(name) {
		return fmt.Errorf("%w: collection name %q", domain.ErrInvalidParameter, name)
	}
	return nil
}

func validateLimit(limit int) error {
	if limit < 1 || limit > MaxLimit {
		return fmt.Errorf("%w: limit %d outside [1,%d]", domain.ErrInvalidParameter, limit, MaxLimit)
	}
	return nil
}
