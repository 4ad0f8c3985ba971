// Package similarity holds the embedding-similarity model: indexed documents, hits and collection metadata.
package similarity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/taarya/internal/domain"
)

// Well-known metadata keys.
const (
	// MetaExternalID carries the stable external document identifier (an arXiv id for papers).
	MetaExternalID = "arxiv_id"
	// MetaTitle carries the display title.
	MetaTitle = "title"
	// MetaText overrides the text that gets embedded.
	MetaText = "text"
	// MetaAbstract is embedded together with the title when no text is given.
	MetaAbstract = "abstract"
)

// DefaultFilterFields are indexed for exact-match metadata filtering.
var DefaultFilterFields = []string{MetaExternalID, "categories", "published_date"}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidCollectionName reports whether name is usable as a collection identifier.
func ValidCollectionName(name string) bool { return identRe.MatchString(name) }

// Document is a text unit to index. ID is unique within a collection.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// EmbeddingText returns the text to embed: Text, else metadata "text", else title + abstract.
func (d *Document) EmbeddingText() string {
	if d.Text != "" {
		return d.Text
	}
	if t := d.Metadata[MetaText]; t != "" {
		return t
	}
	return strings.TrimSpace(d.Metadata[MetaTitle] + " " + d.Metadata[MetaAbstract])
}

// Point is an embedded document ready for upsert.
type Point struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Hit is a similarity result: higher Score is more similar.
type Hit struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"payload"`
}

// ExternalID returns the external document identifier, if any.
func (h *Hit) ExternalID() string { return h.Metadata[MetaExternalID] }

// SortHits orders by descending score, then ascending id.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

// Status of a collection.
type Status string

const (
	// StatusGreen means the collection is ready.
	StatusGreen Status = "green"
	// StatusMissing means the collection has not been created.
	StatusMissing Status = "missing"
)

// CollectionInfo describes a collection.
type CollectionInfo struct {
	Name         string `json:"name"`
	Exists       bool   `json:"exists"`
	Dimension    int    `json:"dimension,omitempty"`
	VectorsCount int    `json:"vectors_count"`
	PointsCount  int    `json:"points_count"`
	Status       Status `json:"status"`
}

// Query is a validated nearest-neighbor request.
type Query struct {
	Collection     string
	Vector         []float32
	Limit          int
	ScoreThreshold *float64
	Filter         Filter
}

// Filter is a conjunction of exact metadata matches.
type Filter struct {
	matches []Match
}

// Match is a single key == value condition.
type Match struct {
	Key   string
	Value string
}

// NewFilter builds a filter from a key/value map. Keys must be identifiers and values non-empty.
func NewFilter(m map[string]string) (Filter, error) {
	if len(m) == 0 {
		return Filter{}, nil
	}
	matches := make([]Match, 0, len(m))
	for k, v := range m {
		if !identRe.MatchString(k) {
			return Filter{}, fmt.Errorf("%w: filter key %q", domain.ErrInvalidParameter, k)
		}
		if v == "" {
			return Filter{}, fmt.Errorf("%w: filter value for %q is empty", domain.ErrInvalidParameter, k)
		}
		matches = append(matches, Match{Key: k, Value: v})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })
	return Filter{matches: matches}, nil
}

// Matches returns the conditions in key order.
func (f Filter) Matches() []Match { return f.matches }

// IsEmpty reports whether the filter has no conditions.
func (f Filter) IsEmpty() bool { return len(f.matches) == 0 }

// Accepts reports whether meta satisfies every condition.
func (f Filter) Accepts(meta map[string]string) bool {
	for _, m := range f.matches {
		if meta[m.Key] != m.Value {
			return false
		}
	}
	return true
}
