// Package graph holds the relationship-graph model: star, paper and cluster nodes and their typed edges.
package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/taarya/internal/domain"
)

// MaxHops bounds RelatedStars traversal regardless of caller input.
const MaxHops = 3

// Kind is a node label.
type Kind string

const (
	// KindStar is a catalog point source keyed by source id.
	KindStar Kind = "Star"
	// KindPaper is a document keyed by external (arXiv) id.
	KindPaper Kind = "Paper"
	// KindCluster is a star cluster keyed by name.
	KindCluster Kind = "Cluster"
)

// EdgeType is a directed relationship type.
type EdgeType string

const (
	// MentionedIn links Star -> Paper.
	MentionedIn EdgeType = "MENTIONED_IN"
	// MemberOf links Star -> Cluster.
	MemberOf EdgeType = "MEMBER_OF"
	// Cites links Paper -> Paper.
	Cites EdgeType = "CITES"
)

// Endpoints returns the source and target kinds allowed for an edge type.
func (t EdgeType) Endpoints() (from, to Kind) {
	switch t {
	case MentionedIn:
		return KindStar, KindPaper
	case MemberOf:
		return KindStar, KindCluster
	case Cites:
		return KindPaper, KindPaper
	}
	return "", ""
}

// Star is a Star node.
type Star struct {
	SourceID   string   `json:"source_id"`
	RA         float64  `json:"ra"`
	Dec        float64  `json:"dec"`
	MagnitudeG *float64 `json:"phot_g_mean_mag,omitempty"`
	Catalog    string   `json:"catalog,omitempty"`
}

// Paper is a Paper node.
type Paper struct {
	ArxivID       string `json:"arxiv_id"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract,omitempty"`
	Categories    string `json:"categories,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Cluster is a Cluster node.
type Cluster struct {
	Name string  `json:"name"`
	RA   float64 `json:"ra"`
	Dec  float64 `json:"dec"`
}

// RelatedStar is a star reachable from an origin star within a bounded number of hops.
type RelatedStar struct {
	SourceID   string   `json:"source_id"`
	Hops       int      `json:"distance"`
	MagnitudeG *float64 `json:"phot_g_mean_mag,omitempty"`
}

// StarRef is a star listed as a member of a paper or cluster.
type StarRef struct {
	SourceID   string   `json:"source_id"`
	RA         float64  `json:"ra"`
	Dec        float64  `json:"dec"`
	MagnitudeG *float64 `json:"phot_g_mean_mag,omitempty"`
}

// Stats are node counts per kind plus the total edge count.
type Stats struct {
	Stars         int `json:"stars"`
	Papers        int `json:"papers"`
	Clusters      int `json:"clusters"`
	Relationships int `json:"relationships"`
}

// ClampHops limits requested hops to [1, MaxHops].
func ClampHops(h int) int {
	if h < 1 {
		return 1
	}
	if h > MaxHops {
		return MaxHops
	}
	return h
}

// ValidateKey rejects empty natural keys.
func ValidateKey(kind Kind, key string) error {
	if key == "" {
		return fmt.Errorf("%w: %s key is required", domain.ErrInvalidParameter, kind)
	}
	return nil
}

var isoDatePrefix = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?`)

// DateKey returns the ISO-8601 prefix of a published date (YYYY, YYYY-MM or
// YYYY-MM-DD), or "" when the value does not start with one.
func DateKey(published string) string {
	return isoDatePrefix.FindString(strings.TrimSpace(published))
}

// SortPapersNewestFirst orders papers by published date descending. Missing
// dates and values without an ISO-8601 prefix ("unknown", "N/A") sort last.
func SortPapersNewestFirst(papers []Paper) {
	sort.SliceStable(papers, func(i, j int) bool {
		ki, kj := DateKey(papers[i].PublishedDate), DateKey(papers[j].PublishedDate)
		if (ki == "") != (kj == "") {
			return ki != ""
		}
		if ki != kj {
			return ki > kj
		}
		if ki != "" && papers[i].PublishedDate != papers[j].PublishedDate {
			return papers[i].PublishedDate > papers[j].PublishedDate
		}
		return papers[i].ArxivID < papers[j].ArxivID
	})
}

// SortRelated orders by hop distance, then brighter magnitude first, then source id.
// Stars without magnitude come after those with one at the same distance.
func SortRelated(stars []RelatedStar) {
	sort.SliceStable(stars, func(i, j int) bool {
		a, b := stars[i], stars[j]
		if a.Hops != b.Hops {
			return a.Hops < b.Hops
		}
		if c := compareMag(a.MagnitudeG, b.MagnitudeG); c != 0 {
			return c < 0
		}
		return a.SourceID < b.SourceID
	})
}

// SortStarRefs orders by magnitude ascending, then source id.
func SortStarRefs(stars []StarRef) {
	sort.SliceStable(stars, func(i, j int) bool {
		if c := compareMag(stars[i].MagnitudeG, stars[j].MagnitudeG); c != 0 {
			return c < 0
		}
		return stars[i].SourceID < stars[j].SourceID
	})
}

func compareMag(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
