package search

import (
	"github.com/kailas-cloud/taarya/internal/domain/catalog"
	"github.com/kailas-cloud/taarya/internal/domain/graph"
	"github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// Response is the additive union of per-route sections. Only sections of successful routes are set.
type Response struct {
	Query        QueryEcho          `json:"query"`
	BackendsUsed []string           `json:"backends_used"`
	Spatial      *SpatialSection    `json:"spatial,omitempty"`
	Semantic     *SemanticSection   `json:"semantic,omitempty"`
	StarDetail   *StarDetailSection `json:"star_detail,omitempty"`
	Errors       map[string]string  `json:"errors,omitempty"`
}

// QueryEcho repeats the validated request.
type QueryEcho struct {
	Text     string        `json:"text,omitempty"`
	Cone     *catalog.Cone `json:"cone,omitempty"`
	SourceID string        `json:"source_id,omitempty"`
	Limit    int           `json:"limit"`
}

// Echo builds the query echo of req.
func Echo(req Request) QueryEcho {
	e := QueryEcho{Limit: req.Limit()}
	e.Text, _ = req.Text()
	e.SourceID, _ = req.SourceID()
	if c, ok := req.Cone(); ok {
		e.Cone = &c
	}
	return e
}

// SpatialSection holds cone-search hits.
type SpatialSection struct {
	Count int           `json:"count"`
	Stars []catalog.Hit `json:"stars"`
}

// SemanticSection holds similarity hits.
type SemanticSection struct {
	Count  int              `json:"count"`
	Papers []similarity.Hit `json:"papers"`
}

// StarDetailSection is the identifier path result: the star, its papers, and related stars.
type StarDetailSection struct {
	Star         catalog.Record      `json:"star"`
	Papers       []graph.Paper       `json:"papers"`
	RelatedStars []graph.RelatedStar `json:"related_stars"`
}

// StarPapers groups papers mentioning one star (cone-with-context enrichment).
type StarPapers struct {
	SourceID string        `json:"source_id"`
	Papers   []graph.Paper `json:"papers"`
}

// ConeContext is the result of a cone search with graph enrichment.
type ConeContext struct {
	Query         catalog.Cone      `json:"query"`
	Count         int               `json:"count"`
	Stars         []catalog.Hit     `json:"stars"`
	RelatedPapers []StarPapers      `json:"related_papers"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// PaperStars groups stars mentioned in one paper (semantic-with-sources enrichment).
type PaperStars struct {
	ArxivID string          `json:"arxiv_id"`
	Stars   []graph.StarRef `json:"stars"`
}

// SemanticSources is the result of a semantic search with graph enrichment.
type SemanticSources struct {
	Query          string            `json:"query"`
	Count          int               `json:"count"`
	Papers         []similarity.Hit  `json:"papers"`
	MentionedStars []PaperStars      `json:"mentioned_stars"`
	Errors         map[string]string `json:"errors,omitempty"`
}
