package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/taarya/internal/domain"
	"github.com/kailas-cloud/taarya/internal/domain/agent"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// Tool names.
const (
	ToolConeSearch   = "cone_search"
	ToolStarLookup   = "star_lookup"
	ToolNearbyStars  = "find_nearby_stars"
	ToolSemantic     = "semantic_search"
	ToolGraphQuery   = "graph_query"
	ToolCountRegion  = "count_stars_in_region"
	listedResults    = 10
	listedRelated    = 5
	graphRelatedHops = 2
)

// Tool defaults.
const (
	DefaultConeRadius   = 0.5
	DefaultConeLimit    = 20
	DefaultNearbyRadius = 0.1
	DefaultNearbyLimit  = 10
	DefaultPaperLimit   = 5
	DefaultCountRadius  = 1.0
)

// Toolbox renders router results as text for the model. Tools never fail:
// errors become text the model can read.
type Toolbox struct {
	router Router
}

// NewToolbox creates the tool set over r.
func NewToolbox(r Router) *Toolbox {
	return &Toolbox{router: r}
}

// Specs describes every tool.
func (t *Toolbox) Specs() []agent.ToolSpec {
	return []agent.ToolSpec{
		{
			Name: ToolConeSearch,
			Description: "Search for stars within a cone around given sky coordinates. " +
				"Use when the user provides RA/Dec coordinates or asks about stars near a location.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"ra":{"type":"number","description":"Right Ascension in degrees (0-360)"},` +
				`"dec":{"type":"number","description":"Declination in degrees (-90 to 90)"},` +
				`"radius_deg":{"type":"number","description":"Search radius in degrees (default 0.5)"},` +
				`"limit":{"type":"integer","description":"Maximum number of results (default 20)"}},` +
				`"required":["ra","dec"]}`),
		},
		{
			Name:        ToolStarLookup,
			Description: "Look up detailed information about a specific star by its Gaia source ID.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"source_id":{"type":"string","description":"The Gaia source ID of the star"}},` +
				`"required":["source_id"]}`),
		},
		{
			Name:        ToolNearbyStars,
			Description: "Find neighboring stars around a known star.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"source_id":{"type":"string","description":"Gaia source ID of the reference star"},` +
				`"radius_deg":{"type":"number","description":"Search radius in degrees (default 0.1)"},` +
				`"limit":{"type":"integer","description":"Maximum number of neighbors (default 10)"}},` +
				`"required":["source_id"]}`),
		},
		{
			Name:        ToolSemantic,
			Description: "Search for astronomy papers by natural language query about a research topic.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"query":{"type":"string","description":"Natural language search query"},` +
				`"limit":{"type":"integer","description":"Maximum number of results (default 5)"}},` +
				`"required":["query"]}`),
		},
		{
			Name:        ToolGraphQuery,
			Description: "Find papers and related stars for a given star using the knowledge graph.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"source_id":{"type":"string","description":"Gaia source ID to look up in the knowledge graph"}},` +
				`"required":["source_id"]}`),
		},
		{
			Name:        ToolCountRegion,
			Description: "Count how many stars are in a sky region without returning details.",
			Parameters: json.RawMessage(`{"type":"object","properties":{` +
				`"ra":{"type":"number","description":"Right Ascension in degrees"},` +
				`"dec":{"type":"number","description":"Declination in degrees"},` +
				`"radius_deg":{"type":"number","description":"Search radius in degrees (default 1.0)"}},` +
				`"required":["ra","dec"]}`),
		},
	}
}

type toolArgs struct {
	RA       *float64 `json:"ra"`
	Dec      *float64 `json:"dec"`
	Radius   *float64 `json:"radius_deg"`
	Limit    *int     `json:"limit"`
	SourceID string   `json:"source_id"`
	Query    string   `json:"query"`
}

// Invoke runs the named tool with JSON-encoded arguments.
func (t *Toolbox) Invoke(ctx context.Context, name, arguments string) string {
	var a toolArgs
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &a); err != nil {
			return fmt.Sprintf("Error: invalid arguments for %s: %v", name, err)
		}
	}

	switch name {
	case ToolConeSearch, ToolCountRegion:
		if a.RA == nil || a.Dec == nil {
			return fmt.Sprintf("Error: %s requires ra and dec", name)
		}
		if name == ToolCountRegion {
			return t.CountStarsInRegion(ctx, *a.RA, *a.Dec, orFloat(a.Radius, DefaultCountRadius))
		}
		text, _ := t.ConeSearch(ctx, *a.RA, *a.Dec, orFloat(a.Radius, DefaultConeRadius), orInt(a.Limit, DefaultConeLimit))
		return text
	case ToolStarLookup:
		text, _ := t.StarLookup(ctx, a.SourceID)
		return text
	case ToolNearbyStars:
		return t.FindNearbyStars(ctx, a.SourceID, orFloat(a.Radius, DefaultNearbyRadius), orInt(a.Limit, DefaultNearbyLimit))
	case ToolSemantic:
		text, _ := t.SemanticSearch(ctx, a.Query, orInt(a.Limit, DefaultPaperLimit))
		return text
	case ToolGraphQuery:
		return t.GraphQuery(ctx, a.SourceID)
	default:
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
}

// ConeSearch lists stars around (ra, dec).
func (t *Toolbox) ConeSearch(ctx context.Context, ra, dec, radius float64, limit int) (string, []domcat.Hit) {
	stars, err := t.router.ConeSearch(ctx, ra, dec, radius, limit)
	if err != nil {
		return fmt.Sprintf("Error performing cone search: %v", err), nil
	}
	if len(stars) == 0 {
		return fmt.Sprintf("No stars found within %g° of RA=%g, Dec=%g.", radius, ra, dec), stars
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d stars within %g° of RA=%.4f, Dec=%.4f:\n", len(stars), radius, ra, dec)
	for _, s := range stars[:min(len(stars), listedResults)] {
		fmt.Fprintf(&b, "  - %s: RA=%.4f, Dec=%.4f, G-mag=%s, distance=%.4f°\n",
			s.ID, s.RA, s.Dec, fmtOpt(s.MagnitudeG), s.AngularDistance)
	}
	if len(stars) > listedResults {
		fmt.Fprintf(&b, "  ... and %d more.", len(stars)-listedResults)
	}
	return b.String(), stars
}

// StarLookup describes one star.
func (t *Toolbox) StarLookup(ctx context.Context, id string) (string, *domcat.Record) {
	star, err := t.router.Lookup(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("Star with source_id '%s' not found in the catalog.", id), nil
	}
	if err != nil {
		return fmt.Sprintf("Error looking up star: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Star %s:\n", id)
	fmt.Fprintf(&b, "  Position: RA=%.6f°, Dec=%.6f°\n", star.RA, star.Dec)
	if star.Parallax != nil {
		fmt.Fprintf(&b, "  Parallax: %.4f mas\n", *star.Parallax)
	}
	if star.ProperMotionRA != nil && star.ProperMotionDec != nil {
		fmt.Fprintf(&b, "  Proper motion: μα=%.4f, μδ=%.4f mas/yr\n", *star.ProperMotionRA, *star.ProperMotionDec)
	}
	if star.MagnitudeG != nil {
		fmt.Fprintf(&b, "  G-band magnitude: %.3f\n", *star.MagnitudeG)
	}
	if star.MagnitudeBP != nil && star.MagnitudeRP != nil {
		fmt.Fprintf(&b, "  BP-RP color: %.3f\n", *star.MagnitudeBP-*star.MagnitudeRP)
	}
	return b.String(), &star
}

// FindNearbyStars lists the neighbors of a known star.
func (t *Toolbox) FindNearbyStars(ctx context.Context, id string, radius float64, limit int) string {
	neighbors, err := t.router.NeighborsOf(ctx, id, radius, limit)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Sprintf("Star with source_id '%s' not found in the catalog.", id)
	}
	if err != nil {
		return fmt.Sprintf("Error finding nearby stars: %v", err)
	}
	if len(neighbors) == 0 {
		return fmt.Sprintf("No neighboring stars found within %g° of %s.", radius, id)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d stars near %s (within %g°):\n", len(neighbors), id, radius)
	for _, n := range neighbors[:min(len(neighbors), listedResults)] {
		fmt.Fprintf(&b, "  - %s: G-mag=%s, dist=%.4f°\n", n.ID, fmtOpt(n.MagnitudeG), n.AngularDistance)
	}
	return b.String()
}

// SemanticSearch lists papers matching a topic.
func (t *Toolbox) SemanticSearch(ctx context.Context, query string, limit int) (string, []domsim.Hit) {
	hits, err := t.router.SemanticSearch(ctx, query, limit)
	if err != nil {
		return fmt.Sprintf("Error searching papers: %v", err), nil
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No papers found matching '%s'. The paper collection may not be populated yet.", query), hits
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d papers matching '%s':\n", len(hits), query)
	for i := range hits {
		title := hits[i].Metadata[domsim.MetaTitle]
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "  - [%.2f] %s", hits[i].Score, title)
		if id := hits[i].ExternalID(); id != "" {
			fmt.Fprintf(&b, " (arXiv: %s)", id)
		}
		b.WriteString("\n")
	}
	return b.String(), hits
}

// GraphQuery describes a star's papers and related stars.
func (t *Toolbox) GraphQuery(ctx context.Context, id string) string {
	papers, err := t.router.PapersForStar(ctx, id)
	if err != nil {
		return fmt.Sprintf("Error querying knowledge graph: %v", err)
	}
	related, err := t.router.RelatedStars(ctx, id, graphRelatedHops, domain.EnrichmentLimit)
	if err != nil {
		return fmt.Sprintf("Error querying knowledge graph: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Knowledge graph for star %s:\n", id)
	if len(papers) > 0 {
		fmt.Fprintf(&b, "\nMentioned in %d paper(s):\n", len(papers))
		for _, p := range papers {
			title := p.Title
			if title == "" {
				title = p.ArxivID
			}
			fmt.Fprintf(&b, "  - %s\n", title)
		}
	} else {
		b.WriteString("\nNo papers found mentioning this star.\n")
	}
	if len(related) > 0 {
		fmt.Fprintf(&b, "\nRelated stars (up to %d hops): %d\n", graphRelatedHops, len(related))
		for _, r := range related[:min(len(related), listedRelated)] {
			fmt.Fprintf(&b, "  - %s (distance: %d hops)\n", r.SourceID, r.Hops)
		}
	} else {
		b.WriteString("No related stars found in the graph.\n")
	}
	return b.String()
}

// CountStarsInRegion counts stars in a cone.
func (t *Toolbox) CountStarsInRegion(ctx context.Context, ra, dec, radius float64) string {
	n, err := t.router.CountInRegion(ctx, ra, dec, radius)
	if err != nil {
		return fmt.Sprintf("Error counting stars: %v", err)
	}
	return fmt.Sprintf("There are %d stars within %g° of RA=%.2f, Dec=%.2f.", n, radius, ra, dec)
}

func fmtOpt(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func orFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
