// Package graph stores the star/paper/cluster relationship graph in Neo4j
// or in two SQL tables.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
)

// runner executes one Cypher statement and returns all records.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
}

// driverRunner runs statements through neo4j.ExecuteQuery.
type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d driverRunner) Run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	res, err := neo4j.ExecuteQuery(ctx, d.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Neo4j implements usecase/graph.Repository with Cypher MERGE semantics.
type Neo4j struct {
	run    runner
	logger *zap.Logger
}

// NewNeo4j wraps a connected driver. An empty database uses the server default.
func NewNeo4j(driver neo4j.DriverWithContext, database string) *Neo4j {
	return &Neo4j{run: driverRunner{driver: driver, database: database}, logger: zap.NewNop()}
}

// WithLogger sets the logger used for swallowed schema errors.
func (g *Neo4j) WithLogger(l *zap.Logger) *Neo4j {
	if l != nil {
		g.logger = l
	}
	return g
}

var neo4jSchema = []string{
	"CREATE CONSTRAINT star_source_id IF NOT EXISTS FOR (s:Star) REQUIRE s.source_id IS UNIQUE",
	"CREATE CONSTRAINT paper_arxiv_id IF NOT EXISTS FOR (p:Paper) REQUIRE p.arxiv_id IS UNIQUE",
	"CREATE CONSTRAINT cluster_name IF NOT EXISTS FOR (c:Cluster) REQUIRE c.name IS UNIQUE",
	"CREATE INDEX star_ra_dec IF NOT EXISTS FOR (s:Star) ON (s.ra, s.dec)",
}

// EnsureSchema creates uniqueness constraints. A constraint that already
// exists is logged at debug; any other failure is returned.
func (g *Neo4j) EnsureSchema(ctx context.Context) error {
	for _, stmt := range neo4jSchema {
		_, err := g.run.Run(ctx, stmt, nil)
		switch {
		case err == nil:
		case constraintExists(err):
			g.logger.Debug("schema statement skipped", zap.String("statement", stmt), zap.Error(err))
		default:
			return fmt.Errorf("graph schema: %w", err)
		}
	}
	return nil
}

// constraintExists matches the server's "already exists" and
// "EquivalentSchemaRuleAlreadyExists" failures.
func constraintExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "equivalentschemarule")
}

// UpsertStar merges a Star node by source_id.
func (g *Neo4j) UpsertStar(ctx context.Context, s domgraph.Star) error {
	_, err := g.run.Run(ctx, `
		MERGE (s:Star {source_id: $source_id})
		SET s.ra = $ra, s.dec = $dec, s.phot_g_mean_mag = $mag, s.catalog = $catalog`,
		map[string]any{
			"source_id": s.SourceID, "ra": s.RA, "dec": s.Dec,
			"mag": optional(s.MagnitudeG), "catalog": s.Catalog,
		})
	if err != nil {
		return fmt.Errorf("merge star %s: %w", s.SourceID, err)
	}
	return nil
}

// UpsertPaper merges a Paper node by arxiv_id.
func (g *Neo4j) UpsertPaper(ctx context.Context, p domgraph.Paper) error {
	_, err := g.run.Run(ctx, `
		MERGE (p:Paper {arxiv_id: $arxiv_id})
		SET p.title = $title, p.abstract = $abstract,
		    p.categories = $categories, p.published_date = $published_date,
		    p.date_key = $date_key`,
		map[string]any{
			"arxiv_id": p.ArxivID, "title": p.Title, "abstract": p.Abstract,
			"categories": p.Categories, "published_date": p.PublishedDate,
			"date_key": domgraph.DateKey(p.PublishedDate),
		})
	if err != nil {
		return fmt.Errorf("merge paper %s: %w", p.ArxivID, err)
	}
	return nil
}

// UpsertCluster merges a Cluster node by name.
func (g *Neo4j) UpsertCluster(ctx context.Context, c domgraph.Cluster) error {
	_, err := g.run.Run(ctx, `
		MERGE (c:Cluster {name: $name})
		SET c.ra = $ra, c.dec = $dec`,
		map[string]any{"name": c.Name, "ra": c.RA, "dec": c.Dec})
	if err != nil {
		return fmt.Errorf("merge cluster %s: %w", c.Name, err)
	}
	return nil
}

// Link merges an edge between two existing nodes. Missing endpoints make it a no-op.
func (g *Neo4j) Link(ctx context.Context, edge domgraph.EdgeType, fromKey, toKey string) error {
	from, to := edge.Endpoints()
	if from == "" {
		return fmt.Errorf("unknown edge type %q", edge)
	}
	cypher := fmt.Sprintf(`
		MATCH (a:%s {%s: $from})
		MATCH (b:%s {%s: $to})
		MERGE (a)-[:%s]->(b)`, from, keyProp(from), to, keyProp(to), edge)
	if _, err := g.run.Run(ctx, cypher, map[string]any{"from": fromKey, "to": toKey}); err != nil {
		return fmt.Errorf("merge %s %s->%s: %w", edge, fromKey, toKey, err)
	}
	return nil
}

// PapersForStar returns papers mentioning the star, newest first.
func (g *Neo4j) PapersForStar(ctx context.Context, sourceID string) ([]domgraph.Paper, error) {
	recs, err := g.run.Run(ctx, `
		MATCH (s:Star {source_id: $source_id})-[:MENTIONED_IN]->(p:Paper)
		RETURN p.arxiv_id AS arxiv_id, p.title AS title, p.abstract AS abstract,
		       p.categories AS categories, p.published_date AS published_date`,
		map[string]any{"source_id": sourceID})
	if err != nil {
		return nil, fmt.Errorf("papers for star %s: %w", sourceID, err)
	}
	papers, err := papersFromRecords(recs)
	if err != nil {
		return nil, err
	}
	domgraph.SortPapersNewestFirst(papers)
	return papers, nil
}

// StarsInPaper returns stars mentioned in the paper, brightest first.
func (g *Neo4j) StarsInPaper(ctx context.Context, arxivID string) ([]domgraph.StarRef, error) {
	recs, err := g.run.Run(ctx, `
		MATCH (s:Star)-[:MENTIONED_IN]->(p:Paper {arxiv_id: $arxiv_id})
		RETURN s.source_id AS source_id, s.ra AS ra, s.dec AS dec, s.phot_g_mean_mag AS phot_g_mean_mag`,
		map[string]any{"arxiv_id": arxivID})
	if err != nil {
		return nil, fmt.Errorf("stars in paper %s: %w", arxivID, err)
	}
	stars, err := starRefsFromRecords(recs)
	if err != nil {
		return nil, err
	}
	domgraph.SortStarRefs(stars)
	return stars, nil
}

// RelatedStars returns stars reachable within hops edges in either direction.
func (g *Neo4j) RelatedStars(ctx context.Context, sourceID string, hops, limit int) ([]domgraph.RelatedStar, error) {
	hops = domgraph.ClampHops(hops)
	// variable-length bounds cannot be parameters
	cypher := fmt.Sprintf(`
		MATCH (s1:Star {source_id: $source_id})
		MATCH path = (s1)-[*1..%d]-(s2:Star)
		WHERE s1 <> s2
		WITH s2, min(length(path)) AS distance
		RETURN s2.source_id AS source_id, s2.phot_g_mean_mag AS phot_g_mean_mag, distance
		ORDER BY distance, s2.phot_g_mean_mag, s2.source_id
		LIMIT $limit`, hops)

	recs, err := g.run.Run(ctx, cypher, map[string]any{"source_id": sourceID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("related stars %s: %w", sourceID, err)
	}

	out := make([]domgraph.RelatedStar, 0, len(recs))
	for _, rec := range recs {
		id, _, err := neo4j.GetRecordValue[string](rec, "source_id")
		if err != nil {
			return nil, fmt.Errorf("read source_id: %w", err)
		}
		if id == sourceID {
			continue
		}
		dist, _, err := neo4j.GetRecordValue[int64](rec, "distance")
		if err != nil {
			return nil, fmt.Errorf("read distance: %w", err)
		}
		mag, err := optionalFloat(rec, "phot_g_mean_mag")
		if err != nil {
			return nil, err
		}
		out = append(out, domgraph.RelatedStar{SourceID: id, Hops: int(dist), MagnitudeG: mag})
	}
	domgraph.SortRelated(out)
	return out, nil
}

// ClusterMembers returns member stars, brightest first.
func (g *Neo4j) ClusterMembers(ctx context.Context, name string, limit int) ([]domgraph.StarRef, error) {
	recs, err := g.run.Run(ctx, `
		MATCH (s:Star)-[:MEMBER_OF]->(c:Cluster {name: $name})
		RETURN s.source_id AS source_id, s.ra AS ra, s.dec AS dec, s.phot_g_mean_mag AS phot_g_mean_mag
		ORDER BY s.phot_g_mean_mag, s.source_id
		LIMIT $limit`,
		map[string]any{"name": name, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("cluster members %s: %w", name, err)
	}
	stars, err := starRefsFromRecords(recs)
	if err != nil {
		return nil, err
	}
	domgraph.SortStarRefs(stars)
	return stars, nil
}

// PapersByTopic matches keyword case-insensitively against title and abstract.
func (g *Neo4j) PapersByTopic(ctx context.Context, keyword string, limit int) ([]domgraph.Paper, error) {
	recs, err := g.run.Run(ctx, `
		MATCH (p:Paper)
		WHERE toLower(p.title) CONTAINS toLower($keyword)
		   OR toLower(p.abstract) CONTAINS toLower($keyword)
		RETURN p.arxiv_id AS arxiv_id, p.title AS title, p.abstract AS abstract,
		       p.categories AS categories, p.published_date AS published_date
		ORDER BY coalesce(p.date_key, '') = '', p.date_key DESC, p.published_date DESC, p.arxiv_id
		LIMIT $limit`,
		map[string]any{"keyword": keyword, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("papers by topic %q: %w", keyword, err)
	}
	papers, err := papersFromRecords(recs)
	if err != nil {
		return nil, err
	}
	domgraph.SortPapersNewestFirst(papers)
	return papers, nil
}

// Stats counts nodes per label and all relationships.
func (g *Neo4j) Stats(ctx context.Context) (domgraph.Stats, error) {
	recs, err := g.run.Run(ctx, `
		CALL { MATCH (s:Star) RETURN count(s) AS stars }
		CALL { MATCH (p:Paper) RETURN count(p) AS papers }
		CALL { MATCH (c:Cluster) RETURN count(c) AS clusters }
		CALL { MATCH ()-[r]->() RETURN count(r) AS relationships }
		RETURN stars, papers, clusters, relationships`, nil)
	if err != nil {
		return domgraph.Stats{}, fmt.Errorf("graph stats: %w", err)
	}
	if len(recs) == 0 {
		return domgraph.Stats{}, nil
	}

	var counts [4]int64
	for i, key := range []string{"stars", "papers", "clusters", "relationships"} {
		v, _, err := neo4j.GetRecordValue[int64](recs[0], key)
		if err != nil {
			return domgraph.Stats{}, fmt.Errorf("read %s: %w", key, err)
		}
		counts[i] = v
	}
	return domgraph.Stats{
		Stars:         int(counts[0]),
		Papers:        int(counts[1]),
		Clusters:      int(counts[2]),
		Relationships: int(counts[3]),
	}, nil
}

func keyProp(k domgraph.Kind) string {
	switch k {
	case domgraph.KindStar:
		return "source_id"
	case domgraph.KindPaper:
		return "arxiv_id"
	default:
		return "name"
	}
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optionalFloat(rec *neo4j.Record, key string) (*float64, error) {
	v, isNil, err := neo4j.GetRecordValue[float64](rec, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if isNil {
		return nil, nil
	}
	return &v, nil
}

func optionalString(rec *neo4j.Record, key string) (string, error) {
	v, _, err := neo4j.GetRecordValue[string](rec, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func papersFromRecords(recs []*neo4j.Record) ([]domgraph.Paper, error) {
	out := make([]domgraph.Paper, 0, len(recs))
	for _, rec := range recs {
		var p domgraph.Paper
		fields := []struct {
			key string
			dst *string
		}{
			{"arxiv_id", &p.ArxivID}, {"title", &p.Title}, {"abstract", &p.Abstract},
			{"categories", &p.Categories}, {"published_date", &p.PublishedDate},
		}
		for _, f := range fields {
			v, err := optionalString(rec, f.key)
			if err != nil {
				return nil, err
			}
			*f.dst = strings.TrimSpace(v)
		}
		out = append(out, p)
	}
	return out, nil
}

func starRefsFromRecords(recs []*neo4j.Record) ([]domgraph.StarRef, error) {
	out := make([]domgraph.StarRef, 0, len(recs))
	for _, rec := range recs {
		id, _, err := neo4j.GetRecordValue[string](rec, "source_id")
		if err != nil {
			return nil, fmt.Errorf("read source_id: %w", err)
		}
		ra, _, err := neo4j.GetRecordValue[float64](rec, "ra")
		if err != nil {
			return nil, fmt.Errorf("read ra: %w", err)
		}
		dec, _, err := neo4j.GetRecordValue[float64](rec, "dec")
		if err != nil {
			return nil, fmt.Errorf("read dec: %w", err)
		}
		mag, err := optionalFloat(rec, "phot_g_mean_mag")
		if err != nil {
			return nil, err
		}
		out = append(out, domgraph.StarRef{SourceID: id, RA: ra, Dec: dec, MagnitudeG: mag})
	}
	return out, nil
}
