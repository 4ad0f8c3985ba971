package graph

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/db/sqldb"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
)

// sqlDB is the consumer interface for the SQL graph store (ISP).
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Rebind(query string) string
}

var _ sqlDB = (*sqldb.DB)(nil)

// SQL implements usecase/graph.Repository on a nodes table and an edges
// table keyed by natural keys. Traversal runs breadth-first in Go.
type SQL struct {
	db     sqlDB
	logger *zap.Logger
}

// NewSQL creates a SQL graph store.
func NewSQL(d sqlDB) *SQL {
	return &SQL{db: d, logger: zap.NewNop()}
}

// WithLogger sets the logger.
func (g *SQL) WithLogger(l *zap.Logger) *SQL {
	if l != nil {
		g.logger = l
	}
	return g
}

var sqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS graph_nodes (
		kind TEXT NOT NULL,
		node_key TEXT NOT NULL,
		ra DOUBLE PRECISION,
		dec DOUBLE PRECISION,
		phot_g_mean_mag DOUBLE PRECISION,
		catalog TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		abstract TEXT NOT NULL DEFAULT '',
		categories TEXT NOT NULL DEFAULT '',
		published_date TEXT NOT NULL DEFAULT '',
		date_key TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (kind, node_key)
	)`,
	`CREATE TABLE IF NOT EXISTS graph_edges (
		edge_type TEXT NOT NULL,
		from_kind TEXT NOT NULL,
		from_key TEXT NOT NULL,
		to_kind TEXT NOT NULL,
		to_key TEXT NOT NULL,
		PRIMARY KEY (edge_type, from_key, to_key)
	)`,
	"CREATE INDEX IF NOT EXISTS graph_edges_to_idx ON graph_edges (to_kind, to_key)",
	"CREATE INDEX IF NOT EXISTS graph_edges_from_idx ON graph_edges (from_kind, from_key)",
}

// EnsureSchema creates the tables and indexes. Every statement is IF NOT
// EXISTS, so any failure is real and returned.
func (g *SQL) EnsureSchema(ctx context.Context) error {
	for i, stmt := range sqlSchema {
		if _, err := g.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("graph schema statement %d: %w", i+1, err)
		}
	}
	g.logger.Debug("graph schema ready", zap.Int("statements", len(sqlSchema)))
	return nil
}

// UpsertStar merges a Star node.
func (g *SQL) UpsertStar(ctx context.Context, s domgraph.Star) error {
	_, err := g.db.ExecContext(ctx, g.db.Rebind(`
		INSERT INTO graph_nodes (kind, node_key, ra, dec, phot_g_mean_mag, catalog)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, node_key) DO UPDATE SET
			ra = excluded.ra, dec = excluded.dec,
			phot_g_mean_mag = excluded.phot_g_mean_mag, catalog = excluded.catalog`),
		domgraph.KindStar, s.SourceID, s.RA, s.Dec, s.MagnitudeG, s.Catalog)
	if err != nil {
		return fmt.Errorf("merge star %s: %w", s.SourceID, err)
	}
	return nil
}

// UpsertPaper merges a Paper node.
func (g *SQL) UpsertPaper(ctx context.Context, p domgraph.Paper) error {
	_, err := g.db.ExecContext(ctx, g.db.Rebind(`
		INSERT INTO graph_nodes (kind, node_key, title, abstract, categories, published_date, date_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, node_key) DO UPDATE SET
			title = excluded.title, abstract = excluded.abstract,
			categories = excluded.categories, published_date = excluded.published_date,
			date_key = excluded.date_key`),
		domgraph.KindPaper, p.ArxivID, p.Title, p.Abstract, p.Categories, p.PublishedDate,
		domgraph.DateKey(p.PublishedDate))
	if err != nil {
		return fmt.Errorf("merge paper %s: %w", p.ArxivID, err)
	}
	return nil
}

// UpsertCluster merges a Cluster node.
func (g *SQL) UpsertCluster(ctx context.Context, c domgraph.Cluster) error {
	_, err := g.db.ExecContext(ctx, g.db.Rebind(`
		INSERT INTO graph_nodes (kind, node_key, ra, dec)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, node_key) DO UPDATE SET ra = excluded.ra, dec = excluded.dec`),
		domgraph.KindCluster, c.Name, c.RA, c.Dec)
	if err != nil {
		return fmt.Errorf("merge cluster %s: %w", c.Name, err)
	}
	return nil
}

// Link inserts an edge when both endpoints exist. Duplicates are ignored.
func (g *SQL) Link(ctx context.Context, edge domgraph.EdgeType, fromKey, toKey string) error {
	from, to := edge.Endpoints()
	if from == "" {
		return fmt.Errorf("unknown edge type %q", edge)
	}
	_, err := g.db.ExecContext(ctx, g.db.Rebind(`
		INSERT INTO graph_edges (edge_type, from_kind, from_key, to_kind, to_key)
		SELECT CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS TEXT)
		WHERE EXISTS (SELECT 1 FROM graph_nodes WHERE kind = ? AND node_key = ?)
		  AND EXISTS (SELECT 1 FROM graph_nodes WHERE kind = ? AND node_key = ?)
		ON CONFLICT (edge_type, from_key, to_key) DO NOTHING`),
		edge, from, fromKey, to, toKey, from, fromKey, to, toKey)
	if err != nil {
		return fmt.Errorf("merge %s %s->%s: %w", edge, fromKey, toKey, err)
	}
	return nil
}

const paperColumns = "n.node_key, n.title, n.abstract, n.categories, n.published_date"

// PapersForStar returns papers mentioning the star, newest first.
func (g *SQL) PapersForStar(ctx context.Context, sourceID string) ([]domgraph.Paper, error) {
	rows, err := g.db.QueryContext(ctx, g.db.Rebind(`
		SELECT `+paperColumns+`
		FROM graph_edges e
		JOIN graph_nodes n ON n.kind = e.to_kind AND n.node_key = e.to_key
		WHERE e.edge_type = ? AND e.from_kind = ? AND e.from_key = ?`),
		domgraph.MentionedIn, domgraph.KindStar, sourceID)
	if err != nil {
		return nil, fmt.Errorf("papers for star %s: %w", sourceID, err)
	}
	papers, err := scanPapers(rows)
	if err != nil {
		return nil, fmt.Errorf("papers for star %s: %w", sourceID, err)
	}
	domgraph.SortPapersNewestFirst(papers)
	return papers, nil
}

const starColumns = "n.node_key, n.ra, n.dec, n.phot_g_mean_mag"

// StarsInPaper returns stars mentioned in the paper, brightest first.
func (g *SQL) StarsInPaper(ctx context.Context, arxivID string) ([]domgraph.StarRef, error) {
	rows, err := g.db.QueryContext(ctx, g.db.Rebind(`
		SELECT `+starColumns+`
		FROM graph_edges e
		JOIN graph_nodes n ON n.kind = e.from_kind AND n.node_key = e.from_key
		WHERE e.edge_type = ? AND e.to_kind = ? AND e.to_key = ?`),
		domgraph.MentionedIn, domgraph.KindPaper, arxivID)
	if err != nil {
		return nil, fmt.Errorf("stars in paper %s: %w", arxivID, err)
	}
	stars, err := scanStarRefs(rows)
	if err != nil {
		return nil, fmt.Errorf("stars in paper %s: %w", arxivID, err)
	}
	domgraph.SortStarRefs(stars)
	return stars, nil
}

// ClusterMembers returns member stars, brightest first.
func (g *SQL) ClusterMembers(ctx context.Context, name string, limit int) ([]domgraph.StarRef, error) {
	rows, err := g.db.QueryContext(ctx, g.db.Rebind(`
		SELECT `+starColumns+`
		FROM graph_edges e
		JOIN graph_nodes n ON n.kind = e.from_kind AND n.node_key = e.from_key
		WHERE e.edge_type = ? AND e.to_kind = ? AND e.to_key = ?`),
		domgraph.MemberOf, domgraph.KindCluster, name)
	if err != nil {
		return nil, fmt.Errorf("cluster members %s: %w", name, err)
	}
	stars, err := scanStarRefs(rows)
	if err != nil {
		return nil, fmt.Errorf("cluster members %s: %w", name, err)
	}
	domgraph.SortStarRefs(stars)
	if limit > 0 && len(stars) > limit {
		stars = stars[:limit]
	}
	return stars, nil
}

// PapersByTopic matches keyword case-insensitively against title and abstract, newest first.
func (g *SQL) PapersByTopic(ctx context.Context, keyword string, limit int) ([]domgraph.Paper, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
	rows, err := g.db.QueryContext(ctx, g.db.Rebind(`
		SELECT `+paperColumns+`
		FROM graph_nodes n
		WHERE n.kind = ?
		  AND (LOWER(n.title) LIKE ? ESCAPE '\' OR LOWER(n.abstract) LIKE ? ESCAPE '\')
		ORDER BY n.date_key = '', n.date_key DESC, n.published_date DESC, n.node_key
		LIMIT ?`),
		domgraph.KindPaper, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("papers by topic %q: %w", keyword, err)
	}
	papers, err := scanPapers(rows)
	if err != nil {
		return nil, fmt.Errorf("papers by topic %q: %w", keyword, err)
	}
	domgraph.SortPapersNewestFirst(papers)
	return papers, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Stats counts nodes per kind and all edges.
func (g *SQL) Stats(ctx context.Context) (domgraph.Stats, error) {
	var st domgraph.Stats
	rows, err := g.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM graph_nodes GROUP BY kind")
	if err != nil {
		return st, fmt.Errorf("graph stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return st, fmt.Errorf("scan graph stats: %w", err)
		}
		switch domgraph.Kind(kind) {
		case domgraph.KindStar:
			st.Stars = n
		case domgraph.KindPaper:
			st.Papers = n
		case domgraph.KindCluster:
			st.Clusters = n
		}
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("graph stats: %w", err)
	}

	if err := g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM graph_edges").Scan(&st.Relationships); err != nil {
		return st, fmt.Errorf("count edges: %w", err)
	}
	return st, nil
}

func scanPapers(rows *sql.Rows) ([]domgraph.Paper, error) {
	defer rows.Close()
	out := []domgraph.Paper{}
	for rows.Next() {
		var p domgraph.Paper
		if err := rows.Scan(&p.ArxivID, &p.Title, &p.Abstract, &p.Categories, &p.PublishedDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanStarRefs(rows *sql.Rows) ([]domgraph.StarRef, error) {
	defer rows.Close()
	out := []domgraph.StarRef{}
	for rows.Next() {
		var (
			s       domgraph.StarRef
			ra, dec sql.NullFloat64
			mag     sql.NullFloat64
		)
		if err := rows.Scan(&s.SourceID, &ra, &dec, &mag); err != nil {
			return nil, err
		}
		s.RA, s.Dec = ra.Float64, dec.Float64
		if mag.Valid {
			m := mag.Float64
			s.MagnitudeG = &m
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
