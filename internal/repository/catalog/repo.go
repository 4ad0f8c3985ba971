// Package catalog stores point sources in SQL. Postgres with the Q3C
// extension answers cone queries in the index; any other dialect
// prefilters by an RA/Dec box and computes exact distances in Go.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/taarya/internal/db"
	"github.com/kailas-cloud/taarya/internal/db/sqldb"
	"github.com/kailas-cloud/taarya/internal/domain"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	"github.com/kailas-cloud/taarya/internal/domain/sky"
)

// DefaultTable is the catalog table name.
const DefaultTable = "gaia_stars"

// sqlDB is the consumer interface for the catalog store (ISP).
type sqlDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Rebind(query string) string
	Driver() sqldb.Driver
}

// Repo implements usecase/catalog.Repository.
type Repo struct {
	db    sqlDB
	table string
	q3c   bool
}

// New creates a catalog repository on the default table without Q3C.
func New(d sqlDB) *Repo {
	return &Repo{db: d, table: DefaultTable}
}

// WithTable overrides the table name. Invalid identifiers are ignored.
func (r *Repo) WithTable(table string) *Repo {
	if db.IsValidIdentifier(table) && !strings.Contains(table, ":") && !strings.Contains(table, "-") {
		r.table = table
	}
	return r
}

// WithQ3C enables q3c_radial_query. Only honored on postgres.
func (r *Repo) WithQ3C(enabled bool) *Repo {
	r.q3c = enabled && r.db.Driver() == sqldb.Postgres
	return r
}

const columns = "source_id, ra, dec, parallax, pmra, pmdec, " +
	"phot_g_mean_mag, phot_bp_mean_mag, phot_rp_mean_mag, ruwe, catalog_source"

// EnsureSchema creates the table and its spatial index.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			source_id TEXT PRIMARY KEY,
			ra DOUBLE PRECISION NOT NULL,
			dec DOUBLE PRECISION NOT NULL,
			parallax DOUBLE PRECISION,
			pmra DOUBLE PRECISION,
			pmdec DOUBLE PRECISION,
			phot_g_mean_mag DOUBLE PRECISION,
			phot_bp_mean_mag DOUBLE PRECISION,
			phot_rp_mean_mag DOUBLE PRECISION,
			ruwe DOUBLE PRECISION,
			catalog_source TEXT NOT NULL DEFAULT ''
		)`, r.table),
	}
	if r.q3c {
		stmts = append(stmts,
			"CREATE EXTENSION IF NOT EXISTS q3c",
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_q3c_idx ON %s (q3c_ang2ipix(ra, dec))", r.table, r.table),
		)
	} else {
		stmts = append(stmts,
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_dec_idx ON %s (dec, ra)", r.table, r.table),
		)
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure catalog schema: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces records keyed on source_id in one transaction.
func (r *Repo) Upsert(ctx context.Context, records []domcat.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := r.db.Rebind(fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			ra = excluded.ra, dec = excluded.dec, parallax = excluded.parallax,
			pmra = excluded.pmra, pmdec = excluded.pmdec,
			phot_g_mean_mag = excluded.phot_g_mean_mag,
			phot_bp_mean_mag = excluded.phot_bp_mean_mag,
			phot_rp_mean_mag = excluded.phot_rp_mean_mag,
			ruwe = excluded.ruwe, catalog_source = excluded.catalog_source`, r.table, columns))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.RA, rec.Dec, rec.Parallax, rec.ProperMotionRA, rec.ProperMotionDec,
			rec.MagnitudeG, rec.MagnitudeBP, rec.MagnitudeRP, rec.QualityFlag, rec.SourceCatalog,
		); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(records), nil
}

// Lookup returns the record with id or domain.ErrNotFound.
func (r *Repo) Lookup(ctx context.Context, id string) (domcat.Record, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE source_id = ?", columns, r.table))
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domcat.Record{}, fmt.Errorf("source %s: %w", id, domain.ErrNotFound)
		}
		return domcat.Record{}, fmt.Errorf("lookup %s: %w", id, err)
	}
	return rec, nil
}

// Cone returns records inside q.Cone ordered by angular distance, then source_id.
func (r *Repo) Cone(ctx context.Context, q domcat.Query) ([]domcat.Hit, error) {
	if r.q3c {
		return r.coneQ3C(ctx, q)
	}
	return r.coneBox(ctx, q)
}

func (r *Repo) coneQ3C(ctx context.Context, q domcat.Query) ([]domcat.Hit, error) {
	c := q.Cone
	args := []any{c.RA, c.Dec, c.RA, c.Dec, c.Radius}
	where := []string{"q3c_radial_query(ra, dec, ?, ?, ?)"}
	where, args = appendFilters(where, args, q.Filters)
	where, args = appendExclusion(where, args, q.ExcludeID)
	args = append(args, q.Limit)

	query := r.db.Rebind(fmt.Sprintf(
		"SELECT %s, q3c_dist(ra, dec, ?, ?) AS dist FROM %s WHERE %s ORDER BY dist, source_id LIMIT ?",
		columns, r.table, strings.Join(where, " AND ")))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cone search: %w", err)
	}
	defer rows.Close()

	hits := make([]domcat.Hit, 0, q.Limit)
	for rows.Next() {
		var h domcat.Hit
		dest := append(recordDest(&h.Record), &h.AngularDistance)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan cone row: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cone search: %w", err)
	}
	return hits, nil
}

func (r *Repo) coneBox(ctx context.Context, q domcat.Query) ([]domcat.Hit, error) {
	c := q.Cone
	where, args := boxClause(sky.BoundingBox(c.RA, c.Dec, c.Radius))
	where, args = appendExclusion(where, args, q.ExcludeID)

	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		columns, r.table, strings.Join(where, " AND ")))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cone search: %w", err)
	}
	defer rows.Close()

	center := sky.ToUnitVector(c.RA, c.Dec)
	var hits []domcat.Hit
	for rows.Next() {
		var h domcat.Hit
		if err := rows.Scan(recordDest(&h.Record)...); err != nil {
			return nil, fmt.Errorf("scan cone row: %w", err)
		}
		if !q.Filters.Match(&h.Record) {
			continue
		}
		h.AngularDistance = sky.Separation(center, sky.ToUnitVector(h.RA, h.Dec))
		if h.AngularDistance <= c.Radius {
			hits = append(hits, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cone search: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].AngularDistance != hits[j].AngularDistance {
			return hits[i].AngularDistance < hits[j].AngularDistance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	if hits == nil {
		hits = []domcat.Hit{}
	}
	return hits, nil
}

// Count returns the number of records inside cone, or the table size when cone is nil.
func (r *Repo) Count(ctx context.Context, cone *domcat.Cone) (int, error) {
	if cone == nil {
		var n int
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.table).Scan(&n); err != nil {
			return 0, fmt.Errorf("count: %w", err)
		}
		return n, nil
	}

	if r.q3c {
		var n int
		query := r.db.Rebind(fmt.Sprintf(
			"SELECT COUNT(*) FROM %s WHERE q3c_radial_query(ra, dec, ?, ?, ?)", r.table))
		if err := r.db.QueryRowContext(ctx, query, cone.RA, cone.Dec, cone.Radius).Scan(&n); err != nil {
			return 0, fmt.Errorf("count region: %w", err)
		}
		return n, nil
	}

	where, args := boxClause(sky.BoundingBox(cone.RA, cone.Dec, cone.Radius))
	query := r.db.Rebind(fmt.Sprintf("SELECT ra, dec FROM %s WHERE %s", r.table, strings.Join(where, " AND ")))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("count region: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var ra, dec float64
		if err := rows.Scan(&ra, &dec); err != nil {
			return 0, fmt.Errorf("scan region row: %w", err)
		}
		if cone.Contains(ra, dec) {
			n++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("count region: %w", err)
	}
	return n, nil
}

func boxClause(b sky.Box) ([]string, []any) {
	where := []string{"dec BETWEEN ? AND ?"}
	args := []any{b.DecMin, b.DecMax}
	switch {
	case b.AllRA:
	case b.Wraps():
		where = append(where, "(ra >= ? OR ra <= ?)")
		args = append(args, b.RAMin, b.RAMax)
	default:
		where = append(where, "ra BETWEEN ? AND ?")
		args = append(args, b.RAMin, b.RAMax)
	}
	return where, args
}

func appendFilters(where []string, args []any, f domcat.Filters) ([]string, []any) {
	if f.MagnitudeCeiling != nil {
		where = append(where, "phot_g_mean_mag <= ?")
		args = append(args, *f.MagnitudeCeiling)
	}
	if f.ParallaxFloor != nil {
		where = append(where, "parallax >= ?")
		args = append(args, *f.ParallaxFloor)
	}
	return where, args
}

func appendExclusion(where []string, args []any, id string) ([]string, []any) {
	if id != "" {
		where = append(where, "source_id <> ?")
		args = append(args, id)
	}
	return where, args
}
