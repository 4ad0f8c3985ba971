package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
)

type nodeRef struct {
	kind domgraph.Kind
	key  string
}

// RelatedStars walks edges in both directions breadth-first up to hops and
// returns every star reached, at its shortest hop distance.
func (g *SQL) RelatedStars(ctx context.Context, sourceID string, hops, limit int) ([]domgraph.RelatedStar, error) {
	hops = domgraph.ClampHops(hops)
	origin := nodeRef{kind: domgraph.KindStar, key: sourceID}

	var exists int
	err := g.db.QueryRowContext(ctx, g.db.Rebind(
		"SELECT 1 FROM graph_nodes WHERE kind = ? AND node_key = ?"), origin.kind, origin.key).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return []domgraph.RelatedStar{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("related stars %s: %w", sourceID, err)
	}

	seen := map[nodeRef]int{origin: 0}
	frontier := []nodeRef{origin}
	var reached []domgraph.RelatedStar

	for depth := 1; depth <= hops && len(frontier) > 0; depth++ {
		var next []nodeRef
		for _, n := range frontier {
			adj, err := g.neighbors(ctx, n)
			if err != nil {
				return nil, fmt.Errorf("related stars %s: %w", sourceID, err)
			}
			for _, m := range adj {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = depth
				next = append(next, m)
				if m.kind == domgraph.KindStar {
					reached = append(reached, domgraph.RelatedStar{SourceID: m.key, Hops: depth})
				}
			}
		}
		frontier = next
	}

	if err := g.fillMagnitudes(ctx, reached); err != nil {
		return nil, fmt.Errorf("related stars %s: %w", sourceID, err)
	}
	domgraph.SortRelated(reached)
	if limit > 0 && len(reached) > limit {
		reached = reached[:limit]
	}
	if reached == nil {
		reached = []domgraph.RelatedStar{}
	}
	return reached, nil
}

func (g *SQL) neighbors(ctx context.Context, n nodeRef) ([]nodeRef, error) {
	rows, err := g.db.QueryContext(ctx, g.db.Rebind(`
		SELECT to_kind, to_key FROM graph_edges WHERE from_kind = ? AND from_key = ?
		UNION
		SELECT from_kind, from_key FROM graph_edges WHERE to_kind = ? AND to_key = ?`),
		n.kind, n.key, n.kind, n.key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []nodeRef
	for rows.Next() {
		var kind, key string
		if err := rows.Scan(&kind, &key); err != nil {
			return nil, err
		}
		out = append(out, nodeRef{kind: domgraph.Kind(kind), key: key})
	}
	return out, rows.Err()
}

func (g *SQL) fillMagnitudes(ctx context.Context, stars []domgraph.RelatedStar) error {
	for i := range stars {
		var mag sql.NullFloat64
		err := g.db.QueryRowContext(ctx, g.db.Rebind(
			"SELECT phot_g_mean_mag FROM graph_nodes WHERE kind = ? AND node_key = ?"),
			domgraph.KindStar, stars[i].SourceID).Scan(&mag)
		if err != nil {
			return err
		}
		if mag.Valid {
			m := mag.Float64
			stars[i].MagnitudeG = &m
		}
	}
	return nil
}
