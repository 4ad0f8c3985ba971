package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/taarya/internal/db"
	"github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// SearchKNN runs a filtered KNN query via FT.SEARCH. Entry scores are the raw
// distances reported by the engine, nearest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	args, err := knnArgs(q)
	if err != nil {
		return nil, err
	}

	raw, err := s.run(ctx, func(b rueidis.Builder) rueidis.Completed {
		return b.Arbitrary("FT.SEARCH").Args(args...).Build()
	}).ToArray()
	if err != nil {
		return nil, db.Wrap(db.OpSearch, q.IndexName, err)
	}
	return parseKNNResult(raw)
}

// knnArgs renders the FT.SEARCH arguments for q in DIALECT 2.
func knnArgs(q *db.KNNQuery) ([]string, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("knn: index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("knn: vector is required")
	case q.K <= 0:
		return nil, fmt.Errorf("knn: k must be positive, got %d", q.K)
	}

	prefilter := "*"
	if f := buildFilter(q.Filter); f != "" {
		prefilter = "(" + f + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB]", prefilter, q.K, db.VectorAlias)

	args := []string{q.IndexName, query}
	if n := len(q.ReturnFields); n > 0 {
		args = append(args, "RETURN", strconv.Itoa(n+1))
		args = append(args, q.ReturnFields...)
		args = append(args, db.ScoreField)
	}
	return append(args,
		"SORTBY", db.ScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.EncodeVector(q.Vector),
		"DIALECT", "2",
	), nil
}

// SearchCount returns the number of documents matching query without fetching any.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	raw, err := s.run(ctx, func(b rueidis.Builder) rueidis.Completed {
		return b.Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0").Build()
	}).ToArray()
	if err != nil {
		return 0, db.Wrap(db.OpSearch, index, err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// parseKNNResult reads the RESP2 layout [total, key1, fields1, key2, fields2, ...].
func parseKNNResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Fields: parseFieldPairs(fields)}
		if v, ok := entry.Fields[db.ScoreField]; ok {
			if score, err := strconv.ParseFloat(v, 64); err == nil {
				entry.Score = score
			}
			delete(entry.Fields, db.ScoreField)
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// buildFilter renders exact metadata matches as an intersection of TAG clauses.
func buildFilter(f similarity.Filter) string {
	if f.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(f.Matches()))
	for _, m := range f.Matches() {
		parts = append(parts, fmt.Sprintf("@%s:{%s}", m.Key, tagEscaper.Replace(m.Value)))
	}
	return strings.Join(parts, " ")
}

var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
	"{", "\\{", "}", "\\}", "\"", "\\\"", "'", "\\'",
	":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)",
	"-", "\\-", "+", "\\+", "=", "\\=", "~", "\\~",
	"|", "\\|", "/", "\\/", " ", "\\ ",
)
