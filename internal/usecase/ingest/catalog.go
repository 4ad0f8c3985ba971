package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/domain"
	domcat "github.com/kailas-cloud/taarya/internal/domain/catalog"
	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
)

// optional float columns, by lowercase header name
var floatColumns = map[string]func(r *domcat.Record) **float64{
	"parallax":         func(r *domcat.Record) **float64 { return &r.Parallax },
	"pmra":             func(r *domcat.Record) **float64 { return &r.ProperMotionRA },
	"pmdec":            func(r *domcat.Record) **float64 { return &r.ProperMotionDec },
	"phot_g_mean_mag":  func(r *domcat.Record) **float64 { return &r.MagnitudeG },
	"phot_bp_mean_mag": func(r *domcat.Record) **float64 { return &r.MagnitudeBP },
	"phot_rp_mean_mag": func(r *domcat.Record) **float64 { return &r.MagnitudeRP },
	"ruwe":             func(r *domcat.Record) **float64 { return &r.QualityFlag },
}

// Catalog reads a Gaia-style CSV (header row; source_id, ra and dec required,
// case-insensitive) and upserts it in batches. Every record also becomes a
// Star node when a graph writer is configured. Rows that fail to parse or
// validate are skipped and counted.
func (s *Service) Catalog(ctx context.Context, r io.Reader) (Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Report{}, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"source_id", "ra", "dec"} {
		if _, ok := cols[req]; !ok {
			return Report{}, fmt.Errorf("%w: missing column %q", domain.ErrInvalidParameter, req)
		}
	}

	var (
		rep   Report
		batch = make([]domcat.Record, 0, s.batchSize)
		line  = 1
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return rep, fmt.Errorf("read line %d: %w", line, err)
		}
		rep.Read++

		rec, err := s.parseRecord(row, cols)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			rep.Skipped++
			s.logger.Warn("skipping catalog row", zap.Int("line", line), zap.Error(err))
			continue
		}

		batch = append(batch, rec)
		if len(batch) == s.batchSize {
			if err := s.flushCatalog(ctx, batch, &rep); err != nil {
				return rep, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.flushCatalog(ctx, batch, &rep); err != nil {
			return rep, err
		}
	}

	s.logger.Info("catalog ingested",
		zap.Int("read", rep.Read), zap.Int("written", rep.Written), zap.Int("skipped", rep.Skipped))
	return rep, nil
}

func (s *Service) parseRecord(row []string, cols map[string]int) (domcat.Record, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := domcat.Record{ID: field("source_id"), SourceCatalog: s.source}
	var err error
	if rec.RA, err = strconv.ParseFloat(field("ra"), 64); err != nil {
		return rec, fmt.Errorf("%w: ra: %v", domain.ErrInvalidParameter, err)
	}
	if rec.Dec, err = strconv.ParseFloat(field("dec"), 64); err != nil {
		return rec, fmt.Errorf("%w: dec: %v", domain.ErrInvalidParameter, err)
	}
	for name, target := range floatColumns {
		v, err := parseOptional(field(name))
		if err != nil {
			return rec, fmt.Errorf("%w: %s: %v", domain.ErrInvalidParameter, name, err)
		}
		*target(&rec) = v
	}
	return rec, nil
}

// parseOptional treats empty, null and NaN cells as absent.
func parseOptional(s string) (*float64, error) {
	switch strings.ToLower(s) {
	case "", "null", "none", "nan", "--":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	return &v, nil
}

func (s *Service) flushCatalog(ctx context.Context, batch []domcat.Record, rep *Report) error {
	n, err := s.catalog.Upsert(ctx, batch)
	if err != nil {
		return fmt.Errorf("upsert catalog batch: %w", err)
	}
	rep.Written += n

	if s.graph != nil {
		for i := range batch {
			star := domgraph.Star{
				SourceID:   batch[i].ID,
				RA:         batch[i].RA,
				Dec:        batch[i].Dec,
				MagnitudeG: batch[i].MagnitudeG,
				Catalog:    batch[i].SourceCatalog,
			}
			if err := s.graph.UpsertStarNode(ctx, star); err != nil {
				return fmt.Errorf("upsert star node %s: %w", star.SourceID, err)
			}
		}
	}
	s.progress(len(batch))
	return nil
}
