package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domgraph "github.com/kailas-cloud/taarya/internal/domain/graph"
	domsim "github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// maxLineBytes bounds one JSONL line (full-text papers can be large).
const maxLineBytes = 16 << 20

// paperNamespace scopes the name-based point ids of papers.
var paperNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://arxiv.org/abs/"))

// PaperLine is one JSONL entry.
type PaperLine struct {
	ArxivID       string   `json:"arxiv_id"`
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Authors       string   `json:"authors"`
	Categories    string   `json:"categories"`
	PublishedDate string   `json:"published_date"`
	Text          string   `json:"text"`
	StarIDs       []string `json:"star_ids"`
}

// PointID is the stable similarity point id of a paper.
func PointID(arxivID string) string {
	return uuid.NewSHA1(paperNamespace, []byte(arxivID)).String()
}

func (p *PaperLine) document() domsim.Document {
	meta := map[string]string{
		domsim.MetaExternalID: p.ArxivID,
		domsim.MetaTitle:      p.Title,
	}
	for k, v := range map[string]string{
		domsim.MetaAbstract: p.Abstract,
		"authors":           p.Authors,
		"categories":        p.Categories,
		"published_date":    p.PublishedDate,
	} {
		if v != "" {
			meta[k] = v
		}
	}
	return domsim.Document{ID: PointID(p.ArxivID), Text: p.Text, Metadata: meta}
}

// Papers reads JSON lines, indexes them in the similarity collection (empty
// means the default collection) and, with a graph writer, merges a Paper node
// per line plus MENTIONED_IN edges from its star_ids. Re-running a file is idempotent.
func (s *Service) Papers(ctx context.Context, r io.Reader, collection string) (Report, error) {
	if collection == "" {
		collection = s.docs.DefaultCollection()
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	var (
		rep   Report
		batch = make([]PaperLine, 0, s.batchSize)
		line  int
	)
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		rep.Read++

		var p PaperLine
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			rep.Skipped++
			s.logger.Warn("skipping paper line", zap.Int("line", line), zap.Error(err))
			continue
		}
		p.ArxivID = strings.TrimSpace(p.ArxivID)
		if p.ArxivID == "" || (p.Title == "" && p.Abstract == "" && p.Text == "") {
			rep.Skipped++
			s.logger.Warn("skipping paper line without id or text", zap.Int("line", line))
			continue
		}

		batch = append(batch, p)
		if len(batch) == s.batchSize {
			if err := s.flushPapers(ctx, collection, batch, &rep); err != nil {
				return rep, err
			}
			batch = batch[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return rep, fmt.Errorf("read line %d: %w", line+1, err)
	}
	if len(batch) > 0 {
		if err := s.flushPapers(ctx, collection, batch, &rep); err != nil {
			return rep, err
		}
	}

	s.logger.Info("papers ingested",
		zap.String("collection", collection),
		zap.Int("read", rep.Read), zap.Int("written", rep.Written),
		zap.Int("skipped", rep.Skipped), zap.Int("linked", rep.Linked))
	return rep, nil
}

func (s *Service) flushPapers(ctx context.Context, collection string, batch []PaperLine, rep *Report) error {
	docs := make([]domsim.Document, len(batch))
	for i := range batch {
		docs[i] = batch[i].document()
	}
	n, err := s.docs.IndexDocuments(ctx, collection, docs)
	rep.Written += n
	if err != nil {
		return fmt.Errorf("index papers: %w", err)
	}

	if s.graph != nil {
		for i := range batch {
			p := &batch[i]
			node := domgraph.Paper{
				ArxivID:       p.ArxivID,
				Title:         p.Title,
				Abstract:      p.Abstract,
				Categories:    p.Categories,
				PublishedDate: p.PublishedDate,
			}
			if err := s.graph.UpsertDocumentNode(ctx, node); err != nil {
				return fmt.Errorf("upsert paper node %s: %w", p.ArxivID, err)
			}
			for _, sid := range p.StarIDs {
				if sid = strings.TrimSpace(sid); sid == "" {
					continue
				}
				if err := s.graph.LinkStarToDocument(ctx, sid, p.ArxivID); err != nil {
					return fmt.Errorf("link %s to %s: %w", sid, p.ArxivID, err)
				}
				rep.Linked++
			}
		}
	}
	s.progress(len(batch))
	return nil
}
