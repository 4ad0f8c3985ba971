// Package ingest loads catalog and paper files into the three backends.
package ingest

import (
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of records per catalog upsert.
const DefaultBatchSize = 1000

// Report summarizes one ingest run.
type Report struct {
	Read    int `json:"read"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Linked  int `json:"linked,omitempty"`
}

// Service feeds parsed files to the backends. A nil graph writer skips graph updates.
type Service struct {
	catalog   CatalogWriter
	docs      DocumentIndexer
	graph     GraphWriter
	batchSize int
	source    string
	progress  func(n int)
	logger    *zap.Logger
}

// New creates an ingest service.
func New(c CatalogWriter, d DocumentIndexer, g GraphWriter) *Service {
	return &Service{
		catalog:   c,
		docs:      d,
		graph:     g,
		batchSize: DefaultBatchSize,
		source:    "GAIA",
		progress:  func(int) {},
		logger:    zap.NewNop(),
	}
}

// WithBatchSize sets how many rows go into one write.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithSourceCatalog sets the source tag stored on catalog records.
func (s *Service) WithSourceCatalog(tag string) *Service {
	if tag != "" {
		s.source = tag
	}
	return s
}

// WithProgress registers a callback receiving the number of rows handled after each batch.
func (s *Service) WithProgress(fn func(n int)) *Service {
	if fn != nil {
		s.progress = fn
	}
	return s
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}
