package db

import (
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// Reserved hash fields of an indexed point.
const (
	VectorField = "__vector"
	VectorAlias = "vector"
	ScoreField  = "__vector_score"
)

// KNNQuery is the input for a vector nearest-neighbor search.
type KNNQuery struct {
	IndexName    string
	Filter       similarity.Filter
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one hit. Score is the raw distance reported by the engine.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// EncodeVector packs v as the little-endian FLOAT32 blob stored in the vector
// field and passed as the KNN query parameter.
func EncodeVector(v []float32) string {
	buf := make([]byte, 0, 4*len(v))
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return string(buf)
}
