package redis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/taarya/internal/db"
)

func papersIndex(t *testing.T) *db.IndexDefinition {
	t.Helper()
	def, err := db.NewIndex("taarya:papers:idx").
		Prefix("taarya:papers:").
		Tag("categories", "arxiv_id").
		VectorHNSW(384, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return def
}

func TestCreateIndex(t *testing.T) {
	tests := []struct {
		name    string
		reply   rueidis.RedisResult
		wantErr func(error) bool
	}{
		{"created", mock.Result(mock.RedisString("OK")), func(err error) bool { return err == nil }},
		{
			"name taken", mock.Result(mock.RedisError("Index already exists")),
			func(err error) bool { return errors.Is(err, db.ErrIndexExists) },
		},
		{"transport failure", mock.ErrorResult(context.DeadlineExceeded), isDBError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), commandIs("FT.CREATE", "taarya:papers:idx")).Return(tc.reply)

			if err := s.CreateIndex(context.Background(), papersIndex(t)); !tc.wantErr(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuildCreateArgs_Validation(t *testing.T) {
	tag := []db.IndexField{{Name: "f", Type: db.IndexFieldTag}}
	for name, def := range map[string]*db.IndexDefinition{
		"empty name":   {Fields: tag},
		"no fields":    {Name: "idx"},
		"unknown type": {Name: "idx", Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldType(99)}}},
	} {
		if _, err := buildCreateArgs(def); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestBuildCreateArgs_Layout(t *testing.T) {
	args, err := buildCreateArgs(&db.IndexDefinition{
		Name:     "papers:idx",
		Prefixes: []string{"papers:"},
		Fields: []db.IndexField{
			{Name: "categories", Type: db.IndexFieldTag},
			{Name: "year", Type: db.IndexFieldNumeric},
			{
				Name: db.VectorField, Alias: db.VectorAlias, Type: db.IndexFieldVector,
				VectorAlgo: db.VectorHNSW, VectorDim: 384, VectorDistance: db.DistanceCosine,
				VectorM: 16, VectorEFConstruct: 200,
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "papers:idx ON HASH PREFIX 1 papers: SCHEMA categories TAG year NUMERIC " +
		"__vector AS vector VECTOR HNSW 10 TYPE FLOAT32 DIM 384 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("unexpected args:\n got  %s\n want %s", got, want)
	}
}

func TestVectorFieldArgs_FlatDefaults(t *testing.T) {
	got := strings.Join(vectorFieldArgs(&db.IndexField{Name: "v", Type: db.IndexFieldVector, VectorDim: 3}), " ")
	if got != "VECTOR FLAT 6 TYPE FLOAT32 DIM 3 DISTANCE_METRIC COSINE" {
		t.Errorf("unexpected args: %s", got)
	}
}
