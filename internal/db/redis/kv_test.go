package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/taarya/internal/db"
)

func TestGet(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "emb:hit")).Return(mock.Result(mock.RedisBlobString("\x00\x00\x80\x3f")))
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "emb:miss")).Return(mock.Result(mock.RedisNil()))

	data, err := s.Get(context.Background(), "emb:hit")
	if err != nil || len(data) != 4 {
		t.Fatalf("unexpected result: %x, %v", data, err)
	}

	if _, err := s.Get(context.Background(), "emb:miss"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want []string
	}{
		{"no expiry", 0, []string{"SET", "emb:1", "vec"}},
		{"whole seconds", 90 * time.Second, []string{"SET", "emb:1", "vec", "EX", "90"}},
		{"sub-second floors to one", 200 * time.Millisecond, []string{"SET", "emb:1", "vec", "EX", "1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, c := newMockStore(t)
			c.EXPECT().Do(gomock.Any(), mock.Match(tc.want...)).Return(mock.Result(mock.RedisString("OK")))

			if err := s.Set(context.Background(), "emb:1", []byte("vec"), tc.ttl); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSet_ErrorNamesKey(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), commandIs("SET")).Return(mock.ErrorResult(context.DeadlineExceeded))

	err := s.Set(context.Background(), "emb:1", []byte("vec"), 0)
	if !isDBError(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected a db.Error wrapping the cause, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "SET emb:1: ") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
