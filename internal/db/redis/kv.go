package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/taarya/internal/db"
)

// Get returns the cached bytes at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.run(ctx, func(b rueidis.Builder) rueidis.Completed {
		return b.Get().Key(key).Build()
	}).AsBytes()
	switch {
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	case err != nil:
		return nil, db.Wrap(db.OpGet, key, err)
	}
	return data, nil
}

// Set stores value at key. Positive ttls are rounded down to whole seconds,
// with a floor of one second.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.run(ctx, func(b rueidis.Builder) rueidis.Completed {
		cmd := b.Set().Key(key).Value(rueidis.BinaryString(value))
		if ttl > 0 {
			return cmd.ExSeconds(max(int64(ttl/time.Second), 1)).Build()
		}
		return cmd.Build()
	}).Error()
	return db.Wrap(db.OpSet, key, err)
}
