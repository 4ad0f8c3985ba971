package redis

import (
	"context"
	"slices"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/taarya/internal/db"
)

// hset builds HSET with fields in name order so identical points produce identical commands.
func hset(b rueidis.Builder, key string, fields map[string]string) rueidis.Completed {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	cmd := b.Hset().Key(key).FieldValue()
	for _, name := range names {
		cmd = cmd.FieldValue(name, fields[name])
	}
	return cmd.Build()
}

// HSet writes one hash, used for collection metadata.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	err := s.run(ctx, func(b rueidis.Builder) rueidis.Completed {
		return hset(b, key, fields)
	}).Error()
	return db.Wrap(db.OpHSet, key, err)
}

// HSetMulti pipelines one HSET per point. Every reply is read; the first
// failing key is reported.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	b := s.client.B()
	cmds := make(rueidis.Commands, 0, len(items))
	for _, item := range items {
		cmds = append(cmds, hset(b, item.Key, item.Fields))
	}

	var firstErr error
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil && firstErr == nil {
			firstErr = db.Wrap(db.OpHSet, items[i].Key, err)
		}
	}
	return firstErr
}

// HGetAll returns the fields of a hash. A missing key yields an empty map, not an error.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.run(ctx, func(b rueidis.Builder) rueidis.Completed {
		return b.Hgetall().Key(key).Build()
	}).AsStrMap()
	if err != nil {
		return nil, db.Wrap(db.OpHGetAll, key, err)
	}
	return fields, nil
}

// Del removes a key. Removing a missing key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	err := s.run(ctx, func(b rueidis.Builder) rueidis.Completed {
		return b.Del().Key(key).Build()
	}).Error()
	return db.Wrap(db.OpDel, key, err)
}
