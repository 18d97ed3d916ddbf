package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecrag/internal/db"
)

// delBatch bounds keys per DEL command.
const delBatch = 500

// HSet sets hash fields.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpHSet, Key: key, Err: err}
	}
	return nil
}

// HSetAtomic stores all hashes inside MULTI/EXEC on a dedicated connection,
// so readers never observe a partial batch.
func (s *Store) HSetAtomic(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	return s.client.Dedicated(func(c rueidis.DedicatedClient) error {
		cmds := make(rueidis.Commands, 0, len(items)+2)
		cmds = append(cmds, c.B().Multi().Build())
		for _, item := range items {
			cmd := c.B().Hset().Key(item.Key).FieldValue()
			for k, v := range item.Fields {
				cmd = cmd.FieldValue(k, v)
			}
			cmds = append(cmds, cmd.Build())
		}
		cmds = append(cmds, c.B().Exec().Build())

		results := c.DoMulti(ctx, cmds...)
		for i, res := range results[:len(results)-1] {
			if err := res.Error(); err != nil {
				if i == 0 {
					return &db.Error{Op: db.OpExec, Err: fmt.Errorf("multi: %w", err)}
				}
				return &db.Error{Op: db.OpHSet, Key: items[i-1].Key, Err: err}
			}
		}

		replies, err := results[len(results)-1].ToArray()
		if err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
		for i, r := range replies {
			if err := r.Error(); err != nil {
				return &db.Error{Op: db.OpExec, Key: items[i].Key, Err: err}
			}
		}
		return nil
	})
}

// HGetAll returns all fields of a hash.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	return m, nil
}

// HGetAllMulti fetches all fields for multiple hashes in a single DoMulti round-trip.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make(rueidis.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Key: keys[i], Err: err}
		}
		out[i] = m
	}
	return out, nil
}

// Del deletes keys in batches of delBatch. Missing keys are ignored.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += delBatch {
		batch := keys[start:min(start+delBatch, len(keys))]
		cmd := s.b().Del().Key(batch...).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			return &db.Error{Op: db.OpDel, Err: err}
		}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	cmd := s.b().Exists().Key(key).Build()
	count, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Key: key, Err: err}
	}
	return count > 0, nil
}

// Scan iterates keys matching a pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(100).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Key: pattern, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
