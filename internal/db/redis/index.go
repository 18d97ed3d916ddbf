package redis

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/db"
)

// Error fragments for a missing index (Redis says "Unknown index name", Valkey "no such index").
var missingIndexReplies = []string{"unknown index name", "no such index"}

func isMissingIndex(err error) bool {
	for _, frag := range missingIndexReplies {
		if serverErrorContains(err, frag) {
			return true
		}
	}
	return false
}

// CreateIndex runs FT.CREATE for def. An existing index yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := def.Args()
	if err != nil {
		return err
	}

	if err := s.do(ctx, s.b().Arbitrary(db.OpCreateIndex).Args(args...).Build()).Error(); err != nil {
		if serverErrorContains(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Key: def.Name, Err: err}
	}
	return nil
}

// DropIndex runs FT.DROPINDEX, keeping the indexed hashes.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	if err := s.do(ctx, s.b().Arbitrary(db.OpDropIndex).Args(name).Build()).Error(); err != nil {
		if isMissingIndex(err) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Key: name, Err: err}
	}
	return nil
}

// IndexExists probes with FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	if err := s.do(ctx, s.b().Arbitrary(db.OpIndexInfo).Args(name).Build()).Error(); err != nil {
		if isMissingIndex(err) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Key: name, Err: err}
	}
	return true, nil
}
