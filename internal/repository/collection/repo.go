// Package collection stores collections and their records in Redis or Valkey
// hashes indexed by a search module (FT.* commands).
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
)

// store is the consumer interface for collections and records (ISP).
//
//nolint:interfacebloat // collection repo needs hash, index and KNN operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetAtomic(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// DefaultKeyPrefix namespaces every key the repository writes.
const DefaultKeyPrefix = "vecrag:"

// Index algorithms.
const (
	AlgorithmHNSW = "hnsw"
	AlgorithmFlat = "flat"
)

// IndexConfig vector index parameters.
type IndexConfig struct {
	Algorithm   string
	M           int
	EFConstruct int
}

// Repo implements usecase/collection.Repository.
type Repo struct {
	store  store
	prefix string
	index  IndexConfig
}

// New creates a collection repository. An empty prefix selects DefaultKeyPrefix.
func New(s store, keyPrefix string) *Repo {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Repo{
		store:  s,
		prefix: keyPrefix,
		index:  IndexConfig{Algorithm: AlgorithmHNSW, M: 16, EFConstruct: 200},
	}
}

// WithIndex configures the vector index. Zero fields keep their defaults.
func (r *Repo) WithIndex(cfg IndexConfig) *Repo {
	if cfg.Algorithm != "" {
		r.index.Algorithm = cfg.Algorithm
	}
	if cfg.M > 0 {
		r.index.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.index.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Ping checks the store (health probe).
func (r *Repo) Ping(ctx context.Context) error {
	if p, ok := r.store.(db.Pinger); ok {
		return storeErr("ping", p.Ping(ctx))
	}
	return nil
}

// Create stores a collection: FT.CREATE index then HSET metadata.
// Metadata is the commit point; a failed HSET drops the fresh index.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	name := col.Name()
	meta := r.metaKey(name)

	exists, err := r.store.Exists(ctx, meta)
	if err != nil {
		return storeErr("check exists", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	// records left behind by an interrupted delete would join the new index
	if err := r.purgeRecords(ctx, name); err != nil {
		return err
	}

	def, err := r.buildIndex(name, col.VectorDim())
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return domain.ErrAlreadyExists
		}
		return storeErr("create index "+def.Name, err)
	}

	if err := r.store.HSet(ctx, meta, collectionToHash(col)); err != nil {
		cleanupErr := r.store.DropIndex(ctx, def.Name)
		return errors.Join(storeErr("hset collection "+name, err), cleanupErr)
	}
	return nil
}

// Get retrieves a collection by name.
func (r *Repo) Get(ctx context.Context, name string) (domcol.Collection, error) {
	m, err := r.store.HGetAll(ctx, r.metaKey(name))
	if err != nil {
		return domcol.Collection{}, storeErr("hgetall collection "+name, err)
	}
	if len(m) == 0 {
		return domcol.Collection{}, domain.ErrNotFound
	}
	return collectionFromHash(m)
}

// List returns all collections in no particular order.
func (r *Repo) List(ctx context.Context) ([]domcol.Collection, error) {
	keys, err := r.store.Scan(ctx, r.metaKey("*"))
	if err != nil {
		return nil, storeErr("scan collections", err)
	}
	if len(keys) == 0 {
		return []domcol.Collection{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, storeErr("hgetall multi collections", err)
	}

	collections := make([]domcol.Collection, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		col, err := collectionFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", keys[i], err)
		}
		collections = append(collections, col)
	}
	return collections, nil
}

// Delete removes the metadata, the index and every record of the collection.
// Metadata goes first so a partial failure never leaves a visible half-deleted collection.
func (r *Repo) Delete(ctx context.Context, name string) error {
	meta := r.metaKey(name)

	exists, err := r.store.Exists(ctx, meta)
	if err != nil {
		return storeErr("check exists", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, meta); err != nil {
		return storeErr("del collection "+name, err)
	}
	if err := r.store.DropIndex(ctx, r.indexName(name)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return storeErr("drop index", err)
	}
	return r.purgeRecords(ctx, name)
}

func (r *Repo) purgeRecords(ctx context.Context, name string) error {
	keys, err := r.store.Scan(ctx, r.recordPrefix(name)+"*")
	if err != nil {
		return storeErr("scan records", err)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return storeErr("del records", err)
	}
	return nil
}

// storeErr marks infrastructure failures as domain.ErrStoreUnavailable, keeping the cause.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

// Key layout:
//   <prefix>collection:<name>   metadata hash
//   <prefix>rec:{<name>}:<id>   record hashes
//   <prefix>idx:<slug>          FT index over the record prefix
// Braces keep one collection's record prefix from matching another's.

func (r *Repo) metaKey(name string) string {
	return r.prefix + "collection:" + name
}

func (r *Repo) recordPrefix(name string) string {
	return r.prefix + "rec:{" + name + "}:"
}

func (r *Repo) recordKey(name, id string) string {
	return r.recordPrefix(name) + id
}

func (r *Repo) indexName(name string) string {
	return r.prefix + "idx:" + indexSlug(name)
}
