package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// Upsert writes all records in one MULTI/EXEC transaction.
// Records with an existing id are overwritten.
func (r *Repo) Upsert(ctx context.Context, col domcol.Collection, records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if err := col.Accepts(len(rec.Vector())); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID(), err)
		}
	}

	exists, err := r.store.Exists(ctx, r.metaKey(col.Name()))
	if err != nil {
		return storeErr("check exists", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		items[i] = db.HashSetItem{
			Key:    r.recordKey(col.Name(), rec.ID()),
			Fields: recordToHash(rec),
		}
	}
	if err := r.store.HSetAtomic(ctx, items); err != nil {
		return storeErr(fmt.Sprintf("write %d records", len(items)), err)
	}
	return nil
}

// Search runs a KNN query over the collection's index.
func (r *Repo) Search(ctx context.Context, col domcol.Collection, vector []float32, k int) ([]retrieval.Hit, error) {
	if err := col.Accepts(len(vector)); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []retrieval.Hit{}, nil
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(col.Name()),
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("knn search", err)
	}

	hits := make([]retrieval.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		hits = append(hits, hitFromEntry(e))
	}
	return retrieval.Rank(hits, k), nil
}
