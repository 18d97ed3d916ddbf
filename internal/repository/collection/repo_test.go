package collection

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/vecrag/internal/db"
	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
)

var errConn = errors.New("connection lost")

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)
	col := testCollection(t)

	var scanned string
	var hsetKey string
	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		scanned = pattern
		return nil, nil
	}
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		if def.Name != "vecrag:idx:animals" {
			t.Errorf("unexpected index name: %s", def.Name)
		}
		if !slices.Equal(def.Prefixes, []string{"vecrag:rec:{animals}:"}) {
			t.Errorf("unexpected prefixes: %v", def.Prefixes)
		}
		vec := def.Fields[len(def.Fields)-1]
		if vec.Vector == nil || vec.Vector.Dim != 3 || vec.Vector.Algorithm != db.VectorHNSW || vec.Alias != "vector" {
			t.Errorf("unexpected vector field: %+v", vec)
		}
		return nil
	}
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		hsetKey = key
		if fields["vector_dim"] != "3" || fields["created_at"] != "1700000000000" {
			t.Errorf("unexpected metadata: %v", fields)
		}
		return nil
	}

	if err := repo.Create(context.Background(), col); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hsetKey != "vecrag:collection:animals" {
		t.Errorf("unexpected key: %s", hsetKey)
	}
	if scanned != "vecrag:rec:{animals}:*" {
		t.Errorf("stale records scan pattern = %q", scanned)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		t.Fatal("index must not be created")
		return nil
	}

	err := repo.Create(context.Background(), testCollection(t))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_IndexExists(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error { return db.ErrIndexExists }

	err := repo.Create(context.Background(), testCollection(t))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_PurgesLeftoverRecords(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"vecrag:rec:{animals}:a"}, nil
	}
	var deleted []string
	ms.delFn = func(_ context.Context, keys ...string) error {
		deleted = append(deleted, keys...)
		return nil
	}

	if err := repo.Create(context.Background(), testCollection(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(deleted, []string{"vecrag:rec:{animals}:a"}) {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestCreate_HSetError_DropsIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	var dropped string
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error { return errConn }
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = name
		return nil
	}

	err := repo.Create(context.Background(), testCollection(t))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if dropped != "vecrag:idx:animals" {
		t.Errorf("expected rollback of index, dropped %q", dropped)
	}
}

func TestCreate_ExistsError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, errConn }

	err := repo.Create(context.Background(), testCollection(t))
	if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, errConn) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestCreate_FlatIndex(t *testing.T) {
	repo, ms := newTestRepo(t)
	repo.WithIndex(IndexConfig{Algorithm: AlgorithmFlat})

	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		if algo := def.Fields[len(def.Fields)-1].Vector.Algorithm; algo != db.VectorFlat {
			t.Errorf("expected FLAT, got %s", algo)
		}
		return nil
	}
	if err := repo.Create(context.Background(), testCollection(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIndexName_HashesNonIdentifiers(t *testing.T) {
	repo, _ := newTestRepo(t)

	if got := repo.indexName("my_docs-1"); got != "vecrag:idx:my_docs-1" {
		t.Errorf("indexName = %q", got)
	}
	a := repo.indexName("мои документы")
	b := repo.indexName("мои документы.")
	if !strings.HasPrefix(a, "vecrag:idx:h:") || a == b {
		t.Errorf("expected distinct hashed names, got %q and %q", a, b)
	}
	if !db.IsValidIdentifier(strings.TrimPrefix(a, "vecrag:")) {
		t.Errorf("hashed index name is not an identifier: %q", a)
	}
}

// --- Get / List ---

func TestGet_HappyPath(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != "vecrag:collection:animals" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{"name": "animals", "vector_dim": "3", "created_at": "1700000000000"}, nil
	}

	col, err := repo.Get(context.Background(), "animals")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col.Name() != "animals" || col.VectorDim() != 3 || col.CreatedAt() != 1700000000000 {
		t.Errorf("unexpected collection: %+v", col)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_CorruptMetadata(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{"name": "animals", "vector_dim": "x", "created_at": "1"}, nil
	}

	if _, err := repo.Get(context.Background(), "animals"); err == nil {
		t.Fatal("expected error for corrupt vector_dim")
	}
}

func TestList_SkipsVanished(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "vecrag:collection:*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return []string{"vecrag:collection:a", "vecrag:collection:b"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		return []map[string]string{
			{"name": "a", "vector_dim": "3", "created_at": "2"},
			{},
		}, nil
	}

	cols, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 1 || cols[0].Name() != "a" {
		t.Errorf("unexpected collections: %+v", cols)
	}
}

func TestList_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	cols, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols == nil || len(cols) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", cols)
	}
}

// --- Delete ---

func TestDelete_RemovesEverything(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"vecrag:rec:{animals}:1", "vecrag:rec:{animals}:2"}, nil
	}
	var deleted []string
	ms.delFn = func(_ context.Context, keys ...string) error {
		deleted = append(deleted, keys...)
		return nil
	}
	var dropped string
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = name
		return nil
	}

	if err := repo.Delete(context.Background(), "animals"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"vecrag:collection:animals", "vecrag:rec:{animals}:1", "vecrag:rec:{animals}:2"}
	if !slices.Equal(deleted, want) {
		t.Errorf("deleted = %v, want %v", deleted, want)
	}
	if dropped != "vecrag:idx:animals" {
		t.Errorf("dropped = %q", dropped)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_MissingIndexTolerated(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.dropIndexFn = func(_ context.Context, _ string) error { return db.ErrIndexNotFound }

	if err := repo.Delete(context.Background(), "animals"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Upsert ---

func TestUpsert_SingleTransaction(t *testing.T) {
	repo, ms := newTestRepo(t)
	col := testCollection(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	var calls int
	ms.hsetAtomicFn = func(_ context.Context, items []db.HashSetItem) error {
		calls++
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if items[0].Key != "vecrag:rec:{animals}:r1" {
			t.Errorf("unexpected key: %s", items[0].Key)
		}
		f := items[0].Fields
		if f["content"] != "cats purr" || f["source"] != "zoo.txt" || f["seq"] != "0" {
			t.Errorf("unexpected fields: %v", f)
		}
		if len(f["embedding"]) != 12 {
			t.Errorf("expected 12-byte float32 blob, got %d", len(f["embedding"]))
		}
		return nil
	}

	err := repo.Upsert(context.Background(), col, []record.Record{
		testRecord(t, "r1", "cats purr", 0, 1, 0, 0),
		testRecord(t, "r2", "dogs bark", 1, 0, 1, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected one atomic write, got %d", calls)
	}
}

func TestUpsert_DimMismatchWritesNothing(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.hsetAtomicFn = func(_ context.Context, _ []db.HashSetItem) error {
		t.Fatal("nothing must be written")
		return nil
	}

	err := repo.Upsert(context.Background(), testCollection(t), []record.Record{
		testRecord(t, "r1", "ok", 0, 1, 0, 0),
		testRecord(t, "r2", "bad", 1, 1, 0),
	})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestUpsert_CollectionGone(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Upsert(context.Background(), testCollection(t), []record.Record{
		testRecord(t, "r1", "ok", 0, 1, 0, 0),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsert_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.hsetAtomicFn = func(_ context.Context, _ []db.HashSetItem) error {
		return &db.Error{Op: db.OpExec, Err: errConn}
	}

	err := repo.Upsert(context.Background(), testCollection(t), []record.Record{
		testRecord(t, "r1", "ok", 0, 1, 0, 0),
	})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

// --- Search ---

func TestSearch_HydratesAndRanks(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "vecrag:idx:animals" || q.K != 2 {
			t.Errorf("unexpected query: %+v", q)
		}
		if !slices.Contains(q.ReturnFields, "content") || slices.Contains(q.ReturnFields, "embedding") {
			t.Errorf("unexpected return fields: %v", q.ReturnFields)
		}
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "k2", Score: 0.5, Fields: map[string]string{"content": "dogs bark", "source": "zoo.txt", "seq": "1"}},
			{Key: "k1", Score: 0.9, Fields: map[string]string{
				"content": "[00:00:01]", "source": "lecture", "seq": "0",
				"has_time": "1", "start_ms": "1000", "end_ms": "4000",
			}},
		}}, nil
	}

	hits, err := repo.Search(context.Background(), testCollection(t), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 || hits[0].Score != 0.9 || hits[0].Chunk.Source() != "lecture" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	tr, ok := hits[0].Chunk.TimeRange()
	if !ok || tr.Start.Milliseconds() != 1000 || tr.End.Milliseconds() != 4000 {
		t.Errorf("unexpected time range: %v %v", tr, ok)
	}
	if _, ok := hits[1].Chunk.TimeRange(); ok {
		t.Error("text chunk must not carry a time range")
	}
}

func TestSearch_IndexGone(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, db.ErrIndexNotFound
	}

	_, err := repo.Search(context.Background(), testCollection(t), []float32{1, 0, 0}, 3)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_DimMismatch(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Search(context.Background(), testCollection(t), []float32{1, 0}, 3)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestSearch_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errConn}
	}

	_, err := repo.Search(context.Background(), testCollection(t), []float32{1, 0, 0}, 3)
	if !errors.Is(err, domain.ErrStoreUnavailable) || !errors.Is(err, errConn) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
