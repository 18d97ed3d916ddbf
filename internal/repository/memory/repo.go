// Package memory is an in-process vector store using brute-force cosine similarity.
// Contents are lost on restart; meant for tests and single-node development.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// Repo implements the collection repository in memory.
type Repo struct {
	mu   sync.RWMutex
	cols map[string]*entry
}

type entry struct {
	col     domcol.Collection
	index   map[string]int
	records []record.Record
}

// New creates an empty store.
func New() *Repo {
	return &Repo{cols: make(map[string]*entry)}
}

// Ping always succeeds.
func (r *Repo) Ping(_ context.Context) error { return nil }

// Create registers an empty collection.
func (r *Repo) Create(_ context.Context, col domcol.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cols[col.Name()]; ok {
		return domain.ErrAlreadyExists
	}
	r.cols[col.Name()] = &entry{col: col, index: make(map[string]int)}
	return nil
}

// Get returns the collection descriptor.
func (r *Repo) Get(_ context.Context, name string) (domcol.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cols[name]
	if !ok {
		return domcol.Collection{}, domain.ErrNotFound
	}
	return e.col, nil
}

// List returns all collection descriptors.
func (r *Repo) List(_ context.Context) ([]domcol.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domcol.Collection, 0, len(r.cols))
	for _, e := range r.cols {
		out = append(out, e.col)
	}
	return out, nil
}

// Delete drops the collection and its records.
func (r *Repo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cols[name]; !ok {
		return domain.ErrNotFound
	}
	delete(r.cols, name)
	return nil
}

// Upsert validates every record before applying any. Records with a known id are replaced.
func (r *Repo) Upsert(_ context.Context, col domcol.Collection, records []record.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cols[col.Name()]
	if !ok {
		return domain.ErrNotFound
	}
	for _, rec := range records {
		if err := e.col.Accepts(len(rec.Vector())); err != nil {
			return fmt.Errorf("record %s: %w", rec.ID(), err)
		}
	}
	for _, rec := range records {
		if i, ok := e.index[rec.ID()]; ok {
			e.records[i] = rec
			continue
		}
		e.index[rec.ID()] = len(e.records)
		e.records = append(e.records, rec)
	}
	return nil
}

// Search scores every record by cosine similarity.
func (r *Repo) Search(_ context.Context, col domcol.Collection, vector []float32, k int) ([]retrieval.Hit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cols[col.Name()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	hits := make([]retrieval.Hit, 0, len(e.records))
	for _, rec := range e.records {
		hits = append(hits, retrieval.Hit{Chunk: rec.Chunk(), Score: cosine(rec.Vector(), vector)})
	}
	return retrieval.Rank(hits, k), nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
