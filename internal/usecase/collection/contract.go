package collection

import (
	"context"

	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// Repository defines the vector store contract for collections and their records.
type Repository interface {
	// Create fails with domain.ErrAlreadyExists when the name is taken.
	Create(ctx context.Context, col domcol.Collection) error
	// Get fails with domain.ErrNotFound when absent.
	Get(ctx context.Context, name string) (domcol.Collection, error)
	List(ctx context.Context) ([]domcol.Collection, error)
	// Delete removes the collection and all its records; domain.ErrNotFound when absent.
	Delete(ctx context.Context, name string) error
	// Upsert stores all records or none of them.
	Upsert(ctx context.Context, col domcol.Collection, records []record.Record) error
	// Search returns up to k nearest records; domain.ErrNotFound when the collection is gone.
	Search(ctx context.Context, col domcol.Collection, vector []float32, k int) ([]retrieval.Hit, error)
}
