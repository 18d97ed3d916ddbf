package retrieve

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/usecase/collection"
)

// Collections opens named collections.
type Collections interface {
	Open(ctx context.Context, name string) (*collection.Handle, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
