package chat

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// Retriever finds the chunks relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, name, query string, k int) ([]retrieval.Hit, error)
}
