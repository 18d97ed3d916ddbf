package ingest

import (
	"context"

	"github.com/kailas-cloud/vecrag/internal/domain/document"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
	"github.com/kailas-cloud/vecrag/internal/domain/source"
)

// Normalizer turns a raw source into documents.
type Normalizer interface {
	Normalize(ctx context.Context, title string, src source.Source) ([]document.Document, error)
}

// Chunker splits documents into overlapping chunks.
type Chunker interface {
	Chunk(docs []document.Document) []document.Chunk
}

// Collections writes records, creating the collection on first use.
type Collections interface {
	EnsureAndWrite(ctx context.Context, name string, records []record.Record) (bool, error)
}
