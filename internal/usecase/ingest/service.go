package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/document"
	"github.com/kailas-cloud/vecrag/internal/domain/record"
	"github.com/kailas-cloud/vecrag/internal/domain/source"
)

// recordNamespace seeds deterministic record ids.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kailas-cloud/vecrag/records"))

// Report summarizes one ingestion call.
type Report struct {
	Collection string
	Documents  int
	Chunks     int
	Created    bool
}

// Service ingests sources into named collections.
type Service struct {
	normalizer  Normalizer
	chunker     Chunker
	embedder    domain.Embedder
	collections Collections
	chunksTotal *prometheus.CounterVec
	logger      *zap.Logger
}

// New creates an ingestion Service.
// chunksTotal is a counter vec with label "kind" (source kind), may be nil.
func New(
	normalizer Normalizer,
	chunker Chunker,
	embedder domain.Embedder,
	collections Collections,
	chunksTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Service {
	return &Service{
		normalizer:  normalizer,
		chunker:     chunker,
		embedder:    embedder,
		collections: collections,
		chunksTotal: chunksTotal,
		logger:      logger,
	}
}

// Ingest normalizes, chunks and embeds src, then appends the records to the
// collection named title in one atomic write. Nothing is stored on failure.
func (s *Service) Ingest(ctx context.Context, title string, src source.Source) (Report, error) {
	if err := domcol.ValidateName(title); err != nil {
		return Report{}, err
	}

	docs, err := s.normalizer.Normalize(ctx, title, src)
	if err != nil {
		return Report{}, err
	}
	chunks := s.chunker.Chunk(docs)
	if len(chunks) == 0 {
		return Report{}, fmt.Errorf("%s source produced no text: %w", src.Kind(), domain.ErrUnsupportedInput)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}
	emb, err := domain.EmbedAll(ctx, s.embedder, texts)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return Report{}, fmt.Errorf("vectorize chunks: %w", err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	records := make([]record.Record, len(chunks))
	for i, c := range chunks {
		r, err := record.New(recordID(title, c), emb.Embeddings[i], c)
		if err != nil {
			return Report{}, fmt.Errorf("build record %d: %w", i, err)
		}
		records[i] = r
	}

	created, err := s.collections.EnsureAndWrite(ctx, title, records)
	if err != nil {
		return Report{}, err
	}

	if s.chunksTotal != nil {
		s.chunksTotal.WithLabelValues(string(src.Kind())).Add(float64(len(chunks)))
	}
	s.logger.Info("source ingested",
		zap.String("collection", title),
		zap.String("kind", string(src.Kind())),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Bool("created", created),
	)

	return Report{
		Collection: title,
		Documents:  len(docs),
		Chunks:     len(chunks),
		Created:    created,
	}, nil
}

// recordID is stable for identical input so a retried ingestion overwrites
// its own records instead of duplicating them.
func recordID(collection string, c document.Chunk) string {
	key := collection + "\x00" + c.Source() +
		"\x00" + strconv.Itoa(c.Page()) +
		"\x00" + strconv.Itoa(c.Sequence()) +
		"\x00" + c.Text()
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}
