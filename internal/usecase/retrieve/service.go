package retrieve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
)

// DefaultMaxK bounds the number of chunks a caller may request.
const DefaultMaxK = 50

// Service finds the chunks nearest to a query within one collection.
type Service struct {
	colls    Collections
	embed    Embedder
	maxK     int
	defaultK int
	logger   *zap.Logger
}

// New creates a retrieval service. maxK <= 0 selects DefaultMaxK.
func New(colls Collections, embed Embedder, maxK int, logger *zap.Logger) *Service {
	if maxK <= 0 {
		maxK = DefaultMaxK
	}
	return &Service{colls: colls, embed: embed, maxK: maxK, defaultK: retrieval.DefaultK, logger: logger}
}

// WithDefaultK sets the k used when the caller passes 0. Values outside
// 1..maxK are ignored.
func (s *Service) WithDefaultK(k int) *Service {
	if k > 0 && k <= s.maxK {
		s.defaultK = k
	}
	return s
}

// Retrieve returns up to k chunks by descending similarity, ties broken by
// lowest sequence. k == 0 selects the default k.
func (s *Service) Retrieve(ctx context.Context, name, query string, k int) ([]retrieval.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.NewValidationError("message", "is required")
	}
	if k == 0 {
		k = s.defaultK
	}
	if k < 0 || k > s.maxK {
		return nil, domain.NewValidationError("k", fmt.Sprintf("must be between 1 and %d", s.maxK))
	}

	h, err := s.colls.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	hits, err := h.Search(ctx, emb.Embedding, k)
	if err != nil {
		return nil, err
	}
	hits = retrieval.Rank(hits, k)

	s.logger.Debug("retrieved",
		zap.String("collection", name),
		zap.Int("k", k),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}
