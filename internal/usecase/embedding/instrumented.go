// Package embedding holds the provider-agnostic layer around domain.Embedder:
// per-call deadlines, request splitting and call logging.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

const (
	// DefaultMaxAPIBatchSize: сколько текстов уходит в один запрос к провайдеру.
	DefaultMaxAPIBatchSize = 256
	// DefaultTimeout bounds one provider call.
	DefaultTimeout = 30 * time.Second
)

// Options tune the instrumented embedder. Zero values select the defaults.
type Options struct {
	MaxBatchSize int
	Timeout      time.Duration
}

// InstrumentedEmbedder bounds and logs calls to an inner embedder.
// Transport metrics live in transport/openai; this layer only guarantees
// that any provider failure surfaces as domain.ErrEmbeddingUnavailable.
type InstrumentedEmbedder struct {
	inner domain.Embedder
	opts  Options
	log   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner; provider and model are attached to every log line.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	opts Options, logger *zap.Logger,
) *InstrumentedEmbedder {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = DefaultMaxAPIBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner: inner,
		opts:  opts,
		log:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed runs a single embedding under the call timeout.
func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	t0 := time.Now()
	res, err := e.callOne(ctx, text)
	took := time.Since(t0)
	if err != nil {
		e.log.Error("embedding call failed", zap.Duration("duration", took), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", asUnavailable(err))
	}
	e.log.Debug("embedding call done",
		zap.Duration("duration", took),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// BatchEmbed splits texts into provider-sized requests, each with its own
// timeout, and concatenates the vectors in input order.
func (e *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	t0 := time.Now()
	acc := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for lo := 0; lo < len(texts); {
		hi := min(lo+e.opts.MaxBatchSize, len(texts))
		part, err := e.callMany(ctx, texts[lo:hi])
		if err != nil {
			e.log.Error("embedding batch failed",
				zap.Int("offset", lo),
				zap.Int("size", hi-lo),
				zap.Int("batch_size", len(texts)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", asUnavailable(err))
		}
		acc.Embeddings = append(acc.Embeddings, part.Embeddings...)
		acc.PromptTokens += part.PromptTokens
		acc.TotalTokens += part.TotalTokens
		lo = hi
	}
	e.log.Debug("embedding batch done",
		zap.Duration("duration", time.Since(t0)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", acc.TotalTokens),
	)
	return acc, nil
}

// HealthCheck forwards to the inner embedder if it can report health.
func (e *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := e.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}

func (e *InstrumentedEmbedder) callOne(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	return e.inner.Embed(ctx, text)
}

func (e *InstrumentedEmbedder) callMany(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	return domain.EmbedAll(ctx, e.inner, texts)
}

// asUnavailable tags err with ErrEmbeddingUnavailable unless it already carries it.
func asUnavailable(err error) error {
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
}
