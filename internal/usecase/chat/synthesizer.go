package chat

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/retrieval"
	"github.com/kailas-cloud/vecrag/internal/domain/stream"
)

// DefaultTimeout bounds a single generation from request to last token.
const DefaultTimeout = 60 * time.Second

const (
	reasonTimeout = "generation timed out"
	reasonFailed  = "generation failed"
)

// Synthesizer turns retrieved context into a streamed, grounded answer.
type Synthesizer struct {
	gen     domain.Generator
	timeout time.Duration
	logger  *zap.Logger
}

// NewSynthesizer creates a Synthesizer. timeout <= 0 selects DefaultTimeout.
func NewSynthesizer(gen domain.Generator, timeout time.Duration, logger *zap.Logger) *Synthesizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Synthesizer{gen: gen, timeout: timeout, logger: logger}
}

// Synthesize streams answer fragments followed by exactly one terminal event.
// The channel is closed after the terminal event, or without one when ctx is
// cancelled by the caller. Empty hits yield the fallback answer without
// calling the generator.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, hits []retrieval.Hit) <-chan stream.Event {
	out := make(chan stream.Event, 1)

	if len(hits) == 0 {
		go func() {
			defer close(out)
			if send(ctx, out, stream.Delta(FallbackAnswer)) {
				send(ctx, out, stream.Done())
			}
		}()
		return out
	}

	go func() {
		defer close(out)
		s.run(ctx, out, BuildMessages(query, hits))
	}()
	return out
}

func (s *Synthesizer) run(ctx context.Context, out chan<- stream.Event, msgs []domain.Message) {
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ts, err := s.gen.GenerateStream(genCtx, domain.GenerationRequest{Messages: msgs})
	if err != nil {
		s.fail(ctx, genCtx, out, err)
		return
	}
	defer func() { _ = ts.Close() }()

	tokens := 0
	for {
		delta, err := ts.Recv()
		if errors.Is(err, io.EOF) {
			s.logger.Debug("generation completed", zap.Int("fragments", tokens))
			send(ctx, out, stream.Done())
			return
		}
		if err != nil {
			s.fail(ctx, genCtx, out, err)
			return
		}
		if delta == "" {
			continue
		}
		tokens++
		if !send(ctx, out, stream.Delta(delta)) {
			return
		}
	}
}

// fail emits the error terminal unless the caller has gone away.
func (s *Synthesizer) fail(ctx, genCtx context.Context, out chan<- stream.Event, err error) {
	if ctx.Err() != nil {
		s.logger.Debug("generation abandoned by caller", zap.Error(err))
		return
	}
	reason := reasonFailed
	if errors.Is(genCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		reason = reasonTimeout
	}
	s.logger.Error("generation failed", zap.String("reason", reason), zap.Error(err))
	send(ctx, out, stream.Error(reason))
}

func send(ctx context.Context, out chan<- stream.Event, e stream.Event) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
