package chat

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecrag/internal/domain/stream"
)

// Service answers questions about a collection.
type Service struct {
	retriever Retriever
	synth     *Synthesizer
}

// New creates a chat Service.
func New(retriever Retriever, synth *Synthesizer) *Service {
	return &Service{retriever: retriever, synth: synth}
}

// Answer retrieves up to k chunks from the named collection and starts
// streaming the answer. Errors returned here happen before any event is
// produced; later failures arrive as an error event on the channel.
func (s *Service) Answer(ctx context.Context, name, message string, k int) (<-chan stream.Event, error) {
	hits, err := s.retriever.Retrieve(ctx, name, message, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return s.synth.Synthesize(ctx, message, hits), nil
}
