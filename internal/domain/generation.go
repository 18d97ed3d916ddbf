package domain

import "context"

// Chat roles understood by generation providers.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is a single chat turn sent to the generation provider.
type Message struct {
	Role    string
	Content string
}

// GenerationRequest is one streaming completion call.
type GenerationRequest struct {
	Messages []Message
}

// Generator starts streaming completions.
type Generator interface {
	GenerateStream(ctx context.Context, req GenerationRequest) (TokenStream, error)
}

// TokenStream yields generated text segments. Recv returns io.EOF after the last segment.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}
