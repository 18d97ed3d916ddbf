package domain

import "context"

type usageKey struct{}

// Usage collects provider consumption for a single HTTP request.
// The handler puts a pointer into the context, services add to it,
// and the handler copies it into response headers.
type Usage struct {
	EmbeddingTokens int
	EmbeddingCalls  int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the collector. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records one embedding call. Safe on a nil receiver.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
		u.EmbeddingCalls++
	}
}
