package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	batchSizes []int
	embedFn    func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// singleEmbedder has no BatchEmbed.
type singleEmbedder struct {
	calls int
}

func (s *singleEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 7,
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", Options{}, zap.NewNop())

	result, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 7 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInstrumentedEmbedder_ErrorIsUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	inner := &mockEmbedder{err: cause}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", Options{}, zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable in chain, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause in chain, got %v", err)
	}
}

func TestInstrumentedEmbedder_AlreadyWrappedNotDoubled(t *testing.T) {
	inner := &mockEmbedder{err: fmt.Errorf("provider: %w", domain.ErrEmbeddingUnavailable)}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", Options{}, zap.NewNop())

	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if n := strings.Count(err.Error(), "embedding provider error"); n != 1 {
		t.Errorf("sentinel appears %d times in %q", n, err.Error())
	}
}

func TestInstrumentedEmbedder_Timeout(t *testing.T) {
	inner := &mockEmbedder{embedFn: func(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", Options{Timeout: 20 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	_, err := p.Embed(context.Background(), "slow")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected unavailable deadline error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not applied")
	}
}

func TestBatchEmbed_SplitsIntoSubBatches(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.5},
		TotalTokens: 2,
	}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", Options{MaxBatchSize: 3}, zap.NewNop())

	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	res, err := p.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}
	want := []int{3, 3, 1}
	if fmt.Sprint(inner.batchSizes) != fmt.Sprint(want) {
		t.Errorf("sub-batches = %v, want %v", inner.batchSizes, want)
	}
	if res.TotalTokens != 14 {
		t.Errorf("expected TotalTokens=14, got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_FallbackToSingleCalls(t *testing.T) {
	inner := &singleEmbedder{}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", Options{MaxBatchSize: 2}, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 single calls, got %d", inner.calls)
	}
	for i, want := range []float32{1, 2, 3} {
		if res.Embeddings[i][0] != want {
			t.Errorf("embedding[%d] = %v, want %v (order lost)", i, res.Embeddings[i][0], want)
		}
	}
}

func TestBatchEmbed_Error(t *testing.T) {
	inner := &mockEmbedder{
		result:   domain.EmbeddingResult{Embedding: []float32{0.1}},
		batchErr: errors.New("api down"),
	}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", Options{}, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", Options{}, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 0 || len(inner.batchSizes) != 0 {
		t.Errorf("expected no work for empty input")
	}
}

func TestInstrumentedEmbedder_FailureLogTagsProvider(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	inner := &mockEmbedder{batchErr: errors.New("boom")}
	p := NewInstrumentedEmbedder(inner, "openai", "small", Options{MaxBatchSize: 1}, zap.New(core))

	if _, err := p.BatchEmbed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error")
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one error entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["provider"] != "openai" || ctx["model"] != "small" {
		t.Errorf("missing provider/model fields: %v", ctx)
	}
	if ctx["offset"] != int64(0) || ctx["batch_size"] != int64(2) {
		t.Errorf("unexpected batch fields: %v", ctx)
	}
}
