package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls++
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: []float32{float32(len(text)), 1}, TotalTokens: 2}, nil
}

type stubBatchEmbedder struct {
	stubEmbedder
	short bool
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	n := len(texts)
	if s.short {
		n--
	}
	return BatchEmbeddingResult{Embeddings: make([][]float32, n), TotalTokens: 7}, nil
}

func TestEmbedAll_FallbackPreservesOrder(t *testing.T) {
	e := &stubEmbedder{}
	res, err := EmbedAll(context.Background(), e, []string{"a", "bbb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.calls != 2 {
		t.Errorf("expected 2 calls, got %d", e.calls)
	}
	if res.Embeddings[0][0] != 1 || res.Embeddings[1][0] != 3 {
		t.Errorf("order not preserved: %v", res.Embeddings)
	}
	if res.TotalTokens != 4 {
		t.Errorf("expected 4 tokens, got %d", res.TotalTokens)
	}
}

func TestEmbedAll_FallbackError(t *testing.T) {
	e := &stubEmbedder{err: ErrEmbeddingUnavailable}
	_, err := EmbedAll(context.Background(), e, []string{"a"})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestEmbedAll_UsesBatch(t *testing.T) {
	e := &stubBatchEmbedder{}
	res, err := EmbedAll(context.Background(), e, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.calls != 0 {
		t.Errorf("expected no single calls, got %d", e.calls)
	}
	if res.TotalTokens != 7 {
		t.Errorf("expected batch tokens, got %d", res.TotalTokens)
	}
}

func TestEmbedAll_BatchCountMismatch(t *testing.T) {
	e := &stubBatchEmbedder{short: true}
	_, err := EmbedAll(context.Background(), e, []string{"a", "b"})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestDimension(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		want    int
		wantErr bool
	}{
		{"empty", nil, 0, false},
		{"uniform", [][]float32{{1, 2}, {3, 4}}, 2, false},
		{"mismatch", [][]float32{{1, 2}, {3}}, 0, true},
		{"zero length", [][]float32{{}}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Dimension(tt.vectors)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrVectorDimMismatch) {
				t.Errorf("expected ErrVectorDimMismatch, got %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUsage_NilSafe(t *testing.T) {
	var u *Usage
	u.AddEmbeddingTokens(3)

	ctx, usage := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddEmbeddingTokens(5)
	if usage.EmbeddingTokens != 5 || usage.EmbeddingCalls != 1 {
		t.Errorf("unexpected usage %+v", usage)
	}
	if UsageFromContext(context.Background()) != nil {
		t.Error("expected nil usage without collector")
	}
}
