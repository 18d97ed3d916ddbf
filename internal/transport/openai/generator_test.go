package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

// sseServer streams the given content deltas as chat.completion.chunk events.
func sseServer(t *testing.T, deltas ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			chunk := map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion.chunk",
				"model":  req.Model,
				"choices": []map[string]any{
					{"index": 0, "delta": map[string]string{"content": d}},
				},
			}
			b, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", b)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestGenerator(url string) *Generator {
	return NewGenerator(&GeneratorConfig{
		Config: Config{
			APIKey:   "test-key",
			BaseURL:  url,
			Model:    "test-chat",
			Provider: "test",
			Logger:   zap.NewNop(),
		},
		MaxTokens: 64,
	})
}

func testRequest() domain.GenerationRequest {
	return domain.GenerationRequest{Messages: []domain.Message{
		{Role: domain.RoleSystem, Content: "answer from context"},
		{Role: domain.RoleUser, Content: "what do dogs do?"},
	}}
}

func TestGenerator_StreamsDeltas(t *testing.T) {
	server := sseServer(t, "Hel", "lo")
	defer server.Close()

	before := testutil.ToFloat64(metrics.GenerationStreamsTotal.WithLabelValues("test", "test-chat", "success"))

	ts, err := newTestGenerator(server.URL).GenerateStream(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	defer ts.Close()

	var sb strings.Builder
	for {
		d, err := ts.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		sb.WriteString(d)
	}
	if sb.String() != "Hello" {
		t.Errorf("got %q, want %q", sb.String(), "Hello")
	}

	after := testutil.ToFloat64(metrics.GenerationStreamsTotal.WithLabelValues("test", "test-chat", "success"))
	if after-before != 1 {
		t.Errorf("expected one successful stream, got %f", after-before)
	}
	if testutil.CollectAndCount(metrics.GenerationTimeToFirstToken) == 0 {
		t.Error("expected time-to-first-token observation")
	}
}

func TestGenerator_StartError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "overloaded", "type": "server_error"},
		})
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).GenerateStream(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestGenerator_CancelledContext(t *testing.T) {
	server := sseServer(t, "never")
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestGenerator(server.URL).GenerateStream(ctx, testRequest())
	if !errors.Is(err, domain.ErrGenerationUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped context.Canceled, got %v", err)
	}
}
