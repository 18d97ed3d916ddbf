package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/metrics"
)

// GeneratorConfig holds the chat completion settings.
type GeneratorConfig struct {
	Config
	Temperature float32
	MaxTokens   int
}

// Generator streams chat completions from an OpenAI-compatible API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	user        string
	provider    string
	logger      *zap.Logger
}

// NewGenerator creates a streaming generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	return &Generator{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		user:        cfg.User,
		provider:    cfg.Provider,
		logger:      nopIfNil(cfg.Logger),
	}
}

// GenerateStream implements domain.Generator.
func (g *Generator) GenerateStream(ctx context.Context, req domain.GenerationRequest) (domain.TokenStream, error) {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	creq := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		User:        g.user,
		Stream:      true,
	}

	start := time.Now()
	s, err := g.client.CreateChatCompletionStream(ctx, creq)
	if err != nil {
		g.countError(err)
		metrics.GenerationStreamsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return nil, parseAPIError("generation", err, domain.ErrGenerationUnavailable)
	}
	return &tokenStream{stream: s, g: g, start: start}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (g *Generator) countError(err error) {
	typ := errorType(err)
	metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, typ).Inc()
	g.logger.Warn("generation failed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.String("error_type", typ),
		zap.Error(err),
	)
}

// tokenStream adapts the SDK stream to domain.TokenStream.
type tokenStream struct {
	stream   *openai.ChatCompletionStream
	g        *Generator
	start    time.Time
	gotFirst bool
	done     bool
}

// Recv returns the next content delta. Chunks without content yield "".
func (t *tokenStream) Recv() (string, error) {
	resp, err := t.stream.Recv()
	if errors.Is(err, io.EOF) {
		if !t.done {
			t.done = true
			metrics.GenerationStreamsTotal.WithLabelValues(t.g.provider, t.g.model, "success").Inc()
		}
		return "", io.EOF
	}
	if err != nil {
		if !t.done {
			t.done = true
			t.g.countError(err)
			metrics.GenerationStreamsTotal.WithLabelValues(t.g.provider, t.g.model, "error").Inc()
		}
		return "", parseAPIError("generation", err, domain.ErrGenerationUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	delta := resp.Choices[0].Delta.Content
	if delta != "" && !t.gotFirst {
		t.gotFirst = true
		metrics.GenerationTimeToFirstToken.WithLabelValues(t.g.provider, t.g.model).
			Observe(time.Since(t.start).Seconds())
	}
	return delta, nil
}

// Close releases the HTTP response body.
func (t *tokenStream) Close() error {
	return t.stream.Close() //nolint:wrapcheck // body close
}
