// Package normalizer turns ingestion sources into uniform documents.
package normalizer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	"github.com/kailas-cloud/vecrag/internal/domain/document"
	"github.com/kailas-cloud/vecrag/internal/domain/source"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxPageBytes = 5 << 20
)

// Normalizer dispatches on the source kind. Safe for concurrent use.
type Normalizer struct {
	client       *http.Client
	timeout      time.Duration
	allowPrivate bool
	maxPageBytes int64
	logger       *zap.Logger
}

// Option configures the Normalizer.
type Option func(*Normalizer)

// WithHTTPClient replaces the client used to fetch URLs.
// The client is used as is, without the private network guard.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Normalizer) { n.client = c }
}

// WithFetchTimeout bounds a single URL fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(n *Normalizer) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithPrivateNetworks lets URL sources resolve to loopback, private and
// link-local addresses. Off by default.
func WithPrivateNetworks(allow bool) Option {
	return func(n *Normalizer) { n.allowPrivate = allow }
}

// WithMaxPageBytes caps the fetched page body.
func WithMaxPageBytes(limit int64) Option {
	return func(n *Normalizer) {
		if limit > 0 {
			n.maxPageBytes = limit
		}
	}
}

// New creates a Normalizer.
func New(logger *zap.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		timeout:      defaultFetchTimeout,
		maxPageBytes: defaultMaxPageBytes,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.client == nil {
		n.client = newFetchClient(n.timeout, n.allowPrivate)
	}
	return n
}

// Normalize converts src into ordered documents. title names PDF documents.
// Every failure to produce text is reported as domain.ErrUnsupportedInput.
func (n *Normalizer) Normalize(ctx context.Context, title string, src source.Source) ([]document.Document, error) {
	var (
		docs []document.Document
		err  error
	)
	switch src.Kind() {
	case source.KindPDF:
		docs, err = parsePDF(src.PDFData(), title)
	case source.KindURL:
		docs, err = n.fetchPage(ctx, src.URL())
	case source.KindText:
		var doc document.Document
		doc, err = document.New(src.Text(), document.TextSource)
		docs = []document.Document{doc}
	case source.KindTranscripts:
		docs, err = parseTranscripts(src.Files())
	default:
		err = fmt.Errorf("source kind %q: %w", src.Kind(), domain.ErrUnsupportedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", src.Kind(), err)
	}

	n.logger.Debug("source normalized",
		zap.String("kind", string(src.Kind())),
		zap.Int("documents", len(docs)),
	)
	return docs, nil
}
