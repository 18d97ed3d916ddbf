package chi

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"

	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/source"
	"github.com/kailas-cloud/vecrag/internal/domain/stream"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/vecrag/internal/usecase/ingest"
)

// --- Mocks ---

type mockIngester struct {
	ingestFn func(ctx context.Context, title string, src source.Source) (ingestuc.Report, error)
}

func (m *mockIngester) Ingest(ctx context.Context, title string, src source.Source) (ingestuc.Report, error) {
	return m.ingestFn(ctx, title, src)
}

type mockAnswerer struct {
	answerFn func(ctx context.Context, name, message string, k int) (<-chan stream.Event, error)
}

func (m *mockAnswerer) Answer(ctx context.Context, name, message string, k int) (<-chan stream.Event, error) {
	return m.answerFn(ctx, name, message, k)
}

type mockCollections struct {
	listFn   func(ctx context.Context) ([]domcol.Collection, error)
	deleteFn func(ctx context.Context, name string) error
}

func (m *mockCollections) List(ctx context.Context) ([]domcol.Collection, error) {
	return m.listFn(ctx)
}

func (m *mockCollections) Delete(ctx context.Context, name string) error {
	return m.deleteFn(ctx, name)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Helpers ---

type testDeps struct {
	ingest      *mockIngester
	chat        *mockAnswerer
	collections *mockCollections
	health      *mockHealth
	limits      Limits
}

func newTestDeps() *testDeps {
	return &testDeps{
		ingest: &mockIngester{ingestFn: func(_ context.Context, title string, _ source.Source) (ingestuc.Report, error) {
			return ingestuc.Report{Collection: title, Documents: 1, Chunks: 1, Created: true}, nil
		}},
		chat: &mockAnswerer{answerFn: func(_ context.Context, _, _ string, _ int) (<-chan stream.Event, error) {
			return events(stream.Done()), nil
		}},
		collections: &mockCollections{
			listFn:   func(context.Context) ([]domcol.Collection, error) { return nil, nil },
			deleteFn: func(context.Context, string) error { return nil },
		},
		health: &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
}

func (d *testDeps) handler(t *testing.T) http.Handler {
	t.Helper()
	s := NewServer(d.ingest, d.chat, d.collections, d.health, d.limits, zap.NewNop())
	return HandlerWithOptions(s, ChiServerOptions{ErrorHandlerFunc: s.HandleParamError})
}

func events(ev ...stream.Event) <-chan stream.Event {
	ch := make(chan stream.Event, len(ev))
	for _, e := range ev {
		ch <- e
	}
	close(ch)
	return ch
}
