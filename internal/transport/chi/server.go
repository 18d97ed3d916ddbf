package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	domcol "github.com/kailas-cloud/vecrag/internal/domain/collection"
	"github.com/kailas-cloud/vecrag/internal/domain/source"
	"github.com/kailas-cloud/vecrag/internal/domain/stream"
	healthuc "github.com/kailas-cloud/vecrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/vecrag/internal/usecase/ingest"
)

// Ingester stores a source under a collection name.
type Ingester interface {
	Ingest(ctx context.Context, title string, src source.Source) (ingestuc.Report, error)
}

// Answerer starts a streamed answer.
type Answerer interface {
	Answer(ctx context.Context, name, message string, k int) (<-chan stream.Event, error)
}

// Collections lists and drops collections.
type Collections interface {
	List(ctx context.Context) ([]domcol.Collection, error)
	Delete(ctx context.Context, name string) error
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server implements ServerInterface.
type Server struct {
	ingest        Ingester
	chat          Answerer
	collections   Collections
	health        HealthChecker
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. Zero limits select DefaultLimits.
func NewServer(
	ingest Ingester,
	chat Answerer,
	collections Collections,
	health HealthChecker,
	limits Limits,
	logger *zap.Logger,
) *Server {
	return &Server{
		ingest:        ingest,
		chat:          chat,
		collections:   collections,
		health:        health,
		limits:        limits.withDefaults(),
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// UploadContent handles POST /upload/content.
func (s *Server) UploadContent(w http.ResponseWriter, r *http.Request) {
	var req UploadContentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	src, err := source.Text(req.Content)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runIngest(w, r, req.Title, src)
}

// UploadURL handles POST /upload/url.
func (s *Server) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req UploadURLRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	src, err := source.URL(req.URL)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runIngest(w, r, req.Title, src)
}

// UploadPDF handles POST /upload/pdf.
func (s *Server) UploadPDF(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, s.limits.MaxPDFBytes); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	src, err := pdfSource(r, s.limits.MaxPDFBytes)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runIngest(w, r, formTitle(r), src)
}

// UploadVTT handles POST /upload/vtt.
func (s *Server) UploadVTT(w http.ResponseWriter, r *http.Request) {
	limit := s.limits.MaxVTTBytes * int64(s.limits.MaxVTTFiles)
	if err := parseMultipart(w, r, limit); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	src, err := vttSource(r, s.limits.MaxVTTFiles, s.limits.MaxVTTBytes)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.runIngest(w, r, formTitle(r), src)
}

func (s *Server) runIngest(w http.ResponseWriter, r *http.Request, title string, src source.Source) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	rep, err := s.ingest.Ingest(ctx, strings.TrimSpace(title), src)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Collection: rep.Collection,
		Documents:  rep.Documents,
		Chunks:     rep.Chunks,
		Created:    rep.Created,
	})
}

// Chat handles POST /chat. Failures before the first event are JSON errors,
// later ones arrive as an SSE error frame.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	events, err := s.chat.Answer(ctx, strings.TrimSpace(req.CollectionName), req.Message, req.K)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.requestLogger(r).Error("open event stream", zap.Error(err))
		return
	}
	for e := range events {
		if err := sse.Write(e); err != nil {
			s.requestLogger(r).Warn("write event", zap.Error(err))
			return
		}
	}
	if !sse.Closed() && ctx.Err() == nil {
		// канал закрылся без терминального события
		_ = sse.Write(stream.Error("generation failed"))
	}
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]Collection, len(cols))
	for i, c := range cols {
		items[i] = collectionToAPI(c)
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Collections: items})
}

// DeleteCollection handles DELETE /collection/{name}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.collections.Delete(r.Context(), name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Collection '%s' deleted successfully", name),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeJSON reads a bounded JSON body into v. Writes the error response and
// returns false on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.limits.MaxJSONBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodePayloadTooLarge, errPayloadTooLarge.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func collectionToAPI(c domcol.Collection) Collection {
	return Collection{
		Name:      c.Name(),
		Dimension: c.VectorDim(),
		CreatedAt: time.UnixMilli(c.CreatedAt()).UTC(),
	}
}
