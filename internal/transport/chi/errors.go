package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrag/internal/domain"
	logpkg "github.com/kailas-cloud/vecrag/internal/logger"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// defaultErrorHandlers is ordered: each upstream sentinel precedes their common parent.
func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedInput, http.StatusBadRequest, ErrorResponseCodeUnsupportedInput),
		sentinelHandler(errPayloadTooLarge, http.StatusBadRequest, ErrorResponseCodePayloadTooLarge),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeCollectionNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusConflict, ErrorResponseCodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingUnavailable,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrGenerationUnavailable,
			http.StatusBadGateway, ErrorResponseCodeGenerationUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusBadGateway, ErrorResponseCodeStoreUnavailable),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, ErrorResponseCodeStoreUnavailable),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Input errors describe the caller's own request and are returned whole.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, domain.ErrUnsupportedInput) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrValidation,
		errPayloadTooLarge,
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingUnavailable,
		domain.ErrGenerationUnavailable,
		domain.ErrStoreUnavailable,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

// requestLogger prefers the request-scoped logger (carries request_id).
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

// HandleParamError answers router binding failures. Pass it as ChiServerOptions.ErrorHandlerFunc.
func (s *Server) HandleParamError(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage != nil && usage.EmbeddingCalls > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
