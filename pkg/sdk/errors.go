package vecrag

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/vecrag/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrValidation             = domain.ErrValidation
	ErrUnsupportedInput       = domain.ErrUnsupportedInput
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrUpstreamUnavailable    = domain.ErrUpstreamUnavailable
	ErrEmbeddingUnavailable   = domain.ErrEmbeddingUnavailable
	ErrGenerationUnavailable  = domain.ErrGenerationUnavailable
	ErrVectorStoreUnavailable = domain.ErrStoreUnavailable
)

var (
	// ErrUnauthorized is returned for a missing or rejected API key.
	ErrUnauthorized = errors.New("vecrag: unauthorized")
	// ErrPayloadTooLarge is returned when an upload exceeds the server limits.
	ErrPayloadTooLarge = errors.New("vecrag: payload too large")
	// ErrIncompleteAnswer is returned by Answer when the stream ended with an error event.
	ErrIncompleteAnswer = errors.New("vecrag: incomplete answer")
	// ErrStreamTruncated is returned when the connection closed before a terminal event.
	ErrStreamTruncated = errors.New("vecrag: stream ended without a terminal event")
)

// codeSentinels maps server error codes to sentinels.
var codeSentinels = map[string]error{
	"validation_failed":         domain.ErrValidation,
	"bad_request":               domain.ErrValidation,
	"unsupported_input":         domain.ErrUnsupportedInput,
	"payload_too_large":         ErrPayloadTooLarge,
	"unauthorized":              ErrUnauthorized,
	"collection_not_found":      domain.ErrNotFound,
	"vector_dim_mismatch":       domain.ErrVectorDimMismatch,
	"embedding_provider_error":  domain.ErrEmbeddingUnavailable,
	"generation_provider_error": domain.ErrGenerationUnavailable,
	"vector_store_error":        domain.ErrStoreUnavailable,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("vecrag: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("vecrag: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap exposes the matching sentinel so errors.Is works across the wire.
func (e *APIError) Unwrap() error {
	if s, ok := codeSentinels[e.Code]; ok {
		return s
	}
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case http.StatusBadGateway:
		return domain.ErrUpstreamUnavailable
	}
	return nil
}

// IncompleteAnswerError carries the partial text of an interrupted answer.
type IncompleteAnswerError struct {
	Partial string
	Reason  string
}

func (e *IncompleteAnswerError) Error() string {
	return fmt.Sprintf("%s: %s", ErrIncompleteAnswer.Error(), e.Reason)
}

func (e *IncompleteAnswerError) Unwrap() error { return ErrIncompleteAnswer }
