package chi

import "time"

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes returned in ErrorResponse.Code.
const (
	ErrorResponseCodeBadRequest            ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed      ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnsupportedInput      ErrorResponseCode = "unsupported_input"
	ErrorResponseCodePayloadTooLarge       ErrorResponseCode = "payload_too_large"
	ErrorResponseCodeUnauthorized          ErrorResponseCode = "unauthorized"
	ErrorResponseCodeCollectionNotFound    ErrorResponseCode = "collection_not_found"
	ErrorResponseCodeVectorDimMismatch     ErrorResponseCode = "vector_dim_mismatch"
	ErrorResponseCodeEmbeddingUnavailable  ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeGenerationUnavailable ErrorResponseCode = "generation_provider_error"
	ErrorResponseCodeStoreUnavailable      ErrorResponseCode = "vector_store_error"
	ErrorResponseCodeInternalError         ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// UploadContentRequest is the body of POST /upload/content.
type UploadContentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UploadURLRequest is the body of POST /upload/url.
type UploadURLRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// UploadResponse reports an ingestion.
type UploadResponse struct {
	Collection string `json:"collection"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Created    bool   `json:"created"`
}

// ChatRequest is the body of POST /chat. K is optional (0 selects the default).
type ChatRequest struct {
	CollectionName string `json:"collectionName"`
	Message        string `json:"message"`
	K              int    `json:"k,omitempty"`
}

// Collection describes one stored collection.
type Collection struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
}

// CollectionListResponse is the body of GET /collections.
type CollectionListResponse struct {
	Collections []Collection `json:"collections"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
