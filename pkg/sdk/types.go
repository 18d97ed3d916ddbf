package vecrag

import (
	"time"

	"github.com/kailas-cloud/vecrag/internal/domain/stream"
)

// Event is one element of a chat stream: a text delta, or the terminal
// Done or Error event. Inspect it with Kind, Text and Reason.
type Event = stream.Event

// EventKind discriminates chat stream events.
type EventKind = stream.Kind

// Event kinds.
const (
	EventDelta EventKind = stream.KindDelta
	EventDone  EventKind = stream.KindDone
	EventError EventKind = stream.KindError
)

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name      string    `json:"name"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResult reports one ingestion.
type UploadResult struct {
	Collection string `json:"collection"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Created    bool   `json:"created"`
	// EmbeddingTokens is read from the X-Embedding-Tokens header.
	EmbeddingTokens int `json:"-"`
}

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component -> "ok"/"error"
}

// Healthy reports whether every component is up.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

// File is one transcript to upload.
type File struct {
	Name string
	Data []byte
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type uploadTextRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type uploadURLRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type chatRequest struct {
	CollectionName string `json:"collectionName"`
	Message        string `json:"message"`
	K              int    `json:"k,omitempty"`
}

type collectionList struct {
	Collections []CollectionInfo `json:"collections"`
}

type messageBody struct {
	Message string `json:"message"`
}
