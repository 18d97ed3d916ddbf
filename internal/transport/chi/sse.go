package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/vecrag/internal/domain/stream"
)

// sseDone is the payload of the normal terminal frame.
const sseDone = "[DONE]"

var (
	errStreamClosed     = errors.New("stream already terminated")
	errFlushUnsupported = errors.New("response writer does not support flushing")
)

type sseFrame struct {
	Type  string `json:"type"`
	Delta string `json:"delta,omitempty"`
	Error string `json:"error,omitempty"`
}

// sseWriter frames answer events as server-sent events.
// Once a terminal frame is written every further write fails.
type sseWriter struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	closed bool
}

// newSSEWriter sets the event-stream headers and flushes them.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %w", errFlushUnsupported, err)
	}
	return &sseWriter{w: w, rc: rc}, nil
}

// Write emits one event.
func (s *sseWriter) Write(e stream.Event) error {
	if s.closed {
		return errStreamClosed
	}
	var payload string
	switch e.Kind() {
	case stream.KindDelta:
		b, err := json.Marshal(sseFrame{Type: "text-delta", Delta: e.Text()})
		if err != nil {
			return fmt.Errorf("encode delta: %w", err)
		}
		payload = string(b)
	case stream.KindDone:
		payload = sseDone
	case stream.KindError:
		b, err := json.Marshal(sseFrame{Type: "error", Error: e.Reason()})
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}
		payload = string(b)
	default:
		return fmt.Errorf("unknown event kind %d", e.Kind())
	}
	if e.Terminal() {
		s.closed = true
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	return nil
}

// Closed reports whether a terminal frame was written.
func (s *sseWriter) Closed() bool { return s.closed }
