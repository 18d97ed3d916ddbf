package vecrag

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/vecrag/internal/domain/stream"
)

const (
	sseDone = "[DONE]"
	// maxFrameBytes bounds a single SSE line.
	maxFrameBytes = 1 << 20
)

// ChatStream reads answer events from an open chat response.
// Not safe for concurrent use.
type ChatStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool

	finishOnce sync.Once
	finish     func(error)
}

type wireFrame struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
	Error string `json:"error"`
}

// Chat asks a question against a collection and returns the answer stream.
// k <= 0 uses the server default. Errors raised before streaming starts
// (unknown collection, validation, embedding failure) are returned here.
func (c *Client) Chat(ctx context.Context, collection, message string, k int) (*ChatStream, error) {
	start := time.Now()

	body, err := json.Marshal(chatRequest{CollectionName: collection, Message: message, K: k})
	if err != nil {
		return nil, fmt.Errorf("vecrag: encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("vecrag: chat: %w", err)
		c.obs.observe("chat", start, err)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err = readAPIError(resp)
		_ = resp.Body.Close()
		c.obs.observe("chat", start, err)
		return nil, err
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		_ = resp.Body.Close()
		err = fmt.Errorf("vecrag: chat: unexpected content type %q", resp.Header.Get("Content-Type"))
		c.obs.observe("chat", start, err)
		return nil, err
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	return &ChatStream{
		body:    resp.Body,
		scanner: sc,
		finish:  func(err error) { c.obs.observe("chat", start, err) },
	}, nil
}

// Recv returns the next event. After the terminal event (Done or Error)
// it returns io.EOF. A connection that closes before a terminal event
// yields ErrStreamTruncated.
func (s *ChatStream) Recv() (Event, error) {
	if s.done {
		return Event{}, io.EOF
	}

	var data []string
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if len(data) == 0 {
				continue
			}
			ev, err := decodeFrame(strings.Join(data, "\n"))
			if err != nil {
				s.end(err)
				return Event{}, err
			}
			if ev.Terminal() {
				var endErr error
				if ev.Kind() == EventError {
					endErr = &IncompleteAnswerError{Reason: ev.Reason()}
				}
				s.end(endErr)
			}
			return ev, nil
		}
		// Comments and non-data fields are ignored.
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(v, " "))
		}
	}

	err := s.scanner.Err()
	if err == nil {
		err = ErrStreamTruncated
	} else {
		err = fmt.Errorf("%w: %w", ErrStreamTruncated, err)
	}
	s.end(err)
	return Event{}, err
}

// Close releases the connection. Closing mid-stream cancels the answer.
func (s *ChatStream) Close() error {
	if !s.done {
		s.end(context.Canceled)
	}
	return s.body.Close()
}

func (s *ChatStream) end(err error) {
	s.done = true
	s.finishOnce.Do(func() { s.finish(err) })
}

func decodeFrame(data string) (Event, error) {
	if data == sseDone {
		return stream.Done(), nil
	}
	var f wireFrame
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return Event{}, fmt.Errorf("vecrag: malformed stream frame: %w", err)
	}
	switch f.Type {
	case "text-delta":
		return stream.Delta(f.Delta), nil
	case "error":
		return stream.Error(f.Error), nil
	default:
		return Event{}, fmt.Errorf("vecrag: unknown stream frame type %q", f.Type)
	}
}

// Answer runs Chat and collects the whole answer. If the server ends the
// stream with an error event the partial text is returned inside
// *IncompleteAnswerError.
func (c *Client) Answer(ctx context.Context, collection, message string, k int) (string, error) {
	st, err := c.Chat(ctx, collection, message, k)
	if err != nil {
		return "", err
	}
	defer func() { _ = st.Close() }()

	var ans stream.Answer
	for {
		ev, err := st.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ans.Text(), err
		}
		ans.Apply(ev)
		if ev.Terminal() {
			break
		}
	}
	if ans.Incomplete() {
		return ans.Text(), &IncompleteAnswerError{Partial: ans.Text(), Reason: ans.Reason()}
	}
	return ans.Text(), nil
}
