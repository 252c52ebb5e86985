package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/rag"
)

// sseWriter streams answer events as data-only Server-Sent Events: each
// event is one `data: <json>` line followed by a blank line, flushed
// immediately so tokens reach the client as they are generated.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// newSSEWriter prepares w for event streaming and sets the SSE headers.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable nginx buffering so tokens are not batched by the proxy.
	w.Header().Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher}, nil
}

// writeEvent sends one event and flushes. JSON encoding keeps the payload
// on a single line, so multi-line token content cannot break the framing.
func (s *sseWriter) writeEvent(ev rag.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
