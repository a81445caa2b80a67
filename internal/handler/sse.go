package handler

import (
	"errors"
	"fmt"
	"net/http"
)

// sseSink writes pre-formatted SSE frames to the response, flushing after
// each one so deltas reach the client as they arrive.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSESink sets the streaming headers and returns a sink, or an error if
// the ResponseWriter cannot flush.
func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported by connection")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &sseSink{w: w, flusher: flusher}, nil
}

// WriteEvent writes one SSE frame and flushes it.
func (s *sseSink) WriteEvent(frame string) error {
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}
