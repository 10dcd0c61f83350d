package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrStreamClosed is returned by Send after Close.
var ErrStreamClosed = stderrors.New("server: event stream closed")

// EventStream writes server-sent events to one client from an API handler.
// Every event is a message whose data is {"event": name, "data": payload}.
// Close sends a "close" event, which tells the client to stop reconnecting.
type EventStream struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	ctx context.Context

	mu     sync.Mutex
	closed bool
}

type eventMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// NewEventStream writes the event stream headers and flushes them. It fails
// when w cannot be flushed.
func NewEventStream(w http.ResponseWriter, r *http.Request) (*EventStream, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("event stream: %w", err)
	}
	return &EventStream{w: w, rc: rc, ctx: r.Context()}, nil
}

// Send writes one event and flushes it. It returns the request's context
// error once the client is gone.
func (s *EventStream) Send(event string, data any) error {
	payload, err := json.Marshal(eventMessage{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Close sends the close event. Later calls do nothing.
func (s *EventStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ctx.Err() != nil {
		return nil
	}
	if _, err := fmt.Fprint(s.w, "event: close\ndata: \n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Done is closed when the client disconnects.
func (s *EventStream) Done() <-chan struct{} {
	return s.ctx.Done()
}
