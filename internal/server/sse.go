package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jonathan/campus-agents/internal/pipeline"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// stageEvent is the wire form of a pipeline.ProgressEvent.
type stageEvent struct {
	Type      pipeline.EventType `json:"type"`
	Pipeline  string             `json:"pipeline"`
	Stage     string             `json:"stage,omitempty"`
	Next      string             `json:"next,omitempty"`
	ElapsedMS int64              `json:"elapsed_ms"`
	Error     string             `json:"error,omitempty"`
}

// streamObserver forwards run events to an SSE stream until closed. A run
// that outlives its timeout keeps emitting events after the handler has
// moved on; those are dropped.
type streamObserver struct {
	mu     sync.Mutex
	sse    *SSEWriter
	closed bool
	logger *slog.Logger
}

func (o *streamObserver) OnEvent(e pipeline.ProgressEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	ev := stageEvent{
		Type:      e.Type,
		Pipeline:  e.Pipeline,
		Stage:     e.Stage,
		Next:      e.Next,
		ElapsedMS: e.Elapsed.Milliseconds(),
		Error:     e.Error,
	}
	if e.Fault != nil {
		ev.Error = "Internal server error"
	}
	if err := o.sse.WriteEvent("stage", ev); err != nil {
		o.logger.Debug("failed to write SSE event", "error", err)
	}
}

// finish closes the observer and writes the final event.
func (o *streamObserver) finish(event string, data any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return o.sse.WriteEvent(event, data)
}

// handleRunStream executes a pipeline and streams its stage events, ending
// with a "result" event carrying the usual envelope or an "error" event.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		s.jsonResponse(w, HTTPStatus(err), newRunResponse(req.PipelineName, nil, publicMessage(err, nil)))
		return
	}
	if _, err := s.registry.Get(req.PipelineName); err != nil {
		s.jsonResponse(w, HTTPStatus(err), newRunResponse(req.PipelineName, nil, publicMessage(err, s.registry.Names())))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, newRunResponse(req.PipelineName, nil, err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)

	obs := &streamObserver{sse: sse, logger: s.logger}
	status, resp := s.execute(r, req.PipelineName, req.Input, obs)

	event := "result"
	var payload any = resp
	if status != http.StatusOK {
		event = "error"
		payload = map[string]any{
			"success":       false,
			"pipeline_name": req.PipelineName,
			"error":         resp.Error,
			"status_code":   status,
		}
	}
	if err := obs.finish(event, payload); err != nil {
		s.logger.Debug("failed to write final SSE event", "error", err)
	}
}
