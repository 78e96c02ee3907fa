package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/events"
)

// defaultHeartbeat is the interval between keep-alive comments.
const defaultHeartbeat = 30 * time.Second

// handleEvents streams run events as Server-Sent Events. An optional
// ?execution= query parameter narrows the stream to one run.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.respondError(w, http.StatusNotFound, "event stream disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	execution := r.URL.Query().Get("execution")
	ch := s.events.Subscribe()
	defer s.events.Unsubscribe(ch)

	clientID := uuid.NewString()
	s.logger.Debug("sse client connected", "client_id", clientID, "execution", execution)
	s.sendEvent(w, flusher, "connected", map[string]string{
		"client_id": clientID,
		"execution": execution,
	})

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("sse client disconnected", "client_id", clientID)
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if execution != "" && ev.ExecutionID() != execution {
				continue
			}
			s.sendEvent(w, flusher, ev.EventType(), ev)
		}
	}
}

func (s *Server) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode event", "type", eventType, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}

// WithEvents enables GET /api/v1/events backed by bus.
func WithEvents(bus *events.Bus) ServerOption {
	return func(s *Server) {
		s.events = bus
	}
}

// WithHeartbeat overrides the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}
