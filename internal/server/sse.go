package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tbgers/tbgclient/internal/event"
	"github.com/tbgers/tbgclient/internal/logging"
)

// StreamEvent is the data of one SSE message.
type StreamEvent struct {
	Type       event.EventType `json:"type"`
	Properties any             `json:"properties"`
}

// SSEHeartbeatInterval is the interval for SSE heartbeats.
var SSEHeartbeatInterval = 30 * time.Second

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// sessionOf returns the session id an event belongs to, or "" for events
// that belong to nobody in particular (chat traffic).
func sessionOf(e event.Event) string {
	switch data := e.Data.(type) {
	case event.SessionData:
		return data.SessionID
	case event.ForumMessageData:
		return data.SessionID
	case event.ProfileData:
		return data.SessionID
	}
	return ""
}

// events streams bus events. With ?session= only events of that session
// and session-less events are sent; ?type= may be repeated to filter by
// event type.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	types := make(map[event.EventType]bool)
	for _, t := range r.URL.Query()["type"] {
		types[event.EventType(t)] = true
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	if err := sse.writeEvent("message", StreamEvent{Type: "server.connected", Properties: map[string]any{}}); err != nil {
		return
	}

	events := make(chan event.Event, 16)
	unsub := event.SubscribeAll(func(e event.Event) {
		if len(types) > 0 && !types[e.Type] {
			return
		}
		if owner := sessionOf(e); sessionID != "" && owner != "" && owner != sessionID {
			return
		}
		select {
		case events <- e:
		default:
			logging.Warn().Str("eventType", string(e.Type)).Msg("SSE event dropped: channel full")
		}
	})
	defer unsub()

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := sse.writeEvent("message", StreamEvent{Type: e.Type, Properties: e.Data}); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
