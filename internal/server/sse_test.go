package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tbgers/tbgclient/internal/event"
)

type mockResponseWriter struct {
	*httptest.ResponseRecorder
	flushed int
}

func (m *mockResponseWriter) Flush() {
	m.flushed++
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{ResponseRecorder: httptest.NewRecorder()}
}

type noFlushWriter struct{}

func (n *noFlushWriter) Header() http.Header       { return http.Header{} }
func (n *noFlushWriter) Write([]byte) (int, error) { return 0, nil }
func (n *noFlushWriter) WriteHeader(int)           {}

func TestNewSSEWriter_NoFlusher(t *testing.T) {
	if _, err := newSSEWriter(&noFlushWriter{}); err == nil {
		t.Error("Expected error for writer without Flusher")
	}
}

func TestSSEWriter_WriteEvent(t *testing.T) {
	w := newMockResponseWriter()
	sse, err := newSSEWriter(w)
	if err != nil {
		t.Fatalf("newSSEWriter failed: %v", err)
	}

	if err := sse.writeEvent("message", StreamEvent{Type: event.ChatMessage, Properties: map[string]int{"messageID": 7}}); err != nil {
		t.Fatalf("writeEvent failed: %v", err)
	}

	body := w.Body.String()
	if !strings.HasPrefix(body, "event: message\ndata: ") || !strings.HasSuffix(body, "\n\n") {
		t.Errorf("Malformed SSE frame: %q", body)
	}
	if !strings.Contains(body, `{"type":"chat.message","properties":{"messageID":7}}`) {
		t.Errorf("Unexpected data: %s", body)
	}
	if w.flushed == 0 {
		t.Error("Expected Flush to be called")
	}
}

func TestSSEWriter_WriteHeartbeat(t *testing.T) {
	w := newMockResponseWriter()
	sse, _ := newSSEWriter(w)

	sse.writeHeartbeat()

	if body := w.Body.String(); body != ": heartbeat\n\n" {
		t.Errorf("Expected heartbeat comment, got: %q", body)
	}
	if w.flushed == 0 {
		t.Error("Expected Flush to be called")
	}
}

func TestSessionOf(t *testing.T) {
	tests := []struct {
		name string
		e    event.Event
		want string
	}{
		{"login", event.Event{Type: event.SessionLoggedIn, Data: event.SessionData{SessionID: "a"}}, "a"},
		{"post", event.Event{Type: event.MessagePosted, Data: event.ForumMessageData{SessionID: "b"}}, "b"},
		{"profile", event.Event{Type: event.ProfileUpdated, Data: event.ProfileData{SessionID: "c"}}, "c"},
		{"chat", event.Event{Type: event.ChatMessage, Data: event.ChatMessageData{MessageID: 1}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sessionOf(tt.e); got != tt.want {
				t.Errorf("sessionOf = %q, want %q", got, tt.want)
			}
		})
	}
}

// readEvents returns the decoded data lines of an SSE response.
func readEvents(t *testing.T, ctx context.Context, url string) <-chan StreamEvent {
	t.Helper()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Expected text/event-stream, got %s", ct)
	}

	out := make(chan StreamEvent, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var evt StreamEvent
			if err := json.Unmarshal([]byte(data), &evt); err == nil {
				out <- evt
			}
		}
	}()
	return out
}

func next(t *testing.T, events <-chan StreamEvent) StreamEvent {
	t.Helper()
	select {
	case evt := <-events:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for SSE event")
	}
	return StreamEvent{}
}

func TestEvents_Filtering(t *testing.T) {
	event.Reset()
	srv := &Server{}
	ts := httptest.NewServer(http.HandlerFunc(srv.events))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := readEvents(t, ctx, ts.URL+"?session=mine&type=forum.message.posted&type=chat.message")
	if evt := next(t, events); evt.Type != "server.connected" {
		t.Fatalf("Expected server.connected first, got %s", evt.Type)
	}

	event.PublishSync(event.Event{Type: event.MessagePosted, Data: event.ForumMessageData{SessionID: "theirs", MessageID: 1}})
	event.PublishSync(event.Event{Type: event.SessionLoggedIn, Data: event.SessionData{SessionID: "mine"}})
	event.PublishSync(event.Event{Type: event.MessagePosted, Data: event.ForumMessageData{SessionID: "mine", MessageID: 2}})
	event.PublishSync(event.Event{Type: event.ChatMessage, Data: event.ChatMessageData{MessageID: 3}})

	evt := next(t, events)
	if evt.Type != event.MessagePosted {
		t.Fatalf("Expected forum.message.posted, got %s", evt.Type)
	}
	if props, _ := evt.Properties.(map[string]any); props["messageID"] != float64(2) {
		t.Errorf("Expected the session's own post, got %v", evt.Properties)
	}
	if evt := next(t, events); evt.Type != event.ChatMessage {
		t.Errorf("Expected chat.message, got %s", evt.Type)
	}
}

func TestEvents_Heartbeat(t *testing.T) {
	event.Reset()
	old := SSEHeartbeatInterval
	SSEHeartbeatInterval = 20 * time.Millisecond
	defer func() { SSEHeartbeatInterval = old }()

	srv := &Server{}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w := newMockResponseWriter()
	req := httptest.NewRequest(http.MethodGet, "/event", nil).WithContext(ctx)
	srv.events(w, req)

	if !strings.Contains(w.Body.String(), ": heartbeat\n\n") {
		t.Errorf("Expected a heartbeat, got %q", w.Body.String())
	}
	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Error("Expected Cache-Control: no-cache")
	}
}
