package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub register channels are nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}
	if len(hub.sessions["test-session"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["test-session"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("send channel should be closed")
	}
}

func TestHubMultipleClientsInSession(t *testing.T) {
	hub := NewHub()
	sessionID := "multi-client-session"

	client1 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	client2 := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}

	hub.registerClient(client1)
	hub.registerClient(client2)

	if len(hub.sessions[sessionID]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions[sessionID]))
	}

	hub.unregisterClient(client1)

	if len(hub.sessions[sessionID]) != 1 {
		t.Errorf("Expected 1 client remaining in session, got %d", len(hub.sessions[sessionID]))
	}
	if !hub.sessions[sessionID][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastState(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	sessionID := "broadcast-test"
	client := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, 256)}
	other := &Client{hub: hub, sessionID: "other", send: make(chan []byte, 256)}
	hub.register <- client
	hub.register <- other

	state := puzzle.GameState{
		Tiles:    []puzzle.Tile{{ID: 3, Row: 0, Col: 3, X: 12, Y: 40}},
		Shuffled: true,
		Moves:    4,
	}
	hub.BroadcastState(sessionID, state, puzzle.Outcome{Event: puzzle.EventDragRelease, Applied: true, Snapped: true})

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.SessionID != sessionID {
			t.Errorf("Expected sessionID %s, got %s", sessionID, message.SessionID)
		}
		if message.Event != "state_update" {
			t.Errorf("Expected event 'state_update', got %s", message.Event)
		}
		if message.State == nil || message.State.Moves != 4 || len(message.State.Tiles) != 1 {
			t.Fatalf("State not correctly transmitted: %+v", message.State)
		}
		if message.State.Tiles[0].X != 12 {
			t.Errorf("Expected tile x 12, got %v", message.State.Tiles[0].X)
		}
		if message.Outcome == nil || !message.Outcome.Snapped {
			t.Error("Outcome not correctly transmitted")
		}
	case <-time.After(time.Second):
		t.Fatal("No message received within timeout")
	}

	select {
	case <-other.send:
		t.Error("client of another session should not receive the update")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub := NewHub()

	hub.BroadcastEvent("event-test", "custom-event", "test-data")

	select {
	case message := <-hub.broadcast:
		if message.SessionID != "event-test" {
			t.Errorf("Expected sessionID 'event-test', got %s", message.SessionID)
		}
		if message.Event != "custom-event" {
			t.Errorf("Expected event 'custom-event', got %s", message.Event)
		}
		if message.Data != "test-data" {
			t.Errorf("Expected data 'test-data', got %v", message.Data)
		}
	default:
		t.Error("No broadcast message queued")
	}
}

func TestHubBroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.BroadcastEvent("s", "tick", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked without a running hub")
	}
	if len(hub.broadcast) != broadcastBuffer {
		t.Errorf("Expected %d queued messages, got %d", broadcastBuffer, len(hub.broadcast))
	}
}

func TestInboundEvent(t *testing.T) {
	tests := []struct {
		name string
		in   Inbound
		ok   bool
	}{
		{"drag move", Inbound{Type: puzzle.EventDragMove, TileID: 2, X: 10, Y: 20}, true},
		{"measure", Inbound{Type: puzzle.EventMeasure, Width: 800, Height: 600}, true},
		{"scatter", Inbound{Type: puzzle.EventScatter}, true},
		{"tick is internal", Inbound{Type: puzzle.EventTick}, false},
		{"load image goes through REST", Inbound{Type: puzzle.EventLoadImage}, false},
		{"unknown", Inbound{Type: "jump"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := tt.in.Event()
			if ok != tt.ok {
				t.Fatalf("Expected ok=%t, got %t", tt.ok, ok)
			}
			if ok && (ev.Type != tt.in.Type || ev.TileID != tt.in.TileID || ev.X != tt.in.X || ev.Width != tt.in.Width) {
				t.Errorf("Event fields not copied: %+v", ev)
			}
		})
	}
}

func newTestServer(hub *Hub) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			sessionID = "default"
		}
		hub.ServeWS(w, r, sessionID)
	}))
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	server := newTestServer(hub)
	defer server.Close()

	conn := dial(t, server, "msg-test")
	defer conn.Close()

	// Give time for registration
	time.Sleep(20 * time.Millisecond)

	hub.BroadcastState("msg-test", puzzle.GameState{Solved: true, ElapsedSeconds: 42}, puzzle.Outcome{Applied: true})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.SessionID != "msg-test" {
		t.Errorf("Expected sessionID 'msg-test', got %s", message.SessionID)
	}
	if message.State == nil || !message.State.Solved || message.State.ElapsedSeconds != 42 {
		t.Errorf("State not correctly received: %+v", message.State)
	}
}

func TestWebSocketInbound(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	var mu sync.Mutex
	var got []puzzle.Event
	received := make(chan struct{}, 4)
	hub.SetInboundHandler(func(sessionID string, ev puzzle.Event) error {
		if sessionID != "in-test" {
			t.Errorf("Expected session in-test, got %s", sessionID)
		}
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		received <- struct{}{}
		if ev.Type == puzzle.EventScatter {
			return errors.New("puzzle is busy")
		}
		return nil
	})

	server := newTestServer(hub)
	defer server.Close()

	conn := dial(t, server, "in-test")
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)

	messages := []string{
		`{"type":"drag_move","tile_id":5,"x":100.5,"y":64}`,
		`not json`,
		`{"type":"tick"}`,
		`{"type":"scatter"}`,
	}
	for _, m := range messages {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatal("inbound event not applied")
		}
	}

	mu.Lock()
	if len(got) != 2 {
		t.Fatalf("Expected 2 applied events, got %d", len(got))
	}
	if got[0].Type != puzzle.EventDragMove || got[0].TileID != 5 || got[0].X != 100.5 || got[0].Y != 64 {
		t.Errorf("Unexpected first event %+v", got[0])
	}
	mu.Unlock()

	// The handler error comes back to the same session.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read error event: %v", err)
	}
	var message Message
	json.Unmarshal(data, &message)
	if message.Event != "error" || message.Data != "puzzle is busy" {
		t.Errorf("Unexpected error event %+v", message)
	}
}
