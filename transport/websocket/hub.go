package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending broadcasts before new ones are dropped.
	broadcastBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what the hub sends to clients
type Message struct {
	SessionID string            `json:"session_id"`
	State     *puzzle.GameState `json:"state,omitempty"`
	Outcome   *puzzle.Outcome   `json:"outcome,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// Inbound is a pointer or layout event sent by a client. Pointer moves take
// this path instead of one HTTP request per move.
type Inbound struct {
	Type   puzzle.EventType `json:"type"`
	TileID int              `json:"tile_id"`
	X      float64          `json:"x"`
	Y      float64          `json:"y"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
}

// InboundHandler applies a client event to a session.
type InboundHandler func(sessionID string, ev puzzle.Event) error

var inboundTypes = map[puzzle.EventType]bool{
	puzzle.EventMeasure:     true,
	puzzle.EventScatter:     true,
	puzzle.EventDragStart:   true,
	puzzle.EventDragMove:    true,
	puzzle.EventDragRelease: true,
}

// Event converts the message to an engine event. ok is false for event
// types clients may not send.
func (in Inbound) Event() (puzzle.Event, bool) {
	if !inboundTypes[in.Type] {
		return puzzle.Event{}, false
	}
	return puzzle.Event{
		Type:   in.Type,
		TileID: in.TileID,
		X:      in.X,
		Y:      in.Y,
		Width:  in.Width,
		Height: in.Height,
	}, true
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages for clients
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	quit     chan struct{}
	stopOnce sync.Once

	inboundMu sync.RWMutex
	inbound   InboundHandler
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// SetInboundHandler sets where client events are applied. Without a handler
// inbound messages are ignored.
func (h *Hub) SetInboundHandler(fn InboundHandler) {
	h.inboundMu.Lock()
	defer h.inboundMu.Unlock()
	h.inbound = fn
}

func (h *Hub) inboundHandler() InboundHandler {
	h.inboundMu.RLock()
	defer h.inboundMu.RUnlock()
	return h.inbound
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-h.quit:
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return
		}
	}
}

// Stop ends Run and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastState queues a state update for every client of a session. It
// never blocks; updates are dropped while the queue is full.
func (h *Hub) BroadcastState(sessionID string, state puzzle.GameState, out puzzle.Outcome) {
	h.enqueue(&Message{
		SessionID: sessionID,
		State:     &state,
		Outcome:   &out,
		Event:     "state_update",
	})
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		log.WithField("session", message.SessionID).Warnf("Broadcast queue full, dropping %s", message.Event)
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Debugf("Client registered for session %s (total clients: %d)",
		client.sessionID, len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			log.Debugf("Client unregistered from session %s (remaining clients: %d)",
				client.sessionID, len(clients))
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal broadcast message: %v", err)
		return
	}

	if clients, ok := h.sessions[message.SessionID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				h.unregisterClient(client)
			}
		}
	}
}

// readPump applies inbound client events until the connection closes
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("WebSocket error: %v", err)
			}
			break
		}
		c.handleInbound(data)
	}
}

func (c *Client) handleInbound(data []byte) {
	handler := c.hub.inboundHandler()
	if handler == nil {
		return
	}

	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		log.WithField("session", c.sessionID).Debugf("Ignoring malformed message: %v", err)
		return
	}
	ev, ok := in.Event()
	if !ok {
		log.WithField("session", c.sessionID).Debugf("Ignoring inbound %q", in.Type)
		return
	}
	if err := handler(c.sessionID, ev); err != nil {
		c.hub.BroadcastEvent(c.sessionID, "error", err.Error())
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message; clients parse each frame as one JSON value.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
