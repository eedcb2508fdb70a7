// Package websocket provides WebSocket transport for Jigsaw Studio.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - State broadcasting after every applied engine event, timers included
//   - Inbound pointer events (drag start, move, release) without an HTTP
//     round trip per pointer move
//
// Architecture:
//
// A central Hub owns all connections and runs a single event loop. Each
// client has a read goroutine that applies inbound events and a write
// goroutine that drains its send queue. BroadcastState never blocks, so it
// is safe to call from the engine's change listener.
//
// Message Protocol:
//
//   - Incoming: {"type": "drag_move", "tile_id": 7, "x": 412.5, "y": 260}
//   - Outgoing: {"session_id": "a1b2", "event": "state_update", "state": {...}, "outcome": {...}}
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetInboundHandler(func(id string, ev puzzle.Event) error {
//		_, err := gameService.Apply(ctx, id, ev)
//		return err
//	})
//	go hub.Run()
//	defer hub.Stop()
package websocket
