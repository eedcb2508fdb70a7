// Package session provides session management for Jigsaw Studio.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session expiration, which also stops each engine's timers
//   - Optional JSON file persistence (FilePersistence)
//
// Every session owns one puzzle.GameEngine. The manager can forward each
// engine's state changes to a single listener (the websocket hub uses this
// to broadcast), tagged with the session ID.
//
// Persistence:
//
// With Options.Persistence set, a snapshot is written on creation and after
// every applied event except drag start, drag move and tick. Restored
// sessions come back with no drag in progress, no cooldown, and the elapsed
// timer running again if the puzzle was unsolved.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs from crypto/rand. Lookups are
// case-insensitive.
//
// Usage:
//
//	manager := session.NewManagerWithOptions(session.Options{
//		Listener: hub.BroadcastState,
//	})
//
//	sess, err := manager.Create("")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess.Engine.Apply(puzzle.Event{Type: puzzle.EventMeasure, Width: 1280, Height: 800})
package session
