// Package puzzle provides the core jigsaw logic for Jigsaw Studio.
//
// The puzzle package implements:
//   - Edge-shape generation (which side of every internal edge carries the tab)
//   - Piece outlines as closed line/cubic paths, shared by clip and stroke
//   - Tile geometry that partitions the play area without gaps or overlaps
//   - Initial layout and randomized scatter into the staging tray
//   - Snap evaluation and the drag/release state machine
//
// Core Types:
//
// EdgeShape describes the four sides of one grid cell. Path is a piece
// outline. Tile is one puzzle piece. GameState is the explicit play-session
// state, mutated only by events applied through the Engine interface, which
// GameEngine implements.
//
// Usage:
//
//	eng := puzzle.NewEngine(puzzle.Options{})
//	defer eng.Close()
//
//	eng.Apply(puzzle.Event{Type: puzzle.EventMeasure, Width: 1000, Height: 800})
//	eng.Apply(puzzle.Event{Type: puzzle.EventLoadImage, Image: imageRef})
//	eng.Apply(puzzle.Event{Type: puzzle.EventScatter})
//
//	eng.Apply(puzzle.Event{Type: puzzle.EventDragStart, TileID: 7})
//	eng.Apply(puzzle.Event{Type: puzzle.EventDragMove, TileID: 7, X: 420, Y: 310})
//	out, _ := eng.Apply(puzzle.Event{Type: puzzle.EventDragRelease, TileID: 7})
//
// Game Rules:
//
// The image is cut into a fixed 4x5 grid. Scatter throws every tile into the
// tray below the play area and starts the clock. A tile released within
// SnapThreshold pixels of its solved position locks in place with rotation
// reset to zero; otherwise it stays exactly where it was dropped. The puzzle
// is solved when every tile is snapped.
//
// While artwork is being generated, a client-supplied image or a puzzle
// change is refused; only generate_done or generate_failed end it.
package puzzle
