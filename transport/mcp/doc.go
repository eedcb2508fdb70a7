// Package mcp provides a Model Context Protocol server for Jigsaw Studio.
//
// The server is a thin client: every tool proxies to the REST API, so an
// agent plays exactly the same sessions a browser does and sees the same
// state over the websocket.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - puzzle_state: pieces, snapped grid, moves and timer
//   - measure: report the play surface size
//   - generate_artwork, load_image, change_puzzle, list_themes
//   - scatter: shuffle pieces into the tray
//   - drag_tile: start, move and release one piece in a single call
//   - piece_outline: grid cell, edge shape, home bounds and SVG outline
//   - puzzle_instructions: rules and tips
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
