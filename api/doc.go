// Package api provides HTTP REST API handlers for Jigsaw Studio.
//
// The api package implements:
//   - Session management endpoints
//   - Artwork generation and image loading
//   - Measure, scatter and drag endpoints driving the puzzle engine
//   - Tile outlines, cut tile images, guides and scatter transitions
//   - Theme listing
//   - WebSocket upgrade handling
//
// Endpoints (all under /api unless noted):
//
// Sessions:
//   - POST /sessions - Create a session
//   - GET /sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /sessions/{id} - Session info with state
//   - DELETE /sessions/{id} - Delete a session
//
// Artwork:
//   - POST /sessions/{id}/generate - {"prompt": "..."} or {"theme_id": "..."}
//   - POST /sessions/{id}/image - {"image": "data:image/png;base64,..."}
//   - POST /sessions/{id}/change - Drop the current puzzle
//
// Play:
//   - GET /sessions/{id}/state
//   - POST /sessions/{id}/measure - {"width": 1280, "height": 800}
//   - POST /sessions/{id}/scatter
//   - POST /sessions/{id}/drag/start|move|release - {"tile_id": 7, "x": 410, "y": 300}
//
// Rendering:
//   - GET /sessions/{id}/tiles/{tile}/outline
//   - GET /sessions/{id}/tiles/{tile}/mask.png
//   - GET /sessions/{id}/guides
//   - GET /sessions/{id}/transition?fps=30
//
// Themes:
//   - GET /themes
//   - GET /themes/{id}
//
// WebSocket:
//   - GET /ws?session={id} (outside /api)
//
// Error Handling:
//
// Errors are returned as JSON, {"error": "message"}. Unknown sessions, tiles
// and themes are 404; scatter preconditions and a second pending generation
// are 409; a missing artwork credential is 503 and a failed generation 502.
// Drags on tiles that cannot move are not errors: the outcome reports
// applied=false with a reason.
package api
