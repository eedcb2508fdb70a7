package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/service"
)

// Generation waits on a remote image model, so the client timeout is long.
const requestTimeout = 3 * time.Minute

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Jigsaw Studio",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Jigsaw Studio - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Drag all 20 pieces of a 4x5 jigsaw back to their home cells. A piece released
within 25 pixels of its home snaps into place and can no longer move.

TYPICAL FLOW:
create_session -> measure -> generate_artwork (or load_image) -> scatter ->
piece_outline / puzzle_state -> drag_tile until solved.

AVAILABLE TOOLS:
- create_session, list_sessions, get_session
- puzzle_state: tiles, positions, moves and timer
- measure: report the play surface size
- generate_artwork: new artwork from a prompt or a preset theme
- load_image: use an existing image (data URI or URL)
- list_themes: preset artwork themes
- scatter: shuffle the pieces into the tray (restarts after a solve)
- drag_tile: drag one piece to a position, or straight home
- piece_outline: a piece's grid cell, edge shape, home bounds and SVG path
- change_puzzle: drop the current image
- puzzle_instructions: rules and tips`),
	)

	c.registerTools()
}

func sessionProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new puzzle session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active puzzle sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Play
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_state",
		Description: "Get the current puzzle state: every piece, its position and whether it is snapped",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handlePuzzleState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "measure",
		Description: "Report the size of the play surface. The board is the full width and 82% of the height; the tray is the rest.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"width": map[string]interface{}{
					"type":        "integer",
					"description": "Surface width in pixels",
				},
				"height": map[string]interface{}{
					"type":        "integer",
					"description": "Surface height in pixels",
				},
			},
			Required: []string{"session_id", "width", "height"},
		},
	}, c.handleMeasure)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "scatter",
		Description: "Shuffle every piece into the tray and start the timer. Pieces cannot be dragged for 2.2 seconds afterwards.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleScatter)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drag_tile",
		Description: "Drag one piece and release it. Give the target top-left corner with x and y, or set home to drop it on its own cell.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"tile_id": map[string]interface{}{
					"type":        "integer",
					"description": "Piece id, row*5+col (0-19)",
				},
				"x": map[string]interface{}{
					"type":        "number",
					"description": "Target x of the piece's top-left corner",
				},
				"y": map[string]interface{}{
					"type":        "number",
					"description": "Target y of the piece's top-left corner",
				},
				"home": map[string]interface{}{
					"type":        "boolean",
					"description": "Drop the piece on its home cell (x and y are ignored)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this piece goes there",
				},
			},
			Required: []string{"session_id", "tile_id"},
		},
	}, c.handleDragTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "piece_outline",
		Description: "Describe one piece: grid cell, edge shape (tab/blank/flat per side), home bounds and SVG outline",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"tile_id": map[string]interface{}{
					"type":        "integer",
					"description": "Piece id (0-19)",
				},
			},
			Required: []string{"session_id", "tile_id"},
		},
	}, c.handlePieceOutline)

	// Artwork
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "generate_artwork",
		Description: "Generate new artwork for the puzzle from a prompt or a preset theme. Replaces the current puzzle on success only.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "What the picture should show",
				},
				"theme_id": map[string]interface{}{
					"type":        "string",
					"description": "Preset theme id, used when prompt is empty",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGenerateArtwork)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "load_image",
		Description: "Use an existing image for the puzzle",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp(),
				"image": map[string]interface{}{
					"type":        "string",
					"description": "Image reference (data URI or URL)",
				},
			},
			Required: []string{"session_id", "image"},
		},
	}, c.handleLoadImage)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "change_puzzle",
		Description: "Drop the current image and pieces",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleChangePuzzle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_themes",
		Description: "List the preset artwork themes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListThemes)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_instructions",
		Description: "Get the rules of the puzzle and tips for solving it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handlePuzzleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return fmt.Sprintf("/api/sessions/%s%s", sessionID, suffix)
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                    `json:"count"`
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Active sessions: %d\n", response.Count))
	for _, s := range response.Sessions {
		status := "no image"
		if s.State != nil && s.State.Image != "" {
			status = fmt.Sprintf("%d/%d placed", puzzle.SnappedCount(s.State.Tiles), puzzle.TileCount)
			if s.State.Solved {
				status = "solved"
			}
		}
		result.WriteString(fmt.Sprintf("- %s (%s) last active %s\n",
			s.ID, status, s.LastAccessedAt.Format("15:04:05")))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handlePuzzleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state puzzle.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPuzzleState(&state)), nil
}

func (c *Client) handleMeasure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]int{
		"width":  request.GetInt("width", 0),
		"height": request.GetInt("height", 0),
	}
	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/measure"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleScatter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/scatter"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result) +
		"\nPieces unlock in 2.2 seconds."), nil
}

func (c *Client) handleDragTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tileID, err := request.RequireInt("tile_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var outline service.TileOutline
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, fmt.Sprintf("/tiles/%d/outline", tileID)), nil, &outline); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	x, y := request.GetFloat("x", 0), request.GetFloat("y", 0)
	if request.GetBool("home", false) {
		x, y = float64(outline.Bounds.X), float64(outline.Bounds.Y)
	}
	// The engine centres the piece on the pointer.
	px := x + float64(outline.Bounds.Width)/2
	py := y + float64(outline.Bounds.Height)/2

	var result service.ActionResult
	steps := []struct {
		path string
		body map[string]interface{}
	}{
		{"/drag/start", map[string]interface{}{"tile_id": tileID}},
		{"/drag/move", map[string]interface{}{"tile_id": tileID, "x": px, "y": py}},
		{"/drag/release", map[string]interface{}{"tile_id": tileID}},
	}
	for _, step := range steps {
		if err := c.apiCall(ctx, "POST", sessionPath(sessionID, step.path), step.body, &result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !result.Outcome.Applied {
			return mcp.NewToolResultText(fmt.Sprintf("Piece %d not moved: %s\n\n%s",
				tileID, result.Outcome.Reason, formatPuzzleState(result.State))), nil
		}
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handlePieceOutline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tileID, err := request.RequireInt("tile_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var outline service.TileOutline
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, fmt.Sprintf("/tiles/%d/outline", tileID)), nil, &outline); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatOutline(&outline)), nil
}

func (c *Client) handleGenerateArtwork(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := service.GenerateRequest{
		Prompt:  request.GetString("prompt", ""),
		ThemeID: request.GetString("theme_id", ""),
	}
	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/generate"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleLoadImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	image, err := request.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/image"), map[string]string{"image": image}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleChangePuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/change"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Puzzle cleared. Generate or load new artwork to continue."), nil
}

func (c *Client) handleListThemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var themes []*service.Theme
	if err := c.apiCall(ctx, "GET", "/api/themes", nil, &themes); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available themes:\n")
	for _, theme := range themes {
		result.WriteString(fmt.Sprintf("- %s: %s", theme.ID, theme.Name))
		if theme.Description != "" {
			result.WriteString(" - " + theme.Description)
		}
		result.WriteString("\n")
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handlePuzzleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Jigsaw Studio - Complete Instructions

THE PUZZLE:
The artwork is cut into a 4 row x 5 column grid. Piece ids run row by row:
piece id = row*5 + col, so piece 0 is top-left and piece 19 bottom-right.
Every shared edge has a tab on one side and a matching blank on the other;
edges on the border of the picture are flat.

THE SURFACE:
measure reports the surface size. The board (where pieces belong) is the
full width and the top 82% of the height. The tray below it is where
scatter drops the pieces.

PLAYING:
1. scatter shuffles every piece into the tray with a small random rotation
   and starts the timer. Pieces are locked for 2.2 seconds.
2. drag_tile moves one piece. Positions are the piece's top-left corner.
3. A piece released less than 25 pixels from its home corner snaps into
   place, straightens and locks. Otherwise it stays where it was dropped.
4. Every release counts as one move. The puzzle is solved when all 20
   pieces are snapped; the timer stops then.
5. scatter again after a solve to replay the same picture.

TIPS:
- piece_outline gives the home bounds of any piece; drag_tile with home=true
  drops it exactly there.
- Corner pieces have two flat edges, border pieces one.
- Snapped pieces cannot be picked up again.

Good luck!`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	header := fmt.Sprintf("Session: %s\nCreated: %s\n",
		session.ID, session.CreatedAt.Format("2006-01-02 15:04:05"))
	if session.ThemeID != "" {
		header += fmt.Sprintf("Theme: %s\n", session.ThemeID)
	}
	if session.Prompt != "" {
		header += fmt.Sprintf("Prompt: %s\n", session.Prompt)
	}
	return header + "\n" + formatPuzzleState(session.State)
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	out := result.Outcome
	if out.Applied {
		b.WriteString(fmt.Sprintf("%s applied", out.Event))
	} else {
		b.WriteString(fmt.Sprintf("%s skipped: %s", out.Event, out.Reason))
	}
	if out.Event == puzzle.EventDragRelease && out.Tile != nil {
		if out.Snapped {
			b.WriteString(fmt.Sprintf(" - piece %d snapped into place", out.Tile.ID))
		} else {
			b.WriteString(fmt.Sprintf(" - piece %d dropped at (%.0f,%.0f)", out.Tile.ID, out.Tile.X, out.Tile.Y))
		}
	}
	if out.Solved {
		b.WriteString("\n🎉 SOLVED!")
	}
	b.WriteString("\n\n")
	b.WriteString(formatPuzzleState(result.State))
	return b.String()
}

func formatPuzzleState(state *puzzle.GameState) string {
	if state == nil {
		return "No puzzle state available"
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Surface: %dx%d | Board: %dx%d | Moves: %d | Time: %ds\n",
		state.Width, state.Height, state.BoardWidth, state.BoardHeight, state.Moves, state.ElapsedSeconds))

	switch {
	case state.Generating:
		result.WriteString("Status: generating artwork\n")
	case state.Image == "":
		result.WriteString("Status: no image loaded\n")
	case state.Solved:
		result.WriteString("Status: 🎉 SOLVED\n")
	case state.Busy:
		result.WriteString("Status: scattering, pieces locked\n")
	case !state.Shuffled:
		result.WriteString("Status: assembled, scatter to start\n")
	default:
		result.WriteString("Status: playing\n")
	}
	if state.Message != "" {
		result.WriteString(fmt.Sprintf("Message: %s\n", state.Message))
	}
	if len(state.Tiles) == 0 {
		return result.String()
	}

	result.WriteString(fmt.Sprintf("\nPlaced %d/%d (# snapped, . loose):\n", puzzle.SnappedCount(state.Tiles), puzzle.TileCount))
	result.WriteString(formatGrid(state.Tiles))

	loose := make([]puzzle.Tile, 0, len(state.Tiles))
	for _, t := range state.Tiles {
		if !t.Snapped {
			loose = append(loose, t)
		}
	}
	if len(loose) > 0 {
		sort.Slice(loose, func(i, j int) bool { return loose[i].ID < loose[j].ID })
		result.WriteString("\nLoose pieces:\n")
		for _, t := range loose {
			result.WriteString(fmt.Sprintf("  #%-2d r%dc%d at (%.0f,%.0f) rot %.1f°\n",
				t.ID, t.Row, t.Col, t.X, t.Y, t.Rotation))
		}
	}
	return result.String()
}

func formatGrid(tiles []puzzle.Tile) string {
	var grid [puzzle.Rows][puzzle.Cols]byte
	for r := range grid {
		for c := range grid[r] {
			grid[r][c] = '.'
		}
	}
	for _, t := range tiles {
		if t.Snapped && t.Row >= 0 && t.Row < puzzle.Rows && t.Col >= 0 && t.Col < puzzle.Cols {
			grid[t.Row][t.Col] = '#'
		}
	}

	var b strings.Builder
	for r := range grid {
		b.Write(grid[r][:])
		b.WriteByte('\n')
	}
	return b.String()
}

func edgeName(v int) string {
	switch v {
	case puzzle.Tab:
		return "tab"
	case puzzle.Blank:
		return "blank"
	}
	return "flat"
}

func formatOutline(o *service.TileOutline) string {
	return fmt.Sprintf("Piece %d (row %d, col %d)\n"+
		"Edges: top=%s right=%s bottom=%s left=%s\n"+
		"Home: x=%d y=%d w=%d h=%d (margin %d)\n"+
		"Path: %s",
		o.TileID, o.Row, o.Col,
		edgeName(o.Shape.Top), edgeName(o.Shape.Right), edgeName(o.Shape.Bottom), edgeName(o.Shape.Left),
		o.Bounds.X, o.Bounds.Y, o.Bounds.Width, o.Bounds.Height, o.Margin,
		o.Path)
}
