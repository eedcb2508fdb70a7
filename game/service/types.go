package service

import (
	"time"

	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/render"
)

// SessionInfo provides information about a play session
type SessionInfo struct {
	ID             string            `json:"id"`
	ThemeID        string            `json:"theme_id,omitempty"`
	Prompt         string            `json:"prompt,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	State          *puzzle.GameState `json:"state"`
}

// Theme is a preset artwork subject
type Theme struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt"`
	Icon        string `json:"icon,omitempty"`
	BuiltIn     bool   `json:"built_in"`
}

// GenerateRequest asks for new artwork, either from a free-text prompt or
// from a preset theme. Prompt wins when both are set.
type GenerateRequest struct {
	Prompt  string `json:"prompt,omitempty"`
	ThemeID string `json:"theme_id,omitempty"`
}

// ActionResult is returned by every state-changing operation
type ActionResult struct {
	Outcome puzzle.Outcome    `json:"outcome"`
	State   *puzzle.GameState `json:"state"`
}

// TileOutline is the vector outline of one tile
type TileOutline struct {
	TileID int              `json:"tile_id"`
	Row    int              `json:"row"`
	Col    int              `json:"col"`
	Shape  puzzle.EdgeShape `json:"shape"`
	Bounds puzzle.Bounds    `json:"bounds"`
	Margin int              `json:"margin"`
	Path   string           `json:"path"`
}

// Transition is the eased movement of the last scatter
type Transition struct {
	Duration time.Duration  `json:"duration"`
	FPS      int            `json:"fps"`
	Frames   []render.Frame `json:"frames"`
}
