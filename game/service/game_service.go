package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/render"
)

// GameService defines all puzzle-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Artwork
	Generate(ctx context.Context, sessionID string, req GenerateRequest) (*ActionResult, error)
	LoadImage(ctx context.Context, sessionID, imageRef string) (*ActionResult, error)
	ChangePuzzle(ctx context.Context, sessionID string) (*ActionResult, error)

	// Play
	Measure(ctx context.Context, sessionID string, width, height int) (*ActionResult, error)
	Scatter(ctx context.Context, sessionID string) (*ActionResult, error)
	DragStart(ctx context.Context, sessionID string, tileID int) (*ActionResult, error)
	DragMove(ctx context.Context, sessionID string, tileID int, x, y float64) (*ActionResult, error)
	DragRelease(ctx context.Context, sessionID string, tileID int) (*ActionResult, error)
	Apply(ctx context.Context, sessionID string, ev puzzle.Event) (*ActionResult, error)

	// Rendering
	GetState(ctx context.Context, sessionID string) (*puzzle.GameState, error)
	TileOutline(ctx context.Context, sessionID string, tileID int) (*TileOutline, error)
	TileImage(ctx context.Context, sessionID string, tileID int) ([]byte, error)
	PieceSVG(ctx context.Context, sessionID string, tileID int) (string, error)
	Guides(ctx context.Context, sessionID string) ([]render.Guide, error)
	Transition(ctx context.Context, sessionID string, fps int) (*Transition, error)

	// Themes
	ListThemes(ctx context.Context) ([]*Theme, error)
	GetTheme(ctx context.Context, themeID string) (*Theme, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ThemeManager handles preset theme loading
type ThemeManager interface {
	LoadTheme(id string) (*Theme, error)
	ListThemes() ([]*Theme, error)
}

// StateListener receives every applied engine event of every session
type StateListener func(sessionID string, state puzzle.GameState, out puzzle.Outcome)

// Session represents an active play session
type Session struct {
	ID        string
	Engine    *puzzle.GameEngine
	CreatedAt time.Time

	mu           sync.RWMutex
	lastAccessed time.Time
	themeID      string
	prompt       string
}

// Touch records an access at the given time.
func (s *Session) Touch(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = at
}

// LastAccessed returns the time of the most recent access.
func (s *Session) LastAccessed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessed
}

// SetArtwork records what the current image was generated from.
func (s *Session) SetArtwork(themeID, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themeID = themeID
	s.prompt = prompt
}

// Artwork returns the theme id and prompt of the current image.
func (s *Session) Artwork() (themeID, prompt string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.themeID, s.prompt
}
