package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wricardo/jigsaw-studio/game/artwork"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"github.com/wricardo/jigsaw-studio/game/render"
)

var (
	ErrTileNotFound = errors.New("tile not found")
	ErrNoLayout     = errors.New("puzzle has no layout yet")
)

// DefaultGenerateTimeout bounds one artwork generation.
const DefaultGenerateTimeout = 2 * time.Minute

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	themes   ThemeManager
	artwork  artwork.Generator
	timeout  time.Duration

	// boards caches the decoded artwork of each session scaled to its board,
	// so cutting 20 tiles decodes the image once.
	boards map[string]*boardCache
	mu     sync.Mutex
}

type boardCache struct {
	ref    string
	width  int
	height int
	img    *image.RGBA
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, themes ThemeManager, gen artwork.Generator) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		themes:   themes,
		artwork:  gen,
		timeout:  DefaultGenerateTimeout,
		boards:   make(map[string]*boardCache),
	}
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	themeID, prompt := sess.Artwork()
	state := sess.Engine.State()
	return &SessionInfo{
		ID:             sess.ID,
		ThemeID:        themeID,
		Prompt:         prompt,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		State:          &state,
	}
}

// CreateSession creates a new play session
func (s *gameServiceImpl) CreateSession(ctx context.Context) (*SessionInfo, error) {
	sess, err := s.sessions.Create("")
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.WithField("session", sess.ID).Info("Session created")
	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	delete(s.boards, strings.ToLower(sessionID))
	s.mu.Unlock()

	log.WithField("session", sessionID).Info("Session deleted")
	return nil
}

// Generate asks the artwork generator for a new image and loads it. The
// remote call is not cancelled when ctx is; a failure leaves the current
// puzzle untouched.
func (s *gameServiceImpl) Generate(ctx context.Context, sessionID string, req GenerateRequest) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(req.Prompt)
	themeID := ""
	if prompt == "" && req.ThemeID != "" {
		theme, err := s.themes.LoadTheme(req.ThemeID)
		if err != nil {
			return nil, fmt.Errorf("theme %s: %w", req.ThemeID, err)
		}
		prompt, themeID = theme.Prompt, theme.ID
	}
	if prompt == "" {
		return nil, artwork.ErrEmptyPrompt
	}

	if _, err := sess.Engine.Apply(puzzle.Event{Type: puzzle.EventGenerateStart}); err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	ref, err := s.artwork.Generate(genCtx, prompt)
	if err == nil && ref == "" {
		err = artwork.ErrNoImage
	}
	if err != nil {
		s.failGeneration(sess, prompt, err)
		return nil, err
	}

	out, err := sess.Engine.Apply(puzzle.Event{Type: puzzle.EventGenerateDone, Image: ref})
	if err != nil {
		s.failGeneration(sess, prompt, err)
		return nil, err
	}
	if !out.Applied {
		return s.result(sess, out), nil
	}
	sess.SetArtwork(themeID, prompt)
	log.WithFields(log.Fields{
		"session":  sess.ID,
		"theme":    themeID,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Artwork loaded")

	return s.result(sess, out), nil
}

// failGeneration ends a pending generation so the session can generate again.
func (s *gameServiceImpl) failGeneration(sess *Session, prompt string, cause error) {
	entry := log.WithFields(log.Fields{"session": sess.ID, "prompt": prompt})
	if _, err := sess.Engine.Apply(puzzle.Event{Type: puzzle.EventGenerateFailed, Message: cause.Error()}); err != nil {
		entry.WithError(err).Error("Could not clear generation state")
	}
	entry.WithError(cause).Warn("Generation failed")
}

// LoadImage loads an image reference supplied by the client. It is refused
// while a generation is pending.
func (s *gameServiceImpl) LoadImage(ctx context.Context, sessionID, imageRef string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	out, err := sess.Engine.Apply(puzzle.Event{Type: puzzle.EventLoadImage, Image: imageRef})
	if err != nil {
		return nil, err
	}
	sess.SetArtwork("", "")
	return s.result(sess, out), nil
}

// ChangePuzzle drops the current image and tiles. Like LoadImage it is
// refused while a generation is pending.
func (s *gameServiceImpl) ChangePuzzle(ctx context.Context, sessionID string) (*ActionResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	out, err := sess.Engine.Apply(puzzle.Event{Type: puzzle.EventChangePuzzle})
	if err != nil {
		return nil, err
	}
	sess.SetArtwork("", "")
	return s.result(sess, out), nil
}

// Measure reports the size of the client's rendering surface
func (s *gameServiceImpl) Measure(ctx context.Context, sessionID string, width, height int) (*ActionResult, error) {
	return s.Apply(ctx, sessionID, puzzle.Event{Type: puzzle.EventMeasure, Width: width, Height: height})
}

// Scatter starts or restarts play
func (s *gameServiceImpl) Scatter(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.Apply(ctx, sessionID, puzzle.Event{Type: puzzle.EventScatter})
}

func (s *gameServiceImpl) DragStart(ctx context.Context, sessionID string, tileID int) (*ActionResult, error) {
	return s.Apply(ctx, sessionID, puzzle.Event{Type: puzzle.EventDragStart, TileID: tileID})
}

func (s *gameServiceImpl) DragMove(ctx context.Context, sessionID string, tileID int, x, y float64) (*ActionResult, error) {
	return s.Apply(ctx, sessionID, puzzle.Event{Type: puzzle.EventDragMove, TileID: tileID, X: x, Y: y})
}

func (s *gameServiceImpl) DragRelease(ctx context.Context, sessionID string, tileID int) (*ActionResult, error) {
	return s.Apply(ctx, sessionID, puzzle.Event{Type: puzzle.EventDragRelease, TileID: tileID})
}

// Apply runs a raw engine event. Artwork events go through Generate and
// LoadImage instead.
func (s *gameServiceImpl) Apply(ctx context.Context, sessionID string, ev puzzle.Event) (*ActionResult, error) {
	switch ev.Type {
	case puzzle.EventGenerateStart, puzzle.EventGenerateFailed, puzzle.EventGenerateDone:
		return nil, fmt.Errorf("%w: %s is internal", puzzle.ErrUnknownEvent, ev.Type)
	case puzzle.EventLoadImage:
		return s.LoadImage(ctx, sessionID, ev.Image)
	case puzzle.EventChangePuzzle:
		return s.ChangePuzzle(ctx, sessionID)
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	out, err := sess.Engine.Apply(ev)
	if err != nil {
		return nil, err
	}

	if ev.Type == puzzle.EventDragRelease && out.Applied {
		st := sess.Engine.State()
		log.Infof("[RELEASE] session=%s tile=%d snapped=%t moves=%d solved=%t",
			sess.ID, ev.TileID, out.Snapped, st.Moves, st.Solved)
	}
	return s.result(sess, out), nil
}

func (s *gameServiceImpl) result(sess *Session, out puzzle.Outcome) *ActionResult {
	state := sess.Engine.State()
	return &ActionResult{Outcome: out, State: &state}
}

// GetState returns the current state of a session
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*puzzle.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.State()
	return &state, nil
}

func (s *gameServiceImpl) tile(sess *Session, tileID int) (puzzle.Tile, puzzle.GameState, error) {
	state := sess.Engine.State()
	if state.BoardWidth <= 0 || state.BoardHeight <= 0 {
		return puzzle.Tile{}, state, ErrNoLayout
	}
	if tileID < 0 || tileID >= puzzle.TileCount {
		return puzzle.Tile{}, state, fmt.Errorf("%w: %d", ErrTileNotFound, tileID)
	}
	// Outlines depend only on the grid cell, so they exist before any image.
	tile := puzzle.Tile{ID: tileID, Row: tileID / puzzle.Cols, Col: tileID % puzzle.Cols}
	return tile, state, nil
}

// TileOutline returns the vector outline of one tile
func (s *gameServiceImpl) TileOutline(ctx context.Context, sessionID string, tileID int) (*TileOutline, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	tile, state, err := s.tile(sess, tileID)
	if err != nil {
		return nil, err
	}

	b := puzzle.BoundsOfTile(tile, state.BoardWidth, state.BoardHeight)
	return &TileOutline{
		TileID: tile.ID,
		Row:    tile.Row,
		Col:    tile.Col,
		Shape:  puzzle.ShapeOfTile(tile),
		Bounds: b,
		Margin: int(puzzle.Margin(float64(b.Width), float64(b.Height))),
		Path:   render.TilePath(tile, state.BoardWidth, state.BoardHeight),
	}, nil
}

// TileImage returns a PNG of one tile: the artwork cut along the outline
// when the image can be decoded, the bare alpha mask otherwise.
func (s *gameServiceImpl) TileImage(ctx context.Context, sessionID string, tileID int) ([]byte, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	tile, state, err := s.tile(sess, tileID)
	if err != nil {
		return nil, err
	}

	board, err := s.board(sess.ID, state)
	if err != nil {
		log.WithField("session", sess.ID).Debugf("Serving bare mask: %v", err)
		mask, _ := render.TileMask(tile, state.BoardWidth, state.BoardHeight)
		return render.EncodePNG(mask)
	}
	img, _ := render.CutTile(board, tile, state.BoardWidth, state.BoardHeight)
	return render.EncodePNG(img)
}

// PieceSVG returns a standalone SVG of one tile with the artwork clipped by
// its outline.
func (s *gameServiceImpl) PieceSVG(ctx context.Context, sessionID string, tileID int) (string, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return "", err
	}
	tile, state, err := s.tile(sess, tileID)
	if err != nil {
		return "", err
	}
	return render.PieceSVG(tile, state.BoardWidth, state.BoardHeight, state.Image), nil
}

func (s *gameServiceImpl) board(sessionID string, state puzzle.GameState) (*image.RGBA, error) {
	if state.Image == "" {
		return nil, puzzle.ErrNoImage
	}
	key := strings.ToLower(sessionID)

	s.mu.Lock()
	cached := s.boards[key]
	s.mu.Unlock()
	if cached != nil && cached.ref == state.Image && cached.width == state.BoardWidth && cached.height == state.BoardHeight {
		return cached.img, nil
	}

	src, _, err := render.DecodeDataURI(state.Image)
	if err != nil {
		return nil, err
	}
	img := render.ScaleToBoard(src, state.BoardWidth, state.BoardHeight)

	s.mu.Lock()
	s.boards[key] = &boardCache{ref: state.Image, width: state.BoardWidth, height: state.BoardHeight, img: img}
	s.mu.Unlock()
	return img, nil
}

// Guides returns the solved-position outlines of every tile
func (s *gameServiceImpl) Guides(ctx context.Context, sessionID string) ([]render.Guide, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := sess.Engine.State()
	if state.BoardWidth <= 0 || state.BoardHeight <= 0 {
		return nil, ErrNoLayout
	}
	return render.Guides(state.BoardWidth, state.BoardHeight), nil
}

// Transition returns the eased frames of the last scatter
func (s *gameServiceImpl) Transition(ctx context.Context, sessionID string, fps int) (*Transition, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = render.DefaultFPS
	}
	from, to := sess.Engine.LastScatter()
	if len(to) == 0 {
		return nil, fmt.Errorf("%w: no scatter yet", ErrNoLayout)
	}
	return &Transition{
		Duration: puzzle.ScatterCooldown,
		FPS:      fps,
		Frames:   render.Transition(from, to, puzzle.ScatterCooldown, fps),
	}, nil
}

// ListThemes returns every preset theme
func (s *gameServiceImpl) ListThemes(ctx context.Context) ([]*Theme, error) {
	return s.themes.ListThemes()
}

// GetTheme returns one preset theme
func (s *gameServiceImpl) GetTheme(ctx context.Context, themeID string) (*Theme, error) {
	theme, err := s.themes.LoadTheme(themeID)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", themeID, err)
	}
	return theme, nil
}
