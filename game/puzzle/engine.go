package puzzle

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Engine provides the event-driven interface to one play session
type Engine interface {
	// Apply runs one event against the state. Preconditions that the caller
	// should have respected (scatter with no image, a second generation)
	// return an error; drag events that do not apply return Applied=false.
	Apply(ev Event) (Outcome, error)

	// State returns a deep copy of the current state.
	State() GameState
	Tiles() []Tile
	IsSolved() bool

	// LastScatter returns the tile positions before and after the most
	// recent scatter, for transition rendering.
	LastScatter() (from, to []Tile)

	// Close cancels the tick and cooldown timers.
	Close()
}

// Options configures a GameEngine. Zero values select real time and a
// time-seeded random source.
type Options struct {
	Clock     Clock
	Scheduler Scheduler
	Rand      *rand.Rand

	// OnChange is called after every applied event with a snapshot of the
	// new state. It runs outside the engine lock.
	OnChange func(state GameState, out Outcome)
}

// GameEngine implements the Engine interface
type GameEngine struct {
	mu    sync.Mutex
	state GameState

	clock     Clock
	scheduler Scheduler
	rng       *rand.Rand
	onChange  func(GameState, Outcome)

	// epoch is bumped whenever the puzzle is reset so that timer callbacks
	// scheduled for an earlier puzzle are dropped.
	epoch          uint64
	cancelTick     Cancel
	cancelCooldown Cancel

	scatterFrom []Tile
	scatterTo   []Tile
	closed      bool
}

// NewEngine creates an engine with an empty state
func NewEngine(opts Options) *GameEngine {
	e := &GameEngine{
		clock:     opts.Clock,
		scheduler: opts.Scheduler,
		rng:       opts.Rand,
		onChange:  opts.OnChange,
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.scheduler == nil {
		e.scheduler = SystemScheduler{}
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.state.Tiles = []Tile{}
	return e
}

// Apply implements Engine
func (e *GameEngine) Apply(ev Event) (Outcome, error) {
	e.mu.Lock()
	out, err := e.apply(ev)
	var snapshot GameState
	notify := err == nil && out.Applied && e.onChange != nil
	if notify {
		snapshot = e.snapshot()
	}
	e.mu.Unlock()

	if notify {
		e.onChange(snapshot, out)
	}
	return out, err
}

func (e *GameEngine) apply(ev Event) (Outcome, error) {
	switch ev.Type {
	case EventMeasure:
		return e.measure(ev.Width, ev.Height), nil
	case EventGenerateStart:
		return e.generateStart()
	case EventGenerateFailed:
		return e.generateFailed(ev.Message), nil
	case EventGenerateDone:
		return e.generateDone(ev.Image)
	case EventLoadImage:
		return e.loadImage(ev.Image)
	case EventScatter:
		return e.scatter()
	case EventCooldownEnd:
		return e.cooldownEnd(), nil
	case EventDragStart:
		return e.dragStart(ev.TileID), nil
	case EventDragMove:
		return e.dragMove(ev.TileID, ev.X, ev.Y), nil
	case EventDragRelease:
		return e.dragRelease(ev.TileID), nil
	case EventTick:
		return e.tick(), nil
	case EventChangePuzzle:
		return e.changePuzzle()
	default:
		return Outcome{Event: ev.Type}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
}

func applied(t EventType) Outcome { return Outcome{Event: t, Applied: true} }

func skipped(t EventType, reason string) Outcome {
	return Outcome{Event: t, Reason: reason}
}

func (e *GameEngine) measure(w, h int) Outcome {
	if w <= 0 || h <= 0 {
		return skipped(EventMeasure, ReasonZeroSize)
	}
	s := &e.state
	s.Width, s.Height = w, h
	s.BoardWidth, s.BoardHeight = BoardSize(w, h)

	switch {
	case s.Image == "":
	case !s.Shuffled || len(s.Tiles) == 0:
		s.Tiles = CreateInitialLayout(s.BoardWidth, s.BoardHeight)
	default:
		// Snapped tiles follow their home cell; loose tiles stay where they are.
		for i, t := range s.Tiles {
			if t.Snapped {
				b := BoundsOfTile(t, s.BoardWidth, s.BoardHeight)
				s.Tiles[i].X, s.Tiles[i].Y = float64(b.X), float64(b.Y)
			}
		}
	}
	return applied(EventMeasure)
}

func (e *GameEngine) generateStart() (Outcome, error) {
	if e.state.Generating {
		return skipped(EventGenerateStart, ErrGenerating.Error()), ErrGenerating
	}
	e.state.Generating = true
	e.state.Message = ""
	return applied(EventGenerateStart), nil
}

func (e *GameEngine) generateFailed(msg string) Outcome {
	e.state.Generating = false
	e.state.Message = msg
	return applied(EventGenerateFailed)
}

func (e *GameEngine) generateDone(image string) (Outcome, error) {
	if !e.state.Generating {
		return skipped(EventGenerateDone, ReasonNotGenerating), nil
	}
	if image == "" {
		return skipped(EventGenerateDone, ErrNoImage.Error()), ErrNoImage
	}
	e.state.Generating = false
	e.setImage(image)
	return applied(EventGenerateDone), nil
}

// loadImage replaces the artwork with one supplied by the client. A pending
// generation would overwrite it, so it is refused until that completes.
func (e *GameEngine) loadImage(image string) (Outcome, error) {
	if e.state.Generating {
		return skipped(EventLoadImage, ErrGenerating.Error()), ErrGenerating
	}
	if image == "" {
		return skipped(EventLoadImage, ErrNoImage.Error()), ErrNoImage
	}
	e.setImage(image)
	return applied(EventLoadImage), nil
}

func (e *GameEngine) setImage(image string) {
	e.resetPuzzle()
	s := &e.state
	s.Image = image
	s.Message = ""
	if s.BoardWidth > 0 && s.BoardHeight > 0 {
		s.Tiles = CreateInitialLayout(s.BoardWidth, s.BoardHeight)
	}
}

func (e *GameEngine) scatter() (Outcome, error) {
	s := &e.state
	switch {
	case s.Image == "":
		return skipped(EventScatter, ErrNoImage.Error()), ErrNoImage
	case s.Width <= 0 || s.Height <= 0:
		return skipped(EventScatter, ErrNotMeasured.Error()), ErrNotMeasured
	case s.Busy:
		return skipped(EventScatter, ErrBusy.Error()), ErrBusy
	}
	if len(s.Tiles) == 0 {
		s.Tiles = CreateInitialLayout(s.BoardWidth, s.BoardHeight)
	}

	e.stopTimers()
	e.epoch++

	e.scatterFrom = copyTiles(s.Tiles)
	s.Tiles = Scatter(s.Tiles, s.Width, s.Height, e.rng)
	e.scatterTo = copyTiles(s.Tiles)

	now := e.clock()
	s.Shuffled = true
	s.Solved = false
	s.Busy = true
	s.DraggingID = nil
	s.SnapPreview = false
	s.Moves = 0
	s.StartedAt = &now
	s.ElapsedSeconds = 0

	epoch := e.epoch
	e.cancelCooldown = e.scheduler.AfterFunc(ScatterCooldown, func() {
		e.fire(epoch, Event{Type: EventCooldownEnd})
	})
	e.cancelTick = e.scheduler.Every(TickInterval, func() {
		e.fire(epoch, Event{Type: EventTick})
	})
	return applied(EventScatter), nil
}

func (e *GameEngine) cooldownEnd() Outcome {
	if !e.state.Busy {
		return skipped(EventCooldownEnd, "not busy")
	}
	e.state.Busy = false
	return applied(EventCooldownEnd)
}

func (e *GameEngine) dragStart(id int) Outcome {
	s := &e.state
	idx := FindTile(s.Tiles, id)
	switch {
	case idx < 0:
		return skipped(EventDragStart, ReasonUnknownTile)
	case s.Solved:
		return skipped(EventDragStart, ReasonSolved)
	case !s.Shuffled:
		return skipped(EventDragStart, ReasonNotShuffled)
	case s.Busy:
		return skipped(EventDragStart, ReasonBusy)
	case s.DraggingID != nil && *s.DraggingID != id:
		return skipped(EventDragStart, ReasonDragActive)
	case s.Tiles[idx].Snapped:
		return skipped(EventDragStart, ReasonTileSnapped)
	}

	top := 0
	for _, t := range s.Tiles {
		if t.ZIndex > top {
			top = t.ZIndex
		}
	}
	if s.Tiles[idx].ZIndex < top || top == 0 {
		s.Tiles[idx].ZIndex = top + 1
	}

	dragging := id
	s.DraggingID = &dragging
	s.SnapPreview = e.snapReady(s.Tiles[idx])

	out := applied(EventDragStart)
	t := s.Tiles[idx]
	out.Tile = &t
	return out
}

func (e *GameEngine) dragMove(id int, px, py float64) Outcome {
	s := &e.state
	if s.DraggingID == nil || *s.DraggingID != id {
		return skipped(EventDragMove, ReasonNotDragging)
	}
	idx := FindTile(s.Tiles, id)
	if idx < 0 {
		return skipped(EventDragMove, ReasonUnknownTile)
	}

	b := BoundsOfTile(s.Tiles[idx], s.BoardWidth, s.BoardHeight)
	s.Tiles[idx].X = px - float64(b.Width)/2
	s.Tiles[idx].Y = py - float64(b.Height)/2
	s.SnapPreview = e.snapReady(s.Tiles[idx])

	out := applied(EventDragMove)
	t := s.Tiles[idx]
	out.Tile = &t
	return out
}

func (e *GameEngine) dragRelease(id int) Outcome {
	s := &e.state
	if s.DraggingID == nil || *s.DraggingID != id {
		return skipped(EventDragRelease, ReasonNotDragging)
	}
	s.DraggingID = nil
	s.SnapPreview = false

	idx := FindTile(s.Tiles, id)
	if idx < 0 {
		return skipped(EventDragRelease, ReasonUnknownTile)
	}

	tile, snapped := SnapTile(s.Tiles[idx], s.BoardWidth, s.BoardHeight)
	s.Tiles[idx] = tile
	s.Moves++
	s.Solved = IsSolved(s.Tiles)
	if s.Solved {
		e.updateElapsed()
		if e.cancelTick != nil {
			e.cancelTick()
			e.cancelTick = nil
		}
	}

	out := applied(EventDragRelease)
	out.Tile = &tile
	out.Snapped = snapped
	out.Solved = s.Solved
	return out
}

func (e *GameEngine) tick() Outcome {
	if e.state.StartedAt == nil || e.state.Solved {
		return skipped(EventTick, ReasonNotStarted)
	}
	e.updateElapsed()
	return applied(EventTick)
}

func (e *GameEngine) updateElapsed() {
	if e.state.StartedAt == nil {
		return
	}
	elapsed := e.clock().Sub(*e.state.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	e.state.ElapsedSeconds = int(elapsed / time.Second)
}

func (e *GameEngine) changePuzzle() (Outcome, error) {
	if e.state.Generating {
		return skipped(EventChangePuzzle, ErrGenerating.Error()), ErrGenerating
	}
	e.resetPuzzle()
	e.state.Image = ""
	e.state.Message = ""
	return applied(EventChangePuzzle), nil
}

// resetPuzzle clears everything tied to the current image. The measured
// size and the generation flag survive.
func (e *GameEngine) resetPuzzle() {
	e.stopTimers()
	e.epoch++
	s := &e.state
	s.Tiles = []Tile{}
	s.Solved = false
	s.Shuffled = false
	s.Busy = false
	s.DraggingID = nil
	s.SnapPreview = false
	s.Moves = 0
	s.StartedAt = nil
	s.ElapsedSeconds = 0
	e.scatterFrom = nil
	e.scatterTo = nil
}

func (e *GameEngine) snapReady(t Tile) bool {
	b := BoundsOfTile(t, e.state.BoardWidth, e.state.BoardHeight)
	return IsSnapReady(t.X, t.Y, float64(b.X), float64(b.Y))
}

// fire applies a timer event unless the puzzle it was scheduled for is gone.
func (e *GameEngine) fire(epoch uint64, ev Event) {
	e.mu.Lock()
	if e.closed || epoch != e.epoch {
		e.mu.Unlock()
		return
	}
	out, err := e.apply(ev)
	notify := err == nil && out.Applied && e.onChange != nil
	var snapshot GameState
	if notify {
		snapshot = e.snapshot()
	}
	if ev.Type == EventCooldownEnd {
		e.cancelCooldown = nil
	}
	e.mu.Unlock()

	if notify {
		e.onChange(snapshot, out)
	}
}

func (e *GameEngine) stopTimers() {
	if e.cancelTick != nil {
		e.cancelTick()
		e.cancelTick = nil
	}
	if e.cancelCooldown != nil {
		e.cancelCooldown()
		e.cancelCooldown = nil
	}
}

// State implements Engine
func (e *GameEngine) State() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Tiles returns a copy of the current tile collection
func (e *GameEngine) Tiles() []Tile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyTiles(e.state.Tiles)
}

// IsSolved implements Engine
func (e *GameEngine) IsSolved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Solved
}

// LastScatter implements Engine
func (e *GameEngine) LastScatter() ([]Tile, []Tile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyTiles(e.scatterFrom), copyTiles(e.scatterTo)
}

// Close implements Engine
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimers()
	e.epoch++
	e.closed = true
}

// Restore replaces the state with a saved one. Gesture and cooldown flags
// are cleared, and the elapsed-time tick resumes for an unsolved shuffled
// puzzle. OnChange is not called.
func (e *GameEngine) Restore(state GameState) error {
	if len(state.Tiles) != 0 && len(state.Tiles) != TileCount {
		return fmt.Errorf("%w: %d tiles", ErrInvalidState, len(state.Tiles))
	}
	seen := make(map[int]bool, len(state.Tiles))
	for _, t := range state.Tiles {
		if t.ID < 0 || t.ID >= TileCount || t.Row != t.ID/Cols || t.Col != t.ID%Cols || seen[t.ID] {
			return fmt.Errorf("%w: tile %d at r%d c%d", ErrInvalidState, t.ID, t.Row, t.Col)
		}
		seen[t.ID] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.stopTimers()
	e.epoch++

	e.state = state
	e.state.Tiles = copyTiles(state.Tiles)
	if e.state.Tiles == nil {
		e.state.Tiles = []Tile{}
	}
	if state.StartedAt != nil {
		t := *state.StartedAt
		e.state.StartedAt = &t
	}
	e.state.DraggingID = nil
	e.state.SnapPreview = false
	e.state.Busy = false
	e.state.Generating = false
	e.scatterFrom = nil
	e.scatterTo = nil

	if e.state.Shuffled && !e.state.Solved && e.state.StartedAt != nil {
		epoch := e.epoch
		e.cancelTick = e.scheduler.Every(TickInterval, func() {
			e.fire(epoch, Event{Type: EventTick})
		})
	}
	return nil
}

func (e *GameEngine) snapshot() GameState {
	s := e.state
	s.Tiles = copyTiles(e.state.Tiles)
	if e.state.DraggingID != nil {
		id := *e.state.DraggingID
		s.DraggingID = &id
	}
	if e.state.StartedAt != nil {
		t := *e.state.StartedAt
		s.StartedAt = &t
	}
	return s
}

func copyTiles(tiles []Tile) []Tile {
	if tiles == nil {
		return nil
	}
	out := make([]Tile, len(tiles))
	copy(out, tiles)
	return out
}
