package puzzle

import "time"

const (
	// Grid dimensions, fixed for every session.
	Rows      = 4
	Cols      = 5
	TileCount = Rows * Cols

	// PlayAreaPercent is the share of the container height used by the board.
	// The remainder below it is the staging tray.
	PlayAreaPercent = 82

	// SnapThreshold is the release distance, in board pixels, under which a
	// tile locks into its solved position.
	SnapThreshold = 25.0

	// TrayMargin separates the tray from the play area and the container edges.
	TrayMargin = 10

	// MaxScatterRotation bounds the random tilt, in degrees, of a scattered tile.
	MaxScatterRotation = 10.0

	// ScatterZBase is the stacking order given to the first scattered tile.
	ScatterZBase = 10

	// ScatterCooldown locks scatter and drag while tiles fly into the tray.
	ScatterCooldown = 2200 * time.Millisecond

	// TickInterval drives the elapsed-time counter.
	TickInterval = time.Second
)

// Side values of an EdgeShape.
const (
	Blank = -1
	Flat  = 0
	Tab   = 1
)

// EdgeShape holds the four side values of a cell: Flat on the grid border,
// Tab where the piece bulges out, Blank where it is notched in.
type EdgeShape struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Bounds is an integer pixel rectangle on the board.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Tile is one puzzle piece. Row and Col never change after creation.
type Tile struct {
	ID       int     `json:"id"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Snapped  bool    `json:"snapped"`
	ZIndex   int     `json:"z_index"`
}

// GameState is the complete state of one play session
type GameState struct {
	Image string `json:"image,omitempty"`
	Tiles []Tile `json:"tiles"`

	// Measured container and the board derived from it
	Width       int `json:"width"`
	Height      int `json:"height"`
	BoardWidth  int `json:"board_width"`
	BoardHeight int `json:"board_height"`

	Solved     bool `json:"solved"`
	Shuffled   bool `json:"shuffled"`
	Busy       bool `json:"busy"`
	Generating bool `json:"generating"`

	// DraggingID is nil when no drag gesture is active.
	DraggingID  *int `json:"dragging_id"`
	SnapPreview bool `json:"snap_preview"`

	Moves          int        `json:"moves"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	Message        string     `json:"message,omitempty"`
}

// EventType names a state transition applied to the engine
type EventType string

// Generation is bracketed by generate_start and either generate_done or
// generate_failed. load_image and change_puzzle are refused while it runs.
const (
	EventMeasure        EventType = "measure"
	EventGenerateStart  EventType = "generate_start"
	EventGenerateFailed EventType = "generate_failed"
	EventGenerateDone   EventType = "generate_done"
	EventLoadImage      EventType = "load_image"
	EventScatter        EventType = "scatter"
	EventCooldownEnd    EventType = "cooldown_end"
	EventDragStart      EventType = "drag_start"
	EventDragMove       EventType = "drag_move"
	EventDragRelease    EventType = "drag_release"
	EventTick           EventType = "tick"
	EventChangePuzzle   EventType = "change_puzzle"
)

// Event is a discrete input to the engine. Only the fields relevant to the
// event type are read.
type Event struct {
	Type    EventType `json:"type"`
	TileID  int       `json:"tile_id,omitempty"`
	X       float64   `json:"x,omitempty"`
	Y       float64   `json:"y,omitempty"`
	Width   int       `json:"width,omitempty"`
	Height  int       `json:"height,omitempty"`
	Image   string    `json:"image,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Outcome reports what an event did. Applied is false when the event was a
// no-op (unknown tile, drag not allowed, zero-size measurement).
type Outcome struct {
	Event   EventType `json:"event"`
	Applied bool      `json:"applied"`
	Reason  string    `json:"reason,omitempty"`
	Tile    *Tile     `json:"tile,omitempty"`
	Snapped bool      `json:"snapped,omitempty"`
	Solved  bool      `json:"solved,omitempty"`
}
