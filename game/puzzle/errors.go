package puzzle

import "errors"

// Scatter and generation preconditions. Drag events never return errors;
// a drag the engine cannot honour comes back as an Outcome with Applied false.
var (
	ErrNoImage      = errors.New("no image loaded")
	ErrNotMeasured  = errors.New("container has not been measured")
	ErrBusy         = errors.New("scatter in progress")
	ErrGenerating   = errors.New("artwork generation already in progress")
	ErrUnknownEvent = errors.New("unknown event type")
)

// Restore failures.
var (
	ErrInvalidState = errors.New("invalid saved state")
	ErrClosed       = errors.New("engine is closed")
)

// Reasons reported on an Outcome that was not applied.
const (
	ReasonZeroSize    = "container has zero size"
	ReasonUnknownTile = "unknown tile"
	ReasonNotShuffled = "puzzle has not been scattered"
	ReasonSolved      = "puzzle is solved"
	ReasonBusy        = "scatter in progress"
	ReasonDragActive  = "another tile is being dragged"
	ReasonTileSnapped = "tile is already snapped"
	ReasonNotDragging = "tile is not being dragged"
	ReasonNotStarted  = "timer not running"
	ReasonStaleTimer  = "timer belongs to a previous puzzle"

	ReasonNotGenerating = "no generation pending"
)
