package puzzle

import "math"

// IsSnapReady reports whether a tile whose top-left corner is at (x, y) is
// strictly closer than SnapThreshold to its target corner (tx, ty).
func IsSnapReady(x, y, tx, ty float64) bool {
	return math.Hypot(x-tx, y-ty) < SnapThreshold
}

// SnapTile evaluates a release of t on a board of the given size. On success
// the returned tile sits exactly on its bounds with zero rotation and the
// snapped flag set; otherwise t is returned unchanged.
func SnapTile(t Tile, boardWidth, boardHeight int) (Tile, bool) {
	b := BoundsOfTile(t, boardWidth, boardHeight)
	if !IsSnapReady(t.X, t.Y, float64(b.X), float64(b.Y)) {
		return t, false
	}
	t.X = float64(b.X)
	t.Y = float64(b.Y)
	t.Rotation = 0
	t.Snapped = true
	return t, true
}
