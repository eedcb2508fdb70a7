package puzzle

import (
	"math"
	"math/rand"
)

// CreateInitialLayout creates one tile per grid cell, each sitting on its
// solved bounds, unsnapped, unrotated and with stacking order 1.
func CreateInitialLayout(boardWidth, boardHeight int) []Tile {
	tiles := make([]Tile, 0, TileCount)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			b := BoundsOf(r, c, boardWidth, boardHeight)
			tiles = append(tiles, Tile{
				ID:     r*Cols + c,
				Row:    r,
				Col:    c,
				X:      float64(b.X),
				Y:      float64(b.Y),
				ZIndex: 1,
			})
		}
	}
	return tiles
}

// TrayRect returns the staging region below the play area for a container
// of the given size. Height may be zero or negative when the container is
// too short to hold a tray.
func TrayRect(containerWidth, containerHeight int) (x, y, w, h float64) {
	playH := PlayAreaHeight(containerHeight)
	y = float64(playH + TrayMargin)
	return TrayMargin, y, float64(containerWidth - 2*TrayMargin), float64(containerHeight) - y - TrayMargin
}

// Scatter returns a copy of tiles thrown at random into the staging tray.
// Each tile gets a random tilt within MaxScatterRotation, the snapped flag
// cleared and a stacking order that increases with its position in the
// slice. Row and Col are left untouched.
//
// A tile's top-left corner is drawn from the tray shrunk by the tile size.
// When a tile does not fit (the tray is shorter than a tile on most screens)
// the corner is drawn from the whole tray instead, so tiles still spread out
// and always start inside the staging region.
func Scatter(tiles []Tile, containerWidth, containerHeight int, rng *rand.Rand) []Tile {
	playH := PlayAreaHeight(containerHeight)
	tileW := float64(containerWidth) / Cols
	tileH := float64(playH) / Rows
	trayX, trayY, trayW, trayH := TrayRect(containerWidth, containerHeight)

	spanX := scatterSpan(trayW, tileW)
	spanY := scatterSpan(trayH, tileH)

	out := make([]Tile, len(tiles))
	for i, t := range tiles {
		t.X = trayX + rng.Float64()*spanX
		t.Y = trayY + rng.Float64()*spanY
		t.Rotation = rng.Float64()*2*MaxScatterRotation - MaxScatterRotation
		t.Snapped = false
		t.ZIndex = ScatterZBase + i
		out[i] = t
	}
	return out
}

func scatterSpan(region, size float64) float64 {
	if region-size > 0 {
		return region - size
	}
	return math.Max(0, region)
}

// IsSolved reports whether every tile is snapped. An empty set is not solved.
func IsSolved(tiles []Tile) bool {
	if len(tiles) == 0 {
		return false
	}
	for _, t := range tiles {
		if !t.Snapped {
			return false
		}
	}
	return true
}

// SnappedCount returns how many tiles are locked in place.
func SnappedCount(tiles []Tile) int {
	n := 0
	for _, t := range tiles {
		if t.Snapped {
			n++
		}
	}
	return n
}

// FindTile returns the index of the tile with the given id, or -1.
func FindTile(tiles []Tile, id int) int {
	for i, t := range tiles {
		if t.ID == id {
			return i
		}
	}
	return -1
}
