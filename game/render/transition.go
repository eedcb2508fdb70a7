package render

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/wricardo/jigsaw-studio/game/puzzle"
)

// DefaultFPS is the frame rate used when none is given.
const DefaultFPS = 30

// Frame is the tile set at one instant of a transition.
type Frame struct {
	At    time.Duration `json:"at"`
	Tiles []puzzle.Tile `json:"tiles"`
}

type tileTween struct {
	x, y, rot *gween.Tween
}

// Transition interpolates every tile from its position in from to its
// position in to over duration with a cubic in-out ease. Tiles are matched
// by id; tiles missing from from start at their destination. The last frame
// equals to exactly.
func Transition(from, to []puzzle.Tile, duration time.Duration, fps int) []Frame {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if len(to) == 0 {
		return nil
	}
	if duration <= 0 {
		return []Frame{{At: 0, Tiles: append([]puzzle.Tile(nil), to...)}}
	}

	start := make(map[int]puzzle.Tile, len(from))
	for _, t := range from {
		start[t.ID] = t
	}

	secs := float32(duration.Seconds())
	tweens := make([]tileTween, len(to))
	for i, dst := range to {
		src, ok := start[dst.ID]
		if !ok {
			src = dst
		}
		tweens[i] = tileTween{
			x:   gween.New(float32(src.X), float32(dst.X), secs, ease.InOutCubic),
			y:   gween.New(float32(src.Y), float32(dst.Y), secs, ease.InOutCubic),
			rot: gween.New(float32(src.Rotation), float32(dst.Rotation), secs, ease.InOutCubic),
		}
	}

	step := time.Second / time.Duration(fps)
	var frames []Frame
	for at := time.Duration(0); ; at += step {
		if at >= duration {
			frames = append(frames, Frame{At: duration, Tiles: append([]puzzle.Tile(nil), to...)})
			return frames
		}
		t := float32(at.Seconds())
		tiles := make([]puzzle.Tile, len(to))
		for i, dst := range to {
			x, _ := tweens[i].x.Set(t)
			y, _ := tweens[i].y.Set(t)
			rot, _ := tweens[i].rot.Set(t)
			tile := dst
			tile.X, tile.Y, tile.Rotation = float64(x), float64(y), float64(rot)
			tiles[i] = tile
		}
		frames = append(frames, Frame{At: at, Tiles: tiles})
	}
}
