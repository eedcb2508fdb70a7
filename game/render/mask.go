package render

import (
	"image"

	"github.com/wricardo/jigsaw-studio/game/puzzle"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Mask rasterizes a piece outline into an alpha mask of size
// (w+2*margin) x (h+2*margin). The piece rectangle starts at (margin, margin).
func Mask(p puzzle.Path, w, h, margin int) *image.Alpha {
	mw, mh := w+2*margin, h+2*margin
	dst := image.NewAlpha(image.Rect(0, 0, mw, mh))
	if mw <= 0 || mh <= 0 {
		return dst
	}

	r := vector.NewRasterizer(mw, mh)
	m := float32(margin)
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case puzzle.MoveTo:
			r.MoveTo(float32(d[0])+m, float32(d[1])+m)
		case puzzle.LineTo:
			r.LineTo(float32(d[0])+m, float32(d[1])+m)
		case puzzle.CubicTo:
			r.CubeTo(
				float32(d[0])+m, float32(d[1])+m,
				float32(d[2])+m, float32(d[3])+m,
				float32(d[4])+m, float32(d[5])+m,
			)
		case puzzle.Close:
			r.ClosePath()
		}
	}
	r.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return dst
}

// TileMask returns the mask of a tile at its board size and the margin used.
func TileMask(t puzzle.Tile, boardWidth, boardHeight int) (*image.Alpha, int) {
	b := puzzle.BoundsOfTile(t, boardWidth, boardHeight)
	margin := int(puzzle.Margin(float64(b.Width), float64(b.Height)))
	return Mask(puzzle.OutlineFor(t, boardWidth, boardHeight), b.Width, b.Height, margin), margin
}

// CutTile cuts one piece, tabs included, out of an image already scaled to
// the board. The result is (w+2*margin) x (h+2*margin) with transparent
// pixels outside the outline; the tile's top-left corner is at
// (margin, margin).
func CutTile(board image.Image, t puzzle.Tile, boardWidth, boardHeight int) (*image.RGBA, int) {
	b := puzzle.BoundsOfTile(t, boardWidth, boardHeight)
	mask, margin := TileMask(t, boardWidth, boardHeight)

	dst := image.NewRGBA(mask.Bounds())
	origin := board.Bounds().Min
	sp := image.Pt(origin.X+b.X-margin, origin.Y+b.Y-margin)
	draw.DrawMask(dst, dst.Bounds(), board, sp, mask, image.Point{}, draw.Over)
	return dst, margin
}

// CutAll cuts every tile of the grid from an artwork of any size.
func CutAll(src image.Image, boardWidth, boardHeight int) map[int]*image.RGBA {
	board := ScaleToBoard(src, boardWidth, boardHeight)
	out := make(map[int]*image.RGBA, puzzle.TileCount)
	for _, t := range puzzle.CreateInitialLayout(boardWidth, boardHeight) {
		img, _ := CutTile(board, t, boardWidth, boardHeight)
		out[t.ID] = img
	}
	return out
}
