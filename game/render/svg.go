package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/wricardo/jigsaw-studio/game/puzzle"
)

// Guide is the outline of one tile drawn at its solved position.
type Guide struct {
	TileID int    `json:"tile_id"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Path   string `json:"path"`
}

// TilePath returns the SVG path data of a tile outline in tile-local
// coordinates (the tile rectangle starts at 0,0).
func TilePath(t puzzle.Tile, boardWidth, boardHeight int) string {
	return puzzle.OutlineFor(t, boardWidth, boardHeight).SVG()
}

// Guides returns every tile outline translated to its solved bounds, for
// the faint guide layer over the play area.
func Guides(boardWidth, boardHeight int) []Guide {
	guides := make([]Guide, 0, puzzle.TileCount)
	for _, t := range puzzle.CreateInitialLayout(boardWidth, boardHeight) {
		b := puzzle.BoundsOfTile(t, boardWidth, boardHeight)
		p := puzzle.OutlineFor(t, boardWidth, boardHeight).Translate(float64(b.X), float64(b.Y))
		guides = append(guides, Guide{TileID: t.ID, Row: t.Row, Col: t.Col, Path: p.SVG()})
	}
	return guides
}

// PieceSVG renders a standalone SVG document for one piece: the artwork
// clipped by the outline, then the same outline stroked on top.
func PieceSVG(t puzzle.Tile, boardWidth, boardHeight int, imageRef string) string {
	b := puzzle.BoundsOfTile(t, boardWidth, boardHeight)
	m := int(puzzle.Margin(float64(b.Width), float64(b.Height)))
	d := TilePath(t, boardWidth, boardHeight)
	clipID := fmt.Sprintf("piece-%d", t.ID)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="%d %d %d %d">`,
		b.Width+2*m, b.Height+2*m, -m, -m, b.Width+2*m, b.Height+2*m)
	fmt.Fprintf(&sb, `<defs><clipPath id="%s"><path d="%s"/></clipPath></defs>`, clipID, d)
	if imageRef != "" {
		fmt.Fprintf(&sb, `<image href="%s" x="%d" y="%d" width="%d" height="%d" preserveAspectRatio="none" clip-path="url(#%s)"/>`,
			html.EscapeString(imageRef), -b.X, -b.Y, boardWidth, boardHeight, clipID)
	}
	fmt.Fprintf(&sb, `<path d="%s" fill="none" stroke="rgba(255,255,255,0.6)" stroke-width="1.5"/>`, d)
	sb.WriteString(`</svg>`)
	return sb.String()
}
