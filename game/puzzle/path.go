package puzzle

import (
	"fmt"
	"math"
	"strings"
)

// Tab proportions, as fractions of min(width, height) of the piece.
const (
	TabDepth = 0.22
	TabNeck  = 0.14
	TabHead  = 0.25

	// OutlineMargin covers the deepest tab bulge (1.025 * TabDepth) with room
	// for a stroke.
	OutlineMargin = 0.25
)

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	CubicTo // (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float64
}

// Point is a position in piece-local pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Path is a closed piece outline made of move, line and cubic commands. The
// same path is used to clip the artwork and to stroke the piece border.
type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// sideFrame maps edge-local coordinates (s along the edge, o outward from the
// piece) to piece coordinates. Sides are walked clockwise so the outline is a
// single closed loop.
type sideFrame struct {
	origin Point
	along  Point
	out    Point
	length float64
}

func (f sideFrame) at(s, o float64) (float64, float64) {
	return f.origin.X + s*f.along.X + o*f.out.X,
		f.origin.Y + s*f.along.Y + o*f.out.Y
}

func frames(w, h float64) [4]sideFrame {
	return [4]sideFrame{
		{origin: Point{0, 0}, along: Point{1, 0}, out: Point{0, -1}, length: w},  // top
		{origin: Point{w, 0}, along: Point{0, 1}, out: Point{1, 0}, length: h},   // right
		{origin: Point{w, h}, along: Point{-1, 0}, out: Point{0, 1}, length: w},  // bottom
		{origin: Point{0, h}, along: Point{0, -1}, out: Point{-1, 0}, length: h}, // left
	}
}

// BuildOutline returns the closed outline of a piece of size w x h whose
// rectangle starts at the local origin. Tab sides bulge outside the
// rectangle, Blank sides cut into it, Flat sides are straight. Every side is
// tangent-continuous at the points where the tab meets the straight edge.
func BuildOutline(shape EdgeShape, w, h float64) Path {
	size := math.Min(w, h)
	depth := TabDepth * size
	neck := TabNeck * size
	head := TabHead * size

	var p Path
	p.MoveTo(0, 0)
	sides := [4]int{shape.Top, shape.Right, shape.Bottom, shape.Left}
	for i, f := range frames(w, h) {
		v := float64(sides[i])
		if v == 0 || size <= 0 {
			p.LineTo(f.at(f.length, 0))
			continue
		}
		m := f.length / 2
		a := m - neck/2
		b := m + neck/2
		d := v * depth

		p.LineTo(f.at(m-head/2, 0))
		p.cubic(f, a, 0, a, 0.1*d, a, 0.8*d)
		p.cubic(f, a, 1.1*d, b, 1.1*d, b, 0.8*d)
		p.cubic(f, b, 0.1*d, b, 0, m+head/2, 0)
		p.LineTo(f.at(f.length, 0))
	}
	p.Close()
	return p
}

func (p *Path) cubic(f sideFrame, s1, o1, s2, o2, s3, o3 float64) {
	x1, y1 := f.at(s1, o1)
	x2, y2 := f.at(s2, o2)
	x3, y3 := f.at(s3, o3)
	p.CubicTo(x1, y1, x2, y2, x3, y3)
}

// OutlineFor returns the outline of a tile scaled to its bounds.
func OutlineFor(t Tile, boardWidth, boardHeight int) Path {
	b := BoundsOfTile(t, boardWidth, boardHeight)
	return BuildOutline(ShapeOfTile(t), float64(b.Width), float64(b.Height))
}

// Margin returns the padding, in pixels, that a raster of a piece of size
// w x h needs around its rectangle to hold every tab.
func Margin(w, h float64) float64 {
	return math.Ceil(OutlineMargin * math.Min(w, h))
}

// Translate returns a copy of the path shifted by (dx, dy).
func (p Path) Translate(dx, dy float64) Path {
	out := Path{Cmds: make([]PathCmd, len(p.Cmds))}
	for i, c := range p.Cmds {
		out.Cmds[i] = c
		switch c.Op {
		case MoveTo, LineTo:
			out.Cmds[i].Data[0] += dx
			out.Cmds[i].Data[1] += dy
		case CubicTo:
			for j := 0; j < 6; j += 2 {
				out.Cmds[i].Data[j] += dx
				out.Cmds[i].Data[j+1] += dy
			}
		}
	}
	return out
}

// Extent returns the bounding box of all path points including control
// points. The curve always lies inside it.
func (p Path) Extent() (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	add := func(x, y float64) {
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			add(c.Data[0], c.Data[1])
		case CubicTo:
			add(c.Data[0], c.Data[1])
			add(c.Data[2], c.Data[3])
			add(c.Data[4], c.Data[5])
		}
	}
	if len(p.Cmds) == 0 {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}

// SVG renders the path as SVG path data.
func (p Path) SVG() string {
	var sb strings.Builder
	for i, c := range p.Cmds {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch c.Op {
		case MoveTo:
			fmt.Fprintf(&sb, "M %s %s", num(c.Data[0]), num(c.Data[1]))
		case LineTo:
			fmt.Fprintf(&sb, "L %s %s", num(c.Data[0]), num(c.Data[1]))
		case CubicTo:
			fmt.Fprintf(&sb, "C %s %s %s %s %s %s",
				num(c.Data[0]), num(c.Data[1]), num(c.Data[2]),
				num(c.Data[3]), num(c.Data[4]), num(c.Data[5]))
		case Close:
			sb.WriteByte('Z')
		}
	}
	return sb.String()
}

func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
