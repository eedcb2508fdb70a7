package artwork

import (
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"strings"

	"github.com/wricardo/jigsaw-studio/game/render"
	"golang.org/x/image/vector"
)

// Procedural draws a dense, deterministic pattern from the prompt so the
// game can be played without a network connection or API key.
type Procedural struct {
	Width  int
	Height int
}

func NewProcedural() *Procedural {
	return &Procedural{Width: 1280, Height: 720}
}

// Generate implements Generator.
func (p *Procedural) Generate(ctx context.Context, prompt string) (string, error) {
	if err := checkPrompt(prompt); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img := p.Draw(prompt)
	return render.EncodeDataURI(img)
}

// Draw renders the pattern for prompt.
func (p *Procedural) Draw(prompt string) *image.RGBA {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	w, ht := p.Width, p.Height
	img := image.NewRGBA(image.Rect(0, 0, w, ht))

	baseHue := rng.Float64() * 360
	top := hsv(baseHue, 0.7, 0.35)
	bottom := hsv(math.Mod(baseHue+40, 360), 0.8, 0.75)
	for y := 0; y < ht; y++ {
		t := float64(y) / float64(ht-1)
		c := mix(top, bottom, t)
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	// Overlapping translucent discs keep every tile busy enough to place.
	for i := 0; i < 60; i++ {
		cx := rng.Float64() * float64(w)
		cy := rng.Float64() * float64(ht)
		r := 20 + rng.Float64()*float64(ht)/5
		c := hsv(math.Mod(baseHue+rng.Float64()*180, 360), 0.6+rng.Float64()*0.4, 0.5+rng.Float64()*0.5)
		c.A = uint8(120 + rng.Intn(120))
		disc(img, cx, cy, r, c)
	}
	return img
}

// disc fills a circle built from four cubic arcs. Only the circle's bounding
// box is rasterized.
func disc(dst draw.Image, cx, cy, r float64, c color.RGBA) {
	box := image.Rect(int(cx-r)-1, int(cy-r)-1, int(cx+r)+2, int(cy+r)+2).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	k := float32(0.5523 * r)
	x, y := float32(cx)-float32(box.Min.X), float32(cy)-float32(box.Min.Y)
	rr := float32(r)

	z.MoveTo(x+rr, y)
	z.CubeTo(x+rr, y+k, x+k, y+rr, x, y+rr)
	z.CubeTo(x-k, y+rr, x-rr, y+k, x-rr, y)
	z.CubeTo(x-rr, y-k, x-k, y-rr, x, y-rr)
	z.CubeTo(x+k, y-rr, x+rr, y-k, x+rr, y)
	z.ClosePath()
	z.Draw(dst, box, image.NewUniform(premultiply(c)), image.Point{})
}

func premultiply(c color.RGBA) color.RGBA {
	a := uint16(c.A)
	return color.RGBA{
		R: uint8(uint16(c.R) * a / 255),
		G: uint8(uint16(c.G) * a / 255),
		B: uint8(uint16(c.B) * a / 255),
		A: c.A,
	}
}

func mix(a, b color.RGBA, t float64) color.RGBA {
	l := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: 255}
}

func hsv(h, s, v float64) color.RGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.RGBA{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
		A: 255,
	}
}
