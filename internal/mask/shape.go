// Package mask decides which pixels of a frame are inside the silhouette.
package mask

import (
	"fmt"

	"github.com/MeKo-Tech/noiseloop/internal/config"
)

// Mask reports whether pixel (x, y) keeps its colour. Implementations are pure
// functions of position and fixed shape constants; they never depend on the
// frame index.
type Mask interface {
	Keep(x, y int) bool
}

// New returns the mask for shape on a w×h grid.
func New(shape config.Shape, w, h int) (Mask, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("mask size must be positive, got %dx%d", w, h)
	}
	switch shape {
	case config.ShapeCircle:
		return NewCircle(w, h), nil
	case config.ShapePiriform:
		return NewPiriform(w, h), nil
	default:
		return nil, fmt.Errorf("unsupported shape %s", shape)
	}
}

// Circle keeps the disc inscribed in the frame. All arithmetic is integer,
// with the centre at (W/2, H/2) rounded down.
type Circle struct {
	cx, cy int
	r2     int
}

func NewCircle(w, h int) *Circle {
	r := min(w, h) / 2
	return &Circle{cx: w / 2, cy: h / 2, r2: r * r}
}

func (c *Circle) Keep(x, y int) bool {
	dx := x - c.cx
	dy := y - c.cy
	return dx*dx+dy*dy < c.r2
}

// Piriform shape constants.
const (
	PiriformA       = 1.0
	PiriformB       = 2.5
	PiriformStretch = 1.3
)

// Piriform keeps the inside of the teardrop A⁴·y² = B²·x³·(2A − x), lying
// on its side with the blunt end to the right.
type Piriform struct {
	w, h float64
}

func NewPiriform(w, h int) *Piriform {
	return &Piriform{w: float64(w), h: float64(h)}
}

func (p *Piriform) Keep(x, y int) bool {
	px := float64(x) / p.w * 2
	py := (float64(y)/p.h - 0.5) * 2 * PiriformB * PiriformStretch
	return KeepNormalized(px, py)
}

// KeepNormalized evaluates the piriform inequality at curve coordinates.
// Points with px = 0 or px = 2A are always outside.
func KeepNormalized(px, py float64) bool {
	const a4 = PiriformA * PiriformA * PiriformA * PiriformA
	return a4*py*py < PiriformB*PiriformB*px*px*px*(2*PiriformA-px)
}

// Apply zeroes every pixel of an RGBA8 buffer that m excludes. All four
// channels go to zero together.
func Apply(buf []byte, w, h int, m Mask) {
	for y := 0; y < h; y++ {
		row := y * 4 * w
		for x := 0; x < w; x++ {
			if m.Keep(x, y) {
				continue
			}
			i := row + x*4
			clear(buf[i : i+4])
		}
	}
}
