// Package colormap maps warp scalars onto a fully saturated hue ramp.
package colormap

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// HueScale is how many degrees of hue one unit of warp value moves.
const HueScale = 255.0

// HueRamp converts a scalar into a pure hue with saturation and value pinned
// to 1. The zero value is ready to use.
type HueRamp struct{}

// Hue wraps value·HueScale into [0, 360). Out-of-range and negative values
// cycle around the wheel instead of being passed through.
func (HueRamp) Hue(value float64) float64 {
	h := math.Mod(value*HueScale, 360)
	if h < 0 {
		h += 360
	}
	// -0.0 and rounding at the upper edge both land on 360 after the shift.
	if h >= 360 {
		h = 0
	}
	return h
}

// Map returns the RGB triple for value. Callers must pass a finite value;
// the renderer rejects NaN and Inf before colouring.
func (r HueRamp) Map(value float64) (red, green, blue uint8) {
	return colorful.Hsv(r.Hue(value), 1, 1).Clamped().RGB255()
}

// Palette returns a hue wheel of n opaque colours, evenly spaced, preceded by
// a fully transparent entry at index 0.
func Palette(n int) color.Palette {
	if n < 1 {
		n = 1
	}
	p := make(color.Palette, 0, n+1)
	p = append(p, color.RGBA{})
	for i := 0; i < n; i++ {
		r, g, b := colorful.Hsv(float64(i)*360/float64(n), 1, 1).Clamped().RGB255()
		p = append(p, color.RGBA{R: r, G: g, B: b, A: 255})
	}
	return p
}
