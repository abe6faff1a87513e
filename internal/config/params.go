// Package config holds the immutable parameters of a noise loop render.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidParams is wrapped by every validation failure.
var ErrInvalidParams = errors.New("invalid parameters")

// Shape selects the silhouette the animation is clipped to.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapePiriform
)

func (s Shape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapePiriform:
		return "piriform"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParseShape accepts "circle" or "piriform" (case-insensitive).
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "circle":
		return ShapeCircle, nil
	case "piriform", "teardrop":
		return ShapePiriform, nil
	}
	return 0, fmt.Errorf("%w: unknown shape %q (want circle or piriform)", ErrInvalidParams, s)
}

// Repeat is the playback policy written into the container.
type Repeat int

const (
	RepeatOnce Repeat = iota
	RepeatInfinite
)

func (r Repeat) String() string {
	switch r {
	case RepeatOnce:
		return "once"
	case RepeatInfinite:
		return "infinite"
	default:
		return fmt.Sprintf("repeat(%d)", int(r))
	}
}

// ParseRepeat accepts "once" or "infinite" (case-insensitive).
func ParseRepeat(s string) (Repeat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "once":
		return RepeatOnce, nil
	case "infinite", "loop", "forever":
		return RepeatInfinite, nil
	}
	return 0, fmt.Errorf("%w: unknown repeat policy %q (want once or infinite)", ErrInvalidParams, s)
}

// Noise configures the coherent noise field the sampler draws from.
type Noise struct {
	Algorithm   string
	Seed        int64
	Octaves     int
	Lacunarity  float64
	Persistence float64
}

// Params are the animation parameters. A Params value is created once per run
// and passed by value; nothing mutates it after Validate.
type Params struct {
	Noise       Noise
	Radius      float64
	Scale       float64
	Soften      float64
	Width       int
	Height      int
	Frames      int
	Supersample int
	Shape       Shape
	Repeat      Repeat
}

// Defaults mirrors the constants the generator has always shipped with.
func Defaults() Params {
	return Params{
		Radius:      0.02,
		Width:       512,
		Height:      512,
		Frames:      128,
		Scale:       0.5,
		Shape:       ShapeCircle,
		Repeat:      RepeatInfinite,
		Supersample: 1,
		Noise: Noise{
			Algorithm:   "simplex",
			Octaves:     6,
			Lacunarity:  2.0,
			Persistence: 0.5,
		},
	}
}

// Validate rejects parameters that would make the render meaningless. It must
// be called before any computation starts.
func (p Params) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive, got %dx%d", ErrInvalidParams, p.Width, p.Height)
	}
	if p.Frames <= 0 {
		return fmt.Errorf("%w: frame count must be positive, got %d", ErrInvalidParams, p.Frames)
	}
	if !finite(p.Radius) || p.Radius <= 0 {
		return fmt.Errorf("%w: radius must be a positive finite number, got %v", ErrInvalidParams, p.Radius)
	}
	if !finite(p.Scale) || p.Scale <= 0 {
		return fmt.Errorf("%w: scale must be a positive finite number, got %v", ErrInvalidParams, p.Scale)
	}
	if p.Supersample <= 0 {
		return fmt.Errorf("%w: supersample must be >= 1, got %d", ErrInvalidParams, p.Supersample)
	}
	if !finite(p.Soften) || p.Soften < 0 {
		return fmt.Errorf("%w: soften sigma must be >= 0, got %v", ErrInvalidParams, p.Soften)
	}
	if p.Shape != ShapeCircle && p.Shape != ShapePiriform {
		return fmt.Errorf("%w: unsupported shape %s", ErrInvalidParams, p.Shape)
	}
	if p.Repeat != RepeatOnce && p.Repeat != RepeatInfinite {
		return fmt.Errorf("%w: unsupported repeat policy %s", ErrInvalidParams, p.Repeat)
	}
	if p.Noise.Algorithm == "" {
		return fmt.Errorf("%w: noise algorithm is required", ErrInvalidParams)
	}
	if p.Noise.Octaves <= 0 {
		return fmt.Errorf("%w: noise octaves must be positive, got %d", ErrInvalidParams, p.Noise.Octaves)
	}
	if p.Noise.Octaves > 1 {
		if !finite(p.Noise.Lacunarity) || p.Noise.Lacunarity <= 0 {
			return fmt.Errorf("%w: lacunarity must be a positive finite number, got %v", ErrInvalidParams, p.Noise.Lacunarity)
		}
		if !finite(p.Noise.Persistence) || p.Noise.Persistence <= 0 {
			return fmt.Errorf("%w: persistence must be a positive finite number, got %v", ErrInvalidParams, p.Noise.Persistence)
		}
	}
	return nil
}

// FrameBytes is the exact byte length of one RGBA8 output frame.
func (p Params) FrameBytes() int {
	return p.Width * p.Height * 4
}

// Fingerprint identifies every parameter that influences pixel values. Two
// Params with equal fingerprints produce byte-identical frames. The repeat
// policy only affects the container and is not part of it.
func (p Params) Fingerprint() string {
	return fmt.Sprintf("v1|%s|seed=%d|oct=%d|lac=%g|per=%g|r=%g|s=%g|%dx%d|n=%d|%s|ss=%d|soft=%g",
		strings.ToLower(p.Noise.Algorithm), p.Noise.Seed, p.Noise.Octaves, p.Noise.Lacunarity, p.Noise.Persistence,
		p.Radius, p.Scale, p.Width, p.Height, p.Frames, p.Shape, p.Supersample, p.Soften)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
