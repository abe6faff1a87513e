package loop

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/noiseloop/internal/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingField records how often it was sampled and with which inputs.
type countingField struct {
	calls [][4]float64
}

func (c *countingField) Sample4D(x, y, z, w float64) float64 {
	c.calls = append(c.calls, [4]float64{x, y, z, w})
	return 0.25
}

func newTestSampler(t *testing.T, geo Geometry) *Sampler {
	t.Helper()
	field, err := noise.New(noise.Config{Algorithm: "simplex", Seed: 1337, Octaves: 4, Lacunarity: 2, Persistence: 0.5})
	require.NoError(t, err)
	s, err := NewSampler(field, geo, DefaultWarp)
	require.NoError(t, err)
	return s
}

func TestCirclePointWrapsExactly(t *testing.T) {
	for _, frames := range []int{1, 2, 3, 7, 64, 128, 1000} {
		s := newTestSampler(t, Geometry{Radius: 0.05, Scale: 0.5, Width: 8, Height: 8, Frames: frames})

		z0, w0 := s.CirclePoint(0)
		zN, wN := s.CirclePoint(frames)
		assert.Equal(t, z0, zN, "z must match for N=%d", frames)
		assert.Equal(t, w0, wN, "w must match for N=%d", frames)

		zNeg, wNeg := s.CirclePoint(-1)
		zLast, wLast := s.CirclePoint(frames - 1)
		assert.Equal(t, zLast, zNeg)
		assert.Equal(t, wLast, wNeg)
	}
}

func TestCirclePointStaysOnCircle(t *testing.T) {
	s := newTestSampler(t, Geometry{Radius: 0.05, Scale: 0.5, Width: 8, Height: 8, Frames: 16})
	for f := 0; f < 16; f++ {
		z, w := s.CirclePoint(f)
		assert.InDelta(t, 0.05, math.Hypot(z, w), 1e-12)
	}
	z, w := s.CirclePoint(4)
	assert.InDelta(t, 0, z, 1e-12)
	assert.InDelta(t, 0.05, w, 1e-12)
}

func TestWrappedFrameIsBitIdentical(t *testing.T) {
	geo := Geometry{Radius: 0.05, Scale: 0.5, Width: 32, Height: 32, Frames: 128}
	s := newTestSampler(t, geo)

	for y := 0; y < geo.Height; y += 3 {
		for x := 0; x < geo.Width; x += 3 {
			a := s.Sample(x, y, 0)
			b := s.Sample(x, y, geo.Frames)
			require.Equal(t, math.Float64bits(a), math.Float64bits(b), "pixel (%d,%d)", x, y)
		}
	}
}

func TestSampleIsDeterministic(t *testing.T) {
	geo := Geometry{Radius: 0.02, Scale: 0.5, Width: 16, Height: 16, Frames: 8}
	a := newTestSampler(t, geo)
	b := newTestSampler(t, geo)

	for f := 0; f < geo.Frames; f++ {
		for i := 0; i < 16; i++ {
			assert.Equal(t, a.Sample(i, 15-i, f), a.Sample(i, 15-i, f))
			assert.Equal(t, a.Sample(i, 15-i, f), b.Sample(i, 15-i, f))
		}
	}
}

func TestFrameSamplerMatchesSample(t *testing.T) {
	geo := Geometry{Radius: 0.05, Scale: 0.5, Width: 16, Height: 16, Frames: 12}
	s := newTestSampler(t, geo)
	for f := 0; f < geo.Frames; f++ {
		fs := s.Frame(f)
		for i := 0; i < 16; i++ {
			assert.Equal(t, s.Sample(i, i, f), fs.Sample(i, i))
		}
	}
}

func TestFramesActuallyAnimate(t *testing.T) {
	geo := Geometry{Radius: 0.5, Scale: 0.5, Width: 16, Height: 16, Frames: 8}
	s := newTestSampler(t, geo)

	changed := 0
	for i := 0; i < 16; i++ {
		if s.Sample(i, i, 0) != s.Sample(i, i, 4) {
			changed++
		}
	}
	assert.Greater(t, changed, 8)
}

func TestNormalize(t *testing.T) {
	s := newTestSampler(t, Geometry{Radius: 0.02, Scale: 0.5, Width: 256, Height: 128, Frames: 4})
	nx, ny := s.Normalize(128, 64)
	assert.InDelta(t, 0.25, nx, 1e-12)
	assert.InDelta(t, 0.25, ny, 1e-12)

	nx, ny = s.Normalize(0, 0)
	assert.Zero(t, nx)
	assert.Zero(t, ny)
}

func TestWarpCascadeInputs(t *testing.T) {
	field := &countingField{}
	s, err := NewSampler(field, Geometry{Radius: 1, Scale: 1, Width: 10, Height: 10, Frames: 4}, DefaultWarp)
	require.NoError(t, err)

	s.Warped(0.1, 0.2, 0.3, 0.4)
	require.Len(t, field.calls, 5)

	// The two first-pass samples share their inputs.
	assert.Equal(t, field.calls[0], field.calls[1])
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 0.4}, field.calls[0])

	// Second pass: offset by 4*q plus the per-axis constants.
	assert.InDelta(t, 0.1+1.0+1.7, field.calls[2][0], 1e-12)
	assert.InDelta(t, 0.2+1.0+9.2, field.calls[2][1], 1e-12)
	assert.InDelta(t, 0.1+1.0+8.3, field.calls[3][0], 1e-12)
	assert.InDelta(t, 0.2+1.0+2.8, field.calls[3][1], 1e-12)

	// Final pass uses r without constants.
	assert.InDelta(t, 1.1, field.calls[4][0], 1e-12)
	assert.InDelta(t, 1.2, field.calls[4][1], 1e-12)

	// z, w never change within the cascade.
	for _, c := range field.calls {
		assert.Equal(t, 0.3, c[2])
		assert.Equal(t, 0.4, c[3])
	}
}

func TestNewSamplerValidation(t *testing.T) {
	field := noise.NewSimplex(1)
	_, err := NewSampler(nil, Geometry{Radius: 1, Scale: 1, Width: 1, Height: 1, Frames: 1}, DefaultWarp)
	assert.Error(t, err)

	_, err = NewSampler(field, Geometry{Radius: 1, Scale: 1, Width: 0, Height: 1, Frames: 1}, DefaultWarp)
	assert.Error(t, err)

	same := DefaultWarp
	same.C2X, same.C2Y = same.C1X, same.C1Y
	_, err = NewSampler(field, Geometry{Radius: 1, Scale: 1, Width: 1, Height: 1, Frames: 1}, same)
	assert.Error(t, err)
}
