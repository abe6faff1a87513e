package noise

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allFields(t *testing.T, seed int64) map[string]Field {
	t.Helper()
	fields := map[string]Field{}
	for _, name := range Algorithms {
		f, err := New(Config{Algorithm: name, Seed: seed, Octaves: 1})
		require.NoError(t, err)
		fields[name] = f

		fbm, err := New(Config{Algorithm: name, Seed: seed, Octaves: 6, Lacunarity: 2, Persistence: 0.5})
		require.NoError(t, err)
		fields[name+"_fbm"] = fbm
	}
	return fields
}

func TestFieldsAreDeterministic(t *testing.T) {
	a := allFields(t, 1337)
	b := allFields(t, 1337)

	points := [][4]float64{
		{0, 0, 0, 0},
		{0.25, 0.4, 0.02, 0},
		{3.7, -1.2, -0.02, 0.01},
		{10.5, 20.25, 0.3, -0.7},
	}

	for name, fa := range a {
		fb := b[name]
		for _, p := range points {
			va := fa.Sample4D(p[0], p[1], p[2], p[3])
			vb := fb.Sample4D(p[0], p[1], p[2], p[3])
			assert.Equal(t, va, vb, "%s not deterministic at %v", name, p)
		}
	}
}

func TestFieldsAreBoundedAndFinite(t *testing.T) {
	for name, f := range allFields(t, 7) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 2000; i++ {
				x := float64(i%50)*0.173 - 2
				y := float64(i/50)*0.211 - 3
				z := 0.05 * math.Cos(float64(i))
				w := 0.05 * math.Sin(float64(i))
				v := f.Sample4D(x, y, z, w)
				require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "non-finite sample at %d", i)
				require.LessOrEqual(t, math.Abs(v), 1.5, "sample %v out of range at %d", v, i)
			}
		})
	}
}

func TestFieldsAreContinuous(t *testing.T) {
	const eps = 1e-6
	for name, f := range allFields(t, 99) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				x := float64(i) * 0.037
				y := float64(i) * 0.051
				z := 0.02 * math.Cos(float64(i)*0.1)
				w := 0.02 * math.Sin(float64(i)*0.1)
				v0 := f.Sample4D(x, y, z, w)
				v1 := f.Sample4D(x+eps, y+eps, z+eps, w-eps)
				assert.InDelta(t, v0, v1, 1e-3, "discontinuity near (%v, %v, %v, %v)", x, y, z, w)
			}
		})
	}
}

func TestSeedsDiffer(t *testing.T) {
	for _, name := range Algorithms {
		a, err := New(Config{Algorithm: name, Seed: 1, Octaves: 1})
		require.NoError(t, err)
		b, err := New(Config{Algorithm: name, Seed: 2, Octaves: 1})
		require.NoError(t, err)

		different := 0
		for i := 0; i < 100; i++ {
			x, y := float64(i)*0.31+0.13, float64(i)*0.17+0.29
			if a.Sample4D(x, y, 0.01, 0.02) != b.Sample4D(x, y, 0.01, 0.02) {
				different++
			}
		}
		assert.Greater(t, different, 50, "%s: different seeds should give mostly different samples", name)
	}
}

func TestFBMSingleOctaveMatchesBase(t *testing.T) {
	base := NewSimplex(5)
	fbm := NewFBM(base, 1, 2, 0.5)
	for i := 0; i < 50; i++ {
		x, y := float64(i)*0.1, float64(i)*0.07
		assert.Equal(t, base.Sample4D(x, y, 0.1, 0.2), fbm.Sample4D(x, y, 0.1, 0.2))
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Algorithm: "worley", Octaves: 1})
	assert.Error(t, err)

	_, err = New(Config{Algorithm: "simplex", Octaves: 0})
	assert.Error(t, err)
}

func TestNewIsCaseInsensitive(t *testing.T) {
	f, err := New(Config{Algorithm: "OpenSimplex", Octaves: 1})
	require.NoError(t, err)
	assert.IsType(t, &OpenSimplex{}, f)

	f, err = New(Config{Algorithm: "perlin", Octaves: 3, Lacunarity: 2, Persistence: 0.5})
	require.NoError(t, err)
	assert.IsType(t, &FBM{}, f)
}

func TestPerlinHandlesNegativeZ(t *testing.T) {
	p := NewPerlin(3)
	// Straddle z = 0; the sample must move smoothly across it.
	below := p.Sample4D(0.3, 0.4, -1e-7, 0)
	above := p.Sample4D(0.3, 0.4, 1e-7, 0)
	assert.InDelta(t, below, above, 1e-4)
}
