// Package noise provides deterministic 4D coherent noise fields.
package noise

import (
	"fmt"
	"math"
	"strings"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Field is a deterministic, continuous 4D noise function with output bounded
// to roughly [-1, 1]. Implementations must be safe for concurrent use.
type Field interface {
	Sample4D(x, y, z, w float64) float64
}

// Config selects and parameterises a Field.
type Config struct {
	Algorithm   string
	Seed        int64
	Octaves     int
	Lacunarity  float64
	Persistence float64
}

// Algorithms lists the accepted Config.Algorithm values.
var Algorithms = []string{"simplex", "opensimplex", "perlin"}

// New builds the base field named by cfg.Algorithm, wrapped in FBM when more
// than one octave is requested.
func New(cfg Config) (Field, error) {
	if cfg.Octaves <= 0 {
		return nil, fmt.Errorf("octaves must be positive, got %d", cfg.Octaves)
	}

	var base Field
	switch strings.ToLower(cfg.Algorithm) {
	case "simplex":
		base = NewSimplex(cfg.Seed)
	case "opensimplex":
		base = NewOpenSimplex(cfg.Seed)
	case "perlin":
		base = NewPerlin(cfg.Seed)
	default:
		return nil, fmt.Errorf("unknown noise algorithm %q (want one of %s)", cfg.Algorithm, strings.Join(Algorithms, ", "))
	}

	if cfg.Octaves == 1 {
		return base, nil
	}
	return NewFBM(base, cfg.Octaves, cfg.Lacunarity, cfg.Persistence), nil
}

// FBM sums octaves of a base field at increasing frequency and decreasing
// amplitude. The sum is divided by the total amplitude so the output stays in
// the base field's range.
type FBM struct {
	base        Field
	octaves     int
	lacunarity  float64
	persistence float64
	norm        float64
}

// NewFBM wraps base. octaves < 1 is treated as 1.
func NewFBM(base Field, octaves int, lacunarity, persistence float64) *FBM {
	if octaves < 1 {
		octaves = 1
	}
	norm := 0.0
	amp := 1.0
	for i := 0; i < octaves; i++ {
		norm += amp
		amp *= persistence
	}
	return &FBM{
		base:        base,
		octaves:     octaves,
		lacunarity:  lacunarity,
		persistence: persistence,
		norm:        norm,
	}
}

func (f *FBM) Sample4D(x, y, z, w float64) float64 {
	sum := 0.0
	amp := 1.0
	freq := 1.0
	for i := 0; i < f.octaves; i++ {
		sum += amp * f.base.Sample4D(x*freq, y*freq, z*freq, w*freq)
		amp *= f.persistence
		freq *= f.lacunarity
	}
	return sum / f.norm
}

// OpenSimplex adapts opensimplex-go's Eval4.
type OpenSimplex struct {
	noise opensimplex.Noise
}

func NewOpenSimplex(seed int64) *OpenSimplex {
	return &OpenSimplex{noise: opensimplex.New(seed)}
}

func (o *OpenSimplex) Sample4D(x, y, z, w float64) float64 {
	return o.noise.Eval4(x, y, z, w)
}

// projection spreads the fourth axis evenly over the three Perlin axes.
var projection = 1 / math.Sqrt(3)

// perlinZOffset keeps the third axis positive: go-perlin falls back to 2D
// noise for z < 0, which would tear the field. It is a multiple of the
// 256-cell lattice period, so the shift does not change the pattern.
const perlinZOffset = 256 * 256

// Perlin evaluates go-perlin's 3D noise on a fixed linear projection of the
// 4D point. z and w stay independent after projection, so a circle in the
// (z, w) plane maps to an ellipse rather than collapsing to a line.
type Perlin struct {
	noise *perlin.Perlin
}

func NewPerlin(seed int64) *Perlin {
	// One internal octave; FBM handles layering.
	return &Perlin{noise: perlin.NewPerlin(2, 2, 1, seed)}
}

func (p *Perlin) Sample4D(x, y, z, w float64) float64 {
	k := w * projection
	return p.noise.Noise3D(x+k, y+k, z+k+perlinZOffset)
}
