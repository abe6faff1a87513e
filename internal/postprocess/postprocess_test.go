package postprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/noiseloop/internal/mask"
)

// maskedFrame fills a w×h frame with a hue pattern inside the circle and
// zeros outside, the way the renderer produces frames.
func maskedFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	m := mask.NewCircle(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.Keep(x, y) {
				continue
			}
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / w), G: 255, B: uint8(y * 255 / h), A: 255})
		}
	}
	return img
}

func assertAtomic(t *testing.T, img *image.RGBA, m mask.Mask) {
	t.Helper()
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := img.PixOffset(x, y)
			px := img.Pix[i : i+4]
			if m.Keep(x, y) {
				require.Equal(t, uint8(255), px[3], "kept pixel (%d,%d) must be opaque", x, y)
				continue
			}
			require.Equal(t, []byte{0, 0, 0, 0}, []byte(px), "excluded pixel (%d,%d) must be all zero", x, y)
		}
	}
}

func TestDownsampleSize(t *testing.T) {
	src := maskedFrame(64, 48)
	dst := Downsample(src, 32, 24)
	assert.Equal(t, image.Rect(0, 0, 32, 24), dst.Bounds())

	same := Downsample(src, 64, 48)
	assert.Same(t, src, same)
}

func TestSoftenNoopForZeroSigma(t *testing.T) {
	src := maskedFrame(16, 16)
	assert.Same(t, src, Soften(src, 0))

	out := Soften(src, 1.5)
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.NotSame(t, src, out)
}

func TestPipelineKeepsMaskAtomic(t *testing.T) {
	tests := []struct {
		name  string
		scale int
		sigma float64
	}{
		{"downsample only", 2, 0},
		{"soften only", 1, 2},
		{"both", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const w, h = 40, 30
			src := maskedFrame(w*tt.scale, h*tt.scale)
			m := mask.NewCircle(w, h)
			p := Pipeline{Width: w, Height: h, Sigma: tt.sigma, Mask: m}

			require.True(t, p.Active(src.Bounds().Dx(), src.Bounds().Dy()))
			out := p.Run(src)
			require.Equal(t, image.Rect(0, 0, w, h), out.Bounds())
			assertAtomic(t, out, m)
		})
	}
}

func TestPipelineInactive(t *testing.T) {
	p := Pipeline{Width: 10, Height: 10}
	assert.False(t, p.Active(10, 10))
	assert.True(t, p.Active(20, 20))
}

func TestRemaskUnpremultiplies(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = 64, 0, 32, 128
	Remask(img, keepAll{})
	assert.Equal(t, []byte{128, 0, 64, 255}, img.Pix[:4])
}

type keepAll struct{}

func (keepAll) Keep(int, int) bool { return true }
