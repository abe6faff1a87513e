// Package postprocess applies optional whole-frame filters after sampling.
//
// Every filter here mixes neighbouring pixels, which blurs the silhouette edge
// into partially transparent pixels. Remask restores the hard edge, so the
// output still has exactly two kinds of pixel: fully coloured or all zero.
package postprocess

import (
	"image"

	"github.com/disintegration/gift"
	"golang.org/x/image/draw"

	"github.com/MeKo-Tech/noiseloop/internal/mask"
)

// Downsample scales src to w×h with a Catmull-Rom kernel. src holds only
// opaque or fully transparent pixels, so it is already premultiplied.
func Downsample(src *image.RGBA, w, h int) *image.RGBA {
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Soften applies a Gaussian blur with the given sigma. sigma <= 0 returns img
// unchanged.
func Soften(img *image.RGBA, sigma float64) *image.RGBA {
	if sigma <= 0 {
		return img
	}
	g := gift.New(gift.GaussianBlur(float32(sigma)))
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// Remask zeroes pixels outside m and makes every kept pixel opaque,
// un-premultiplying its colour. A kept pixel with no coverage at all becomes
// opaque black.
func Remask(img *image.RGBA, m mask.Mask) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			px := img.Pix[i : i+4 : i+4]
			if !m.Keep(x-b.Min.X, y-b.Min.Y) {
				clear(px)
				continue
			}
			a := int(px[3])
			if a == 0 {
				px[0], px[1], px[2] = 0, 0, 0
			} else if a < 255 {
				px[0] = unpremultiply(px[0], a)
				px[1] = unpremultiply(px[1], a)
				px[2] = unpremultiply(px[2], a)
			}
			px[3] = 255
		}
	}
}

func unpremultiply(c uint8, a int) uint8 {
	v := (int(c)*255 + a/2) / a
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Pipeline is the post-sampling chain configured for a render.
type Pipeline struct {
	Width, Height int
	Sigma         float64
	Mask          mask.Mask
}

// Active reports whether the pipeline changes anything for a frame sampled at
// the given size.
func (p Pipeline) Active(srcW, srcH int) bool {
	return p.Sigma > 0 || srcW != p.Width || srcH != p.Height
}

// Run downsamples, softens and remasks src. The result always has the
// pipeline's output size.
func (p Pipeline) Run(src *image.RGBA) *image.RGBA {
	img := Downsample(src, p.Width, p.Height)
	img = Soften(img, p.Sigma)
	Remask(img, p.Mask)
	return img
}
