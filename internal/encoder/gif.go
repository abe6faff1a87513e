package encoder

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"github.com/MeKo-Tech/noiseloop/internal/colormap"
	"github.com/MeKo-Tech/noiseloop/internal/config"
)

// gifHues is the number of opaque palette entries. Index 0 is transparent.
const gifHues = 255

// GIF encodes frames as an animated GIF. Frames are quantized onto a hue
// wheel palette as they arrive, so only one byte per pixel is held until
// Finish.
type GIF struct {
	canvas
	path    string
	opts    Options
	palette color.Palette
	opaque  color.Palette
	out     *gif.GIF
	file    *AtomicFile
}

// NewGIF returns a GIF encoder writing to path.
func NewGIF(path string, opts Options) *GIF {
	p := colormap.Palette(gifHues)
	return &GIF{
		path:    path,
		opts:    opts,
		palette: p,
		opaque:  p[1:],
	}
}

func (g *GIF) Begin(width, height int, repeat config.Repeat) error {
	if err := g.begin(width, height, repeat); err != nil {
		return err
	}
	f, err := CreateAtomic(g.path)
	if err != nil {
		g.started = false
		return err
	}
	g.file = f

	loop := 0
	if repeat == config.RepeatOnce {
		loop = -1
	}
	g.out = &gif.GIF{
		LoopCount: loop,
		Config: image.Config{
			ColorModel: g.palette,
			Width:      width,
			Height:     height,
		},
		BackgroundIndex: 0,
	}
	return nil
}

func (g *GIF) WriteFrame(buf []byte) error {
	if err := g.check(buf); err != nil {
		return err
	}

	src := &image.RGBA{
		Pix:    buf,
		Stride: g.width * 4,
		Rect:   image.Rect(0, 0, g.width, g.height),
	}
	dst := g.quantize(src)

	delay := int(g.opts.delay().Milliseconds() / 10)
	g.out.Image = append(g.out.Image, dst)
	g.out.Delay = append(g.out.Delay, delay)
	g.out.Disposal = append(g.out.Disposal, gif.DisposalBackground)
	g.frames++
	return nil
}

// quantize maps src onto the palette. Masked pixels always land on the
// transparent index and kept pixels never do, even when dithering spreads
// error across the silhouette edge.
func (g *GIF) quantize(src *image.RGBA) *image.Paletted {
	dst := image.NewPaletted(src.Rect, g.palette)
	if g.opts.Dither {
		draw.FloydSteinberg.Draw(dst, dst.Rect, src, image.Point{})
	} else {
		draw.Draw(dst, dst.Rect, src, image.Point{}, draw.Src)
	}

	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			i := src.PixOffset(x, y)
			j := dst.PixOffset(x, y)
			if src.Pix[i+3] == 0 {
				dst.Pix[j] = 0
				continue
			}
			if dst.Pix[j] == 0 {
				c := color.RGBA{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2], A: 255}
				dst.Pix[j] = uint8(g.opaque.Index(c) + 1)
			}
		}
	}
	return dst
}

func (g *GIF) Finish() error {
	if !g.started {
		return ErrNotStarted
	}
	if g.frames == 0 {
		g.Abort()
		return ErrNoFrames
	}
	g.started = false

	if err := gif.EncodeAll(g.file, g.out); err != nil {
		g.file.Abort()
		return fmt.Errorf("failed to encode gif: %w", err)
	}
	g.out = nil
	return g.file.Commit()
}

func (g *GIF) Abort() error {
	g.started = false
	g.out = nil
	if g.file == nil {
		return nil
	}
	return g.file.Abort()
}
