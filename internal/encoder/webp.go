package encoder

import (
	"fmt"
	"image"

	"github.com/HugoSmits86/nativewebp"

	"github.com/MeKo-Tech/noiseloop/internal/config"
)

// webpDispose clears the canvas to the transparent background after each
// frame, so masked pixels never show the previous frame.
const webpDispose = 1

// WebP encodes frames as a lossless animated WebP with alpha. The container
// library needs every frame at once, so frames are held until Finish.
type WebP struct {
	canvas
	path   string
	opts   Options
	images []image.Image
	file   *AtomicFile
}

// NewWebP returns a WebP encoder writing to path.
func NewWebP(path string, opts Options) *WebP {
	return &WebP{path: path, opts: opts}
}

func (w *WebP) Begin(width, height int, repeat config.Repeat) error {
	if err := w.begin(width, height, repeat); err != nil {
		return err
	}
	f, err := CreateAtomic(w.path)
	if err != nil {
		w.started = false
		return err
	}
	w.file = f
	return nil
}

func (w *WebP) WriteFrame(buf []byte) error {
	if err := w.check(buf); err != nil {
		return err
	}
	// Pixels are either opaque or all zero, so RGBA and NRGBA agree.
	w.images = append(w.images, &image.NRGBA{
		Pix:    buf,
		Stride: w.width * 4,
		Rect:   image.Rect(0, 0, w.width, w.height),
	})
	w.frames++
	return nil
}

func (w *WebP) Finish() error {
	if !w.started {
		return ErrNotStarted
	}
	if w.frames == 0 {
		w.Abort()
		return ErrNoFrames
	}
	w.started = false

	n := len(w.images)
	ani := &nativewebp.Animation{
		Images:    w.images,
		Durations: make([]uint, n),
		Disposals: make([]uint, n),
		LoopCount: w.loopCount(),
	}
	ms := uint(w.opts.delay().Milliseconds())
	for i := range n {
		ani.Durations[i] = ms
		ani.Disposals[i] = webpDispose
	}

	err := nativewebp.EncodeAll(w.file, ani, nil)
	w.images = nil
	if err != nil {
		w.file.Abort()
		return fmt.Errorf("failed to encode webp: %w", err)
	}
	return w.file.Commit()
}

// loopCount maps the repeat policy onto the ANIM chunk, where 0 loops
// forever and n plays n times.
func (w *WebP) loopCount() uint16 {
	if w.repeat == config.RepeatOnce {
		return 1
	}
	return 0
}

func (w *WebP) Abort() error {
	w.started = false
	w.images = nil
	if w.file == nil {
		return nil
	}
	return w.file.Abort()
}
