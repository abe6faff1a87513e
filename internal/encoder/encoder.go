// Package encoder writes rendered frames into looping animation containers.
//
// Every encoder receives frames strictly in order from a single goroutine and
// writes through an AtomicFile, so an aborted or failed run never leaves a
// partial container at the destination path.
package encoder

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/noiseloop/internal/config"
)

var (
	// ErrFrameSize is returned when a frame buffer is not width·height·4 bytes.
	ErrFrameSize = errors.New("frame buffer size mismatch")
	// ErrNotStarted is returned when frames arrive before Begin or after Finish.
	ErrNotStarted = errors.New("encoder not started")
	// ErrNoFrames is returned by Finish when no frame was written.
	ErrNoFrames = errors.New("no frames written")
)

// LoopEncoder consumes RGBA8 frames in order and produces one container.
type LoopEncoder interface {
	// Begin declares the canvas size and repeat policy. It must be called once
	// before any frame.
	Begin(width, height int, repeat config.Repeat) error
	// WriteFrame appends one frame. buf is row-major RGBA with pixel (x,y) at
	// offset x·4 + y·4·width; the encoder takes ownership of it.
	WriteFrame(buf []byte) error
	// Finish completes the container and moves it into place.
	Finish() error
	// Abort discards everything written so far. It is safe to call after
	// Finish or more than once.
	Abort() error
}

// DefaultDelay is the per-frame display time, 25 frames per second.
const DefaultDelay = 40 * time.Millisecond

// Options configure the container encoders.
type Options struct {
	// Delay is the display time of each frame. Zero means DefaultDelay.
	Delay time.Duration
	// Dither enables Floyd-Steinberg dithering when quantizing GIF frames.
	Dither bool
}

func (o Options) delay() time.Duration {
	if o.Delay <= 0 {
		return DefaultDelay
	}
	return o.Delay
}

// Formats lists the container formats ForFormat understands.
var Formats = []string{"gif", "webp"}

// ForFormat returns an encoder for the named format writing to path.
func ForFormat(format, path string, opts Options) (LoopEncoder, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "gif":
		return NewGIF(path, opts), nil
	case "webp":
		return NewWebP(path, opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// FormatFromPath derives the container format from a file extension.
func FormatFromPath(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// canvas holds the state shared by the encoders between Begin and Finish.
type canvas struct {
	width, height int
	repeat        config.Repeat
	started       bool
	frames        int
}

func (c *canvas) begin(width, height int, repeat config.Repeat) error {
	if c.started {
		return errors.New("encoder already started")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", width, height)
	}
	if repeat != config.RepeatOnce && repeat != config.RepeatInfinite {
		return fmt.Errorf("unknown repeat policy %v", repeat)
	}
	c.width, c.height, c.repeat = width, height, repeat
	c.started = true
	return nil
}

func (c *canvas) check(buf []byte) error {
	if !c.started {
		return ErrNotStarted
	}
	if want := c.width * c.height * 4; len(buf) != want {
		return fmt.Errorf("%w: frame %d has %d bytes, want %d", ErrFrameSize, c.frames, len(buf), want)
	}
	return nil
}
