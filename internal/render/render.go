// Package render drives a full loop: it samples every frame, colours and
// masks it, and streams the frames in order into a LoopEncoder.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/noiseloop/internal/colormap"
	"github.com/MeKo-Tech/noiseloop/internal/config"
	"github.com/MeKo-Tech/noiseloop/internal/encoder"
	"github.com/MeKo-Tech/noiseloop/internal/loop"
	"github.com/MeKo-Tech/noiseloop/internal/mask"
	"github.com/MeKo-Tech/noiseloop/internal/noise"
	"github.com/MeKo-Tech/noiseloop/internal/postprocess"
	"github.com/MeKo-Tech/noiseloop/internal/worker"
)

// ErrNumericDefect reports a NaN or infinite sample. Such values are never
// clamped; the frame and the whole render fail instead.
var ErrNumericDefect = errors.New("numeric defect in noise sample")

// FrameCache stores finished frames by parameter fingerprint and frame index.
// *framestore.Store implements it.
type FrameCache interface {
	Get(fingerprint string, index, wantLen int) ([]byte, bool, error)
	Put(fingerprint string, index int, data []byte) error
	Flush() error
}

// Options configure a Renderer beyond its animation parameters.
type Options struct {
	// Workers is the number of frames computed concurrently. Defaults to 1.
	Workers int
	// OnProgress is called after each frame reaches the encoder.
	OnProgress worker.ProgressFunc
	// Cache, when set, serves previously rendered frames and stores new ones.
	Cache FrameCache
	// Field replaces the noise field built from the parameters.
	Field  noise.Field
	Logger *slog.Logger
}

// Renderer holds everything that stays fixed for a render. All of it is
// read-only after New, so frames can be computed from any goroutine.
type Renderer struct {
	params  config.Params
	opts    Options
	sampler *loop.Sampler
	ramp    colormap.HueRamp
	mask    mask.Mask // at sampling resolution
	post    postprocess.Pipeline
	// sampling resolution, W·s × H·s
	innerW, innerH int
	fingerprint    string

	cacheHits atomic.Int64
}

// New validates params and builds the field, sampler and mask. Nothing is
// sampled here; an invalid configuration fails before any computation.
func New(params config.Params, opts Options) (*Renderer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	field := opts.Field
	if field == nil {
		var err error
		field, err = noise.New(noise.Config{
			Algorithm:   params.Noise.Algorithm,
			Seed:        params.Noise.Seed,
			Octaves:     params.Noise.Octaves,
			Lacunarity:  params.Noise.Lacunarity,
			Persistence: params.Noise.Persistence,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidParams, err)
		}
	}

	innerW := params.Width * params.Supersample
	innerH := params.Height * params.Supersample

	sampler, err := loop.NewSampler(field, loop.Geometry{
		Radius: params.Radius,
		Scale:  params.Scale,
		Width:  innerW,
		Height: innerH,
		Frames: params.Frames,
	}, loop.DefaultWarp)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	innerMask, err := mask.New(params.Shape, innerW, innerH)
	if err != nil {
		return nil, fmt.Errorf("failed to create mask: %w", err)
	}
	outMask := innerMask
	if params.Supersample > 1 {
		if outMask, err = mask.New(params.Shape, params.Width, params.Height); err != nil {
			return nil, fmt.Errorf("failed to create mask: %w", err)
		}
	}

	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	return &Renderer{
		params:  params,
		opts:    opts,
		sampler: sampler,
		mask:    innerMask,
		post: postprocess.Pipeline{
			Width:  params.Width,
			Height: params.Height,
			Sigma:  params.Soften,
			Mask:   outMask,
		},
		innerW:      innerW,
		innerH:      innerH,
		fingerprint: params.Fingerprint(),
	}, nil
}

// Params returns the parameters the renderer was built with.
func (r *Renderer) Params() config.Params { return r.params }

// RenderFrame computes frame t. Any t is accepted and reduced modulo the
// frame count, so RenderFrame(ctx, N) equals RenderFrame(ctx, 0). The result
// is W·H·4 bytes of RGBA with pixel (x,y) at offset x·4 + y·4·W; kept pixels
// are opaque and masked pixels are all zero.
func (r *Renderer) RenderFrame(ctx context.Context, t int) ([]byte, error) {
	idx := r.sampler.FrameIndex(t)
	fs := r.sampler.Frame(idx)
	w, h := r.innerW, r.innerH
	buf := make([]byte, w*h*4)

	for y := 0; y < h; y++ {
		if y%32 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := y * 4 * w
		for x := 0; x < w; x++ {
			v := fs.Sample(x, y)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: frame %d pixel (%d,%d) sampled %v", ErrNumericDefect, idx, x, y, v)
			}
			i := row + x*4
			buf[i], buf[i+1], buf[i+2] = r.ramp.Map(v)
			buf[i+3] = 255
		}
	}
	mask.Apply(buf, w, h, r.mask)

	if !r.post.Active(w, h) {
		return buf, nil
	}
	out := r.post.Run(&image.RGBA{
		Pix:    buf,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	})
	return out.Pix, nil
}

// frame serves frame t from the cache when possible and computes it
// otherwise. Cache failures are logged and never fail the render.
func (r *Renderer) frame(ctx context.Context, t int) ([]byte, error) {
	cache := r.opts.Cache
	if cache != nil {
		data, ok, err := cache.Get(r.fingerprint, t, r.params.FrameBytes())
		if err != nil {
			r.log().Warn("Frame cache read failed", "frame", t, "error", err)
		} else if ok {
			r.cacheHits.Add(1)
			return data, nil
		}
	}

	data, err := r.RenderFrame(ctx, t)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Put(r.fingerprint, t, data); err != nil {
			r.log().Warn("Frame cache write failed", "frame", t, "error", err)
		}
	}
	return data, nil
}

// Render computes frames [0, N) and writes them in order to enc. On success
// the container is finished; on any error, including cancellation, it is
// aborted so no partial output remains.
func (r *Renderer) Render(ctx context.Context, enc encoder.LoopEncoder) (err error) {
	p := r.params
	if err := enc.Begin(p.Width, p.Height, p.Repeat); err != nil {
		return fmt.Errorf("failed to start encoder: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if abortErr := enc.Abort(); abortErr != nil {
			r.log().Warn("Failed to discard partial output", "error", abortErr)
		}
	}()

	r.log().Info("Rendering loop",
		"size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"frames", p.Frames,
		"noise", p.Noise.Algorithm,
		"shape", p.Shape.String(),
		"workers", r.opts.Workers)

	pool := worker.New(worker.Config{
		Workers:    r.opts.Workers,
		Generator:  worker.GeneratorFunc(r.frame),
		OnProgress: r.opts.OnProgress,
	})

	start := time.Now()
	err = pool.Run(ctx, p.Frames, func(frame int, data []byte) error {
		r.log().Debug("Writing frame", "frame", frame)
		return enc.WriteFrame(data)
	})
	if err != nil {
		return err
	}

	if r.opts.Cache != nil {
		if err := r.opts.Cache.Flush(); err != nil {
			r.log().Warn("Frame cache flush failed", "error", err)
		}
	}

	if err = enc.Finish(); err != nil {
		return fmt.Errorf("failed to finish output: %w", err)
	}

	r.log().Info("Loop rendered",
		"frames", p.Frames,
		"cached", r.cacheHits.Load(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// CacheHits returns how many frames were served from the cache.
func (r *Renderer) CacheHits() int64 { return r.cacheHits.Load() }

func (r *Renderer) log() *slog.Logger {
	if r.opts.Logger != nil {
		return r.opts.Logger
	}
	return slog.Default()
}
