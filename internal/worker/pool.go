// Package worker provides a parallel frame generation worker pool.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Generator produces the frame with the given index. Implementations must be
// safe to call from several goroutines at once; every call owns the buffer it
// returns.
type Generator interface {
	Generate(ctx context.Context, frame int) ([]byte, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, frame int) ([]byte, error)

func (f GeneratorFunc) Generate(ctx context.Context, frame int) ([]byte, error) {
	return f(ctx, frame)
}

// EmitFunc receives finished frames strictly in index order. Ownership of data
// passes to the callee.
type EmitFunc func(frame int, data []byte) error

// Result represents the outcome of a single frame.
type Result struct {
	Frame   int
	Data    []byte
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each frame is emitted.
type ProgressFunc func(completed, total int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Generator  Generator
	OnProgress ProgressFunc
	// Window caps how many frames may be in flight or waiting for emission.
	// Defaults to twice the worker count.
	Window int
}

// Pool manages parallel frame generation.
type Pool struct {
	workers    int
	window     int
	generator  Generator
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	window := cfg.Window
	if window < workers {
		window = 2 * workers
	}

	return &Pool{
		workers:    workers,
		window:     window,
		generator:  cfg.Generator,
		onProgress: cfg.OnProgress,
	}
}

// Run generates frames [0, total) in parallel and hands them to emit in
// index order. Frames finishing early wait in a reorder buffer; the feeder
// never runs more than the window ahead of the next frame to emit, so peak
// memory stays at O(window) frames.
//
// The first failure cancels the remaining work and is returned. There are no
// retries.
func (p *Pool) Run(ctx context.Context, total int, emit EmitFunc) error {
	if total <= 0 {
		return nil
	}
	if p.generator == nil {
		return fmt.Errorf("worker pool has no generator")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan int)
	resultCh := make(chan Result, p.workers)
	tokens := make(chan struct{}, p.window)

	// Feed tasks; each one holds a window token until it is emitted.
	go func() {
		defer close(taskCh)
		for frame := 0; frame < total; frame++ {
			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				return
			}
			select {
			case taskCh <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	pending := make(map[int]Result, p.window)
	next := 0
	var firstErr error

	for result := range resultCh {
		if firstErr != nil {
			continue
		}
		if result.Err != nil {
			firstErr = fmt.Errorf("frame %d: %w", result.Frame, result.Err)
			cancel()
			continue
		}

		pending[result.Frame] = result
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := emit(next, r.Data); err != nil {
				firstErr = fmt.Errorf("emit frame %d: %w", next, err)
				cancel()
				break
			}
			next++
			<-tokens

			if p.onProgress != nil {
				p.onProgress(next, total)
			}
		}
	}

	if firstErr != nil {
		return firstErr
	}
	if next != total {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("emitted %d of %d frames", next, total)
	}
	return nil
}

// worker processes frames from the task channel and sends results to the result channel.
func (p *Pool) worker(ctx context.Context, tasks <-chan int, results chan<- Result) {
	for frame := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Frame: frame, Err: err}
			continue
		}

		start := time.Now()
		data, err := p.generator.Generate(ctx, frame)
		results <- Result{
			Frame:   frame,
			Data:    data,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
