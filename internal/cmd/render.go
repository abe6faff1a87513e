package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noiseloop/internal/encoder"
	"github.com/MeKo-Tech/noiseloop/internal/framestore"
	"github.com/MeKo-Tech/noiseloop/internal/render"
	"github.com/MeKo-Tech/noiseloop/internal/worker"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a full animation loop",
	Long: `Render every frame of the loop and write them to an animated GIF or WebP.

The output is written to a temporary file next to --output and renamed into
place only after the last frame, so an interrupted run leaves nothing behind.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, renderBindings)
	},
	RunE: runRender,
}

var renderBindings = append([]flagBinding{
	{"render.output", "output"},
	{"render.format", "format"},
	{"render.workers", "workers"},
	{"render.progress", "progress"},
	{"render.delay", "delay"},
	{"render.dither", "dither"},
	{"render.cache", "cache"},
}, paramBindings...)

func init() {
	rootCmd.AddCommand(renderCmd)

	addParamFlags(renderCmd.Flags())

	renderCmd.Flags().StringP("output", "o", "out.gif", "Output file")
	renderCmd.Flags().String("format", "", "Container format: gif or webp (default: from --output extension)")
	renderCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	renderCmd.Flags().Bool("progress", true, "Show progress bar")
	renderCmd.Flags().Int("delay", int(encoder.DefaultDelay/time.Millisecond), "Frame delay in milliseconds")
	renderCmd.Flags().Bool("dither", false, "Floyd-Steinberg dithering for GIF output")
	renderCmd.Flags().String("cache", "", "SQLite frame cache path (empty disables caching)")
}

func runRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	params, err := paramsFromConfig()
	if err != nil {
		return err
	}

	output := viper.GetString("render.output")
	format := viper.GetString("render.format")
	workers := viper.GetInt("render.workers")
	showProgress := viper.GetBool("render.progress")
	delay := viper.GetInt("render.delay")
	dither := viper.GetBool("render.dither")
	cachePath := viper.GetString("render.cache")

	if output == "" {
		return fmt.Errorf("--output is required")
	}
	if format == "" {
		format = encoder.FormatFromPath(output)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if delay < 0 {
		return fmt.Errorf("invalid delay %dms: must be non-negative", delay)
	}

	enc, err := encoder.ForFormat(format, output, encoder.Options{
		Delay:  time.Duration(delay) * time.Millisecond,
		Dither: dither,
	})
	if err != nil {
		return err
	}

	var store *framestore.Store
	if cachePath != "" {
		store, err = framestore.Open(cachePath, framestore.Metadata{
			Name:        "noiseloop frames",
			Description: "Cached RGBA frames keyed by parameter fingerprint",
			Version:     version,
		})
		if err != nil {
			return fmt.Errorf("failed to open frame cache: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close frame cache", "error", err)
			}
		}()
		logger.Debug("Using frame cache", "path", cachePath, "fingerprint", params.Fingerprint())
	}

	progress := worker.NewProgress(params.Frames, showProgress)

	opts := render.Options{
		Workers:    workers,
		OnProgress: progress.Callback(),
		Logger:     logger,
	}
	if store != nil {
		opts.Cache = store
	}

	r, err := render.New(params, opts)
	if err != nil {
		return fmt.Errorf("failed to init renderer: %w", err)
	}

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	err = r.Render(ctx, enc)
	progress.Done()
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	logger.Info(progress.Summary())
	logger.Info("Loop written", "path", output, "format", format, "cached_frames", r.CacheHits())
	return nil
}
