package cmd

import (
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/noiseloop/internal/encoder"
	"github.com/MeKo-Tech/noiseloop/internal/render"
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Render a single frame as PNG",
	Long: `Render one frame of the loop to a PNG file for previews.

The index is reduced modulo the frame count, so --index equal to --frames
produces the same image as --index 0.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, frameBindings)
	},
	RunE: runFrame,
}

var frameBindings = append([]flagBinding{
	{"frame.index", "index"},
	{"frame.output", "output"},
}, paramBindings...)

func init() {
	rootCmd.AddCommand(frameCmd)

	addParamFlags(frameCmd.Flags())

	frameCmd.Flags().IntP("index", "t", 0, "Frame index")
	frameCmd.Flags().StringP("output", "o", "frame.png", "Output PNG file")
}

func runFrame(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	params, err := paramsFromConfig()
	if err != nil {
		return err
	}
	index := viper.GetInt("frame.index")
	output := viper.GetString("frame.output")

	r, err := render.New(params, render.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to init renderer: %w", err)
	}

	logger.Info("Rendering frame", "index", index, "size", fmt.Sprintf("%dx%d", params.Width, params.Height))
	buf, err := r.RenderFrame(context.Background(), index)
	if err != nil {
		return fmt.Errorf("failed to render frame %d: %w", index, err)
	}

	if err := writePNG(output, buf, params.Width, params.Height); err != nil {
		return err
	}
	logger.Info("Frame written", "path", output)
	return nil
}

// writePNG encodes an RGBA frame buffer to path atomically.
func writePNG(path string, buf []byte, w, h int) error {
	img := &image.NRGBA{
		Pix:    buf,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}

	f, err := encoder.CreateAtomic(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Abort()
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return f.Commit()
}
