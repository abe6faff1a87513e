//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/noiseloop/internal/config"
	"github.com/MeKo-Tech/noiseloop/internal/render"
)

// RenderFrameRequest represents a frame preview request from JS
type RenderFrameRequest struct {
	Noise  string  `json:"noise"`
	Shape  string  `json:"shape"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Frames int     `json:"frames"`
	Index  int     `json:"index"`
	Radius float64 `json:"radius"`
	Scale  float64 `json:"scale"`
	Seed   int64   `json:"seed"`
}

// toParams fills unset request fields from the defaults.
func (r RenderFrameRequest) toParams() (config.Params, error) {
	p := config.Defaults()
	if r.Width > 0 {
		p.Width = r.Width
	}
	if r.Height > 0 {
		p.Height = r.Height
	}
	if r.Frames > 0 {
		p.Frames = r.Frames
	}
	if r.Radius > 0 {
		p.Radius = r.Radius
	}
	if r.Scale > 0 {
		p.Scale = r.Scale
	}
	if r.Noise != "" {
		p.Noise.Algorithm = r.Noise
	}
	if r.Shape != "" {
		shape, err := config.ParseShape(r.Shape)
		if err != nil {
			return p, err
		}
		p.Shape = shape
	}
	p.Noise.Seed = r.Seed
	return p, nil
}

// renderFrame is called from JavaScript with a JSON request and a
// Uint8ClampedArray of width·height·4 bytes, which it fills with RGBA pixels
// ready for ImageData.
func renderFrame(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return map[string]interface{}{"error": "missing arguments"}
	}

	var req RenderFrameRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("failed to parse request: %v", err)}
	}

	params, err := req.toParams()
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	r, err := render.New(params, render.Options{})
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	buf, err := r.RenderFrame(context.Background(), req.Index)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	dst := args[1]
	if dst.Length() != len(buf) {
		return map[string]interface{}{"error": fmt.Sprintf("buffer has %d bytes, want %d", dst.Length(), len(buf))}
	}
	js.CopyBytesToJS(dst, buf)

	return map[string]interface{}{"width": params.Width, "height": params.Height, "frames": params.Frames}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("noiseloopRenderFrame", js.FuncOf(renderFrame))

	fmt.Println("noiseloop WASM module loaded")
	<-c
}
