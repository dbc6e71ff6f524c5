//go:build js && wasm
// +build js,wasm

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"syscall/js"

	"github.com/MeKo-Tech/zebranoise/internal/filter"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/stimulus"
)

// PreviewRequest represents a preview frame request from JS
type PreviewRequest struct {
	Filters  []string `json:"filters"`
	XSize    int      `json:"xsize"`
	YSize    int      `json:"ysize"`
	Duration float64  `json:"duration"`
	FPS      int      `json:"fps"`
	Levels   int      `json:"levels"`
	XYScale  float64  `json:"xyscale"`
	TScale   float64  `json:"tscale"`
	Seed     int      `json:"seed"`
	Frame    int      `json:"frame"`
}

type PreviewResponse struct {
	DataURL string `json:"dataUrl"`
	Frames  int    `json:"frames"`
}

// params fills zero fields with the zebra-noise defaults.
func (r PreviewRequest) params() grid.Params {
	p := grid.DefaultParams(r.XSize, r.YSize, r.Duration)
	if r.FPS > 0 {
		p.FPS = r.FPS
	}
	if r.Levels > 0 {
		p.Levels = r.Levels
	}
	if r.XYScale > 0 {
		p.XYScale = r.XYScale
	}
	if r.TScale > 0 {
		p.TScale = r.TScale
	}
	p.Seed = r.Seed
	return p
}

// previewFrame is called from JavaScript to render one frame as a PNG data URL.
func previewFrame(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "missing arguments"}
	}

	var req PreviewRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("failed to parse request: %v", err)}
	}

	filters, err := filter.ParseList(req.Filters)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	plan, err := grid.NewPlan(req.params())
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	frames, err := stimulus.Preview(plan, []int{req.Frame}, filters, false)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frames[0]); err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	out, _ := json.Marshal(PreviewResponse{
		DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Frames:  plan.NumFrames(),
	})
	return string(out)
}

// filterNames lists the built-in filters for the UI.
func filterNames(this js.Value, args []js.Value) interface{} {
	names := filter.Names()
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func main() {
	c := make(chan struct{})

	js.Global().Set("zebranoisePreview", js.FuncOf(previewFrame))
	js.Global().Set("zebranoiseFilters", js.FuncOf(filterNames))

	fmt.Println("Zebranoise WASM module loaded")
	<-c
}
