// Package server serves single stimulus frames over HTTP for interactive
// parameter tuning.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/MeKo-Tech/zebranoise/internal/filter"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/perlin"
	"github.com/MeKo-Tech/zebranoise/internal/stimulus"
)

// PreviewConfig configures the preview server.
type PreviewConfig struct {
	// Filters applied when a request names none.
	Filters []string
	// CacheControl is sent with every frame.
	CacheControl string
	// Defaults supplies every grid parameter a request does not override.
	Defaults grid.Params
	// MaxConcurrentRenders bounds frames rendered at once.
	MaxConcurrentRenders int
	// MaxPixels rejects larger frame requests.
	MaxPixels int
}

// PreviewStatus reports render counters.
type PreviewStatus struct {
	ActiveRenders int   `json:"activeRenders"`
	MaxConcurrent int   `json:"maxConcurrent"`
	TotalRendered int64 `json:"totalRendered"`
	TotalFailed   int64 `json:"totalFailed"`
}

// Preview renders frames on request.
type Preview struct {
	logger        *slog.Logger
	sem           chan struct{}
	cfg           PreviewConfig
	activeRenders atomic.Int32
	totalRendered atomic.Int64
	totalFailed   atomic.Int64
}

// NewPreview creates a preview server.
func NewPreview(cfg PreviewConfig, logger *slog.Logger) (*Preview, error) {
	if cfg.MaxConcurrentRenders <= 0 {
		cfg.MaxConcurrentRenders = 1
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = 4096 * 4096
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if _, err := filter.ParseList(cfg.Filters); err != nil {
		return nil, fmt.Errorf("invalid default filters: %w", err)
	}

	return &Preview{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentRenders),
	}, nil
}

// Handler returns the HTTP handler for /frames/{n}.png.
func (p *Preview) Handler() http.HandlerFunc {
	return p.serveFrame
}

// StatusHandler reports the render counters as JSON.
func (p *Preview) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(p.Status()); err != nil {
			p.log().Error("Failed to write status", "error", err)
		}
	}
}

// Status returns the current render counters.
func (p *Preview) Status() PreviewStatus {
	return PreviewStatus{
		ActiveRenders: int(p.activeRenders.Load()),
		MaxConcurrent: p.cfg.MaxConcurrentRenders,
		TotalRendered: p.totalRendered.Load(),
		TotalFailed:   p.totalFailed.Load(),
	}
}

func (p *Preview) serveFrame(w http.ResponseWriter, r *http.Request) {
	frame, ok := parseFramePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	params, filters, demean, err := p.parseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case p.sem <- struct{}{}:
	case <-r.Context().Done():
		return
	}
	p.activeRenders.Add(1)
	data, err := p.render(params, frame, filters, demean)
	p.activeRenders.Add(-1)
	<-p.sem

	if err != nil {
		p.totalFailed.Add(1)
		status := http.StatusInternalServerError
		if errors.Is(err, perlin.ErrInvalidArgument) || errors.Is(err, perlin.ErrOutOfRange) ||
			errors.Is(err, filter.ErrUnknownFilter) || errors.Is(err, filter.ErrInvalidArgs) {
			status = http.StatusBadRequest
		}
		p.log().Warn("Preview failed", "frame", frame, "error", err)
		http.Error(w, err.Error(), status)
		return
	}
	p.totalRendered.Add(1)

	w.Header().Set("Cache-Control", p.cfg.CacheControl)
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		p.log().Error("Failed to write response", "error", err)
	}
}

func (p *Preview) render(params grid.Params, frame int, filters []filter.Spec, demean bool) ([]byte, error) {
	plan, err := grid.NewPlan(params)
	if err != nil {
		return nil, err
	}
	frames, err := stimulus.Preview(plan, []int{frame}, filters, demean)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frames[0]); err != nil {
		return nil, err
	}
	p.log().Debug("Preview rendered", "frame", frame, "size", fmt.Sprintf("%dx%d", params.XSize, params.YSize))
	return buf.Bytes(), nil
}

// parseQuery overlays request parameters on the configured defaults.
func (p *Preview) parseQuery(q url.Values) (grid.Params, []filter.Spec, bool, error) {
	params := p.cfg.Defaults
	ints := map[string]*int{
		"xsize":  &params.XSize,
		"ysize":  &params.YSize,
		"fps":    &params.FPS,
		"levels": &params.Levels,
		"seed":   &params.Seed,
	}
	for k, dst := range ints {
		if v := q.Get(k); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return grid.Params{}, nil, false, fmt.Errorf("invalid %s %q", k, v)
			}
			*dst = n
		}
	}
	floats := map[string]*float64{
		"duration": &params.Duration,
		"xyscale":  &params.XYScale,
		"tscale":   &params.TScale,
		"xscale":   &params.XScale,
		"yscale":   &params.YScale,
	}
	for k, dst := range floats {
		if v := q.Get(k); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return grid.Params{}, nil, false, fmt.Errorf("invalid %s %q", k, v)
			}
			*dst = f
		}
	}
	pixels, err := grid.FramePixels(params.XSize, params.YSize)
	if err != nil {
		return grid.Params{}, nil, false, err
	}
	if pixels > p.cfg.MaxPixels {
		return grid.Params{}, nil, false, fmt.Errorf("frame %dx%d exceeds %d pixels", params.XSize, params.YSize, p.cfg.MaxPixels)
	}

	names := q["filter"]
	if len(names) == 0 {
		names = p.cfg.Filters
	}
	filters, err := filter.ParseList(names)
	if err != nil {
		return grid.Params{}, nil, false, err
	}

	demean := q.Get("demean") == "1" || q.Get("demean") == "true"
	return params, filters, demean, nil
}

func (p *Preview) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// parseFramePath parses a path like /frames/120.png.
func parseFramePath(requestPath string) (int, bool) {
	if !strings.HasPrefix(requestPath, "/frames/") {
		return 0, false
	}

	base := path.Base(requestPath)
	if !strings.HasSuffix(base, ".png") {
		return 0, false
	}

	n, err := strconv.Atoi(strings.TrimSuffix(base, ".png"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
