package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/zebranoise/internal/filter"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/stimulus"
	"github.com/MeKo-Tech/zebranoise/internal/worker"
)

type flagBinding struct {
	key  string
	flag string
}

func bindFlags(cmd *cobra.Command, bindings []flagBinding) {
	for _, bf := range bindings {
		if err := viper.BindPFlag(bf.key, cmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// addStimulusFlags registers the sample grid flags of a command under the
// viper section of the same name.
func addStimulusFlags(cmd *cobra.Command, section string) {
	d := grid.DefaultParams(0, 0, 0)
	cmd.Flags().Int("xsize", 640, "Frame width in pixels")
	cmd.Flags().Int("ysize", 480, "Frame height in pixels")
	cmd.Flags().Float64("duration", 60, "Duration in seconds (padded up to a whole temporal period)")
	cmd.Flags().Int("fps", d.FPS, "Frames per second")
	cmd.Flags().Int("levels", d.Levels, "Number of octaves approximating the 1/f spectrum")
	cmd.Flags().Float64("xyscale", d.XYScale, "Spatial grain in (0, 1): smoother near 0, choppier near 1")
	cmd.Flags().Float64("tscale", d.TScale, "Temporal scale: frames per noise unit at 30 fps, larger is slower")
	cmd.Flags().Float64("xscale", d.XScale, "Stretch of the x axis")
	cmd.Flags().Float64("yscale", d.YScale, "Stretch of the y axis")
	cmd.Flags().Int("seed", 0, "Noise seed in [0, 255]")
	cmd.Flags().Int("chunk-samples", grid.DefaultMaxChunkSamples, "Maximum samples held in memory per chunk")

	var bindings []flagBinding
	for _, f := range []string{"xsize", "ysize", "duration", "fps", "levels", "xyscale", "tscale", "xscale", "yscale", "seed", "chunk-samples"} {
		bindings = append(bindings, flagBinding{section + "." + strings.ReplaceAll(f, "-", "_"), f})
	}
	bindFlags(cmd, bindings)
}

func stimulusParams(section string) grid.Params {
	get := func(k string) string { return section + "." + k }
	return grid.Params{
		XSize:           viper.GetInt(get("xsize")),
		YSize:           viper.GetInt(get("ysize")),
		Duration:        viper.GetFloat64(get("duration")),
		FPS:             viper.GetInt(get("fps")),
		Levels:          viper.GetInt(get("levels")),
		XYScale:         viper.GetFloat64(get("xyscale")),
		TScale:          viper.GetFloat64(get("tscale")),
		XScale:          viper.GetFloat64(get("xscale")),
		YScale:          viper.GetFloat64(get("yscale")),
		Seed:            viper.GetInt(get("seed")),
		MaxChunkSamples: viper.GetInt(get("chunk_samples")),
	}
}

// addOutputFlags registers the frame and video output flags.
func addOutputFlags(cmd *cobra.Command, section string) {
	cmd.Flags().StringArray("filter", []string{"comb:0.08"}, "Filters applied in order, as name or name:arg,arg (repeatable)")
	cmd.Flags().IntP("workers", "w", 1, "Chunks processed in parallel (0 = number of CPUs)")
	cmd.Flags().Bool("progress", true, "Show progress bar")
	cmd.Flags().Int("loop", 1, "Number of times the stimulus repeats in the video")
	cmd.Flags().Int("bitrate", 20, "Video bitrate in Mbit/s")
	cmd.Flags().String("frame-format", "tif", "Frame file format: tif or png")
	cmd.Flags().String("frames-dir", "", "Keep frame files in this directory (default: temporary)")
	cmd.Flags().Bool("no-encode", false, "Only write frames, do not run ffmpeg (requires --frames-dir)")

	bindFlags(cmd, []flagBinding{
		{section + ".filter", "filter"},
		{section + ".workers", "workers"},
		{section + ".progress", "progress"},
		{section + ".loop", "loop"},
		{section + ".bitrate", "bitrate"},
		{section + ".frame_format", "frame-format"},
		{section + ".frames_dir", "frames-dir"},
		{section + ".no_encode", "no-encode"},
	})
}

type outputConfig struct {
	filters   []filter.Spec
	format    stimulus.Format
	framesDir string
	workers   int
	loop      int
	bitrate   int
	progress  bool
	noEncode  bool
}

func outputSettings(section string) (outputConfig, error) {
	get := func(k string) string { return section + "." + k }
	filters, err := filter.ParseList(viper.GetStringSlice(get("filter")))
	if err != nil {
		return outputConfig{}, err
	}
	format, err := stimulus.ParseFormat(viper.GetString(get("frame_format")))
	if err != nil {
		return outputConfig{}, err
	}
	cfg := outputConfig{
		filters:   filters,
		format:    format,
		framesDir: viper.GetString(get("frames_dir")),
		workers:   viper.GetInt(get("workers")),
		loop:      viper.GetInt(get("loop")),
		bitrate:   viper.GetInt(get("bitrate")),
		progress:  viper.GetBool(get("progress")),
		noEncode:  viper.GetBool(get("no_encode")),
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.NumCPU()
	}
	if cfg.loop < 1 {
		return outputConfig{}, fmt.Errorf("loop must be at least 1, got %d", cfg.loop)
	}
	if cfg.noEncode && cfg.framesDir == "" {
		return outputConfig{}, fmt.Errorf("--no-encode requires --frames-dir")
	}
	return cfg, nil
}

// openSink returns the frame sink for cfg and a cleanup func removing a
// temporary frame directory.
func (cfg outputConfig) openSink() (*stimulus.DirSink, func(), error) {
	dir := cfg.framesDir
	cleanup := func() {}
	if dir == "" {
		tmp, err := os.MkdirTemp("", "zebranoise-frames-")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create frame directory: %w", err)
		}
		dir = tmp
		cleanup = func() {
			if err := os.RemoveAll(tmp); err != nil {
				logger.Warn("Failed to remove frame directory", "dir", tmp, "error", err)
			}
		}
	}
	sink, err := stimulus.NewDirSink(dir, cfg.format)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return sink, cleanup, nil
}

// options builds stimulus options with a progress bar over n chunks.
func (cfg outputConfig) options(n int) (stimulus.Options, *worker.Progress) {
	progress := worker.NewProgress(n, cfg.progress)
	return stimulus.Options{
		Logger:     logger,
		Workers:    cfg.workers,
		OnProgress: progress.Callback(),
		OnFrames:   progress.AddFrames,
	}, progress
}

// finish loops the written frames and encodes them into out.
func (cfg outputConfig) finish(ctx context.Context, sink *stimulus.DirSink, frames, fps int, out string) error {
	if err := sink.Loop(frames, cfg.loop); err != nil {
		return err
	}
	if cfg.noEncode {
		logger.Info("Frames written", "dir", sink.Dir(), "frames", frames*cfg.loop)
		return nil
	}
	return encode(ctx, sink, fps, cfg.bitrate, out)
}

func encode(ctx context.Context, sink *stimulus.DirSink, fps, bitrate int, out string) error {
	out = stimulus.Output(out)
	enc := stimulus.Encoder{FFmpeg: viper.GetString("ffmpeg"), FPS: fps, BitrateMbps: bitrate}
	logger.Info("Encoding video", "output", out, "fps", fps, "bitrate_mbps", bitrate)
	if err := enc.Encode(ctx, sink, out); err != nil {
		return err
	}
	logger.Info("Video written", "output", out)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// parseFrames parses a comma-separated list of frame indices.
func parseFrames(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	frames := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid frame index %q: %w", p, err)
		}
		if f < 0 {
			return nil, fmt.Errorf("frame index must be non-negative, got %d", f)
		}
		frames = append(frames, f)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frame indices given")
	}
	return frames, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
