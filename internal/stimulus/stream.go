// Package stimulus turns sample grids into finished frame sequences: the
// streaming zebra-noise flow, the cached two-pass flow with global
// normalisation, single-frame previews and grey padding clips.
package stimulus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/zebranoise/internal/filter"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/worker"
)

// Options tune how chunks are scheduled and reported.
type Options struct {
	Logger *slog.Logger
	// OnProgress receives chunk completion counts.
	OnProgress worker.ProgressFunc
	// OnFrames is told how many frames each finished chunk produced.
	OnFrames func(n int)
	// Workers bounds the number of chunks in memory at once. One worker
	// streams chunks strictly in order.
	Workers int
}

func (o Options) log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// run processes every chunk of plan with fn and returns the frame count.
func (o Options) run(ctx context.Context, plan *grid.Plan, fn worker.ProcessorFunc) (int, error) {
	pool := worker.New(worker.Config{
		Workers:     o.Workers,
		Processor:   fn,
		OnProgress:  o.OnProgress,
		StopOnError: true,
	})
	results := pool.Run(ctx, worker.Tasks(plan))
	if err := worker.FirstError(results); err != nil {
		return 0, err
	}

	frames := 0
	for _, r := range results {
		frames += r.Frames
	}
	return frames, nil
}

func (o Options) frames(n int) {
	if o.OnFrames != nil {
		o.OnFrames(n)
	}
}

// warnPadding logs when the frame count was padded to a whole temporal period.
func warnPadding(log *slog.Logger, plan *grid.Plan) {
	if extra := plan.PaddedFrames(); extra > 0 {
		log.Warn("Adding extra frames so the temporal period divides the duration",
			"extra", extra, "frames", plan.NumFrames())
	}
}

// Stream renders zebra noise chunk by chunk: each chunk is generated, mapped
// from [-1, 1] to [0, 1], filtered, discretized and handed to sink at its
// remapped output index. Filters are validated before any noise is
// generated. It returns the number of frames written.
func Stream(ctx context.Context, plan *grid.Plan, filters []filter.Spec, sink FrameSink, opts Options) (int, error) {
	if err := filter.Validate(filters); err != nil {
		return 0, err
	}
	log := opts.log()
	warnPadding(log, plan)

	total := plan.NumFrames()
	remap := filter.Remap(filters, total)

	log.Info("Streaming stimulus",
		"frames", total, "chunks", plan.NumChunks(), "chunk_frames", plan.ChunkFrames(),
		"filters", len(filters), "workers", max(opts.Workers, 1))

	return opts.run(ctx, plan, func(ctx context.Context, c grid.Chunk) (int, error) {
		v, err := plan.Generate(c)
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		v.ToUnit()
		if err := filter.Apply(v, filters, filter.Window{Start: c.Start, Total: total}); err != nil {
			return 0, fmt.Errorf("chunk %d: %w", c.Index, err)
		}

		for j, img := range v.Discretize() {
			if err := ctx.Err(); err != nil {
				return j, err
			}
			if err := sink.WriteFrame(remap(c.Start+j), img); err != nil {
				return j, err
			}
		}
		log.Debug("Chunk written", "chunk", c.Index, "start", c.Start, "frames", c.Count)
		opts.frames(c.Count)
		return c.Count, nil
	})
}
