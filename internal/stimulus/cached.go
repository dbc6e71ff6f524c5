//go:build !(js && wasm)

package stimulus

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/MeKo-Tech/zebranoise/internal/cache"
	"github.com/MeKo-Tech/zebranoise/internal/filter"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/volume"
	"github.com/MeKo-Tech/zebranoise/internal/worker"
)

// Demean selects the axes across which the prepared stimulus is fixed to
// zero mean.
type Demean string

const (
	// DemeanBoth removes each frame's spatial mean, then each pixel's
	// temporal mean.
	DemeanBoth Demean = "both"
	// DemeanTime removes each frame's spatial mean, fixing mean luminance
	// over time.
	DemeanTime Demean = "time"
	// DemeanSpace removes each pixel's temporal mean, fixing mean luminance
	// over space.
	DemeanSpace Demean = "space"
	// DemeanNone leaves the noise untouched.
	DemeanNone Demean = "none"
)

// ParseDemean validates a demeaning mode.
func ParseDemean(s string) (Demean, error) {
	switch d := Demean(s); d {
	case DemeanBoth, DemeanTime, DemeanSpace, DemeanNone:
		return d, nil
	}
	return "", fmt.Errorf("invalid demean mode %q (want both, time, space or none)", s)
}

func (d Demean) frames() bool { return d == DemeanBoth || d == DemeanTime }
func (d Demean) pixels() bool { return d == DemeanBoth || d == DemeanSpace }

// Stimulus is a prepared, cached noise stimulus. Preparing generates every
// chunk once, demeans it and records the global range; rendering then reads
// the cached chunks back and normalises them with that range.
type Stimulus struct {
	plan   *grid.Plan
	store  *cache.Store
	opts   Options
	key    string
	params string
	demean Demean
	stats  cache.Stats
	ready  bool
}

type cacheKey struct {
	Grid        grid.Params
	Demean      Demean
	ChunkFrames int
}

// New binds plan to a cache store. Nothing is generated until Prepare.
func New(plan *grid.Plan, store *cache.Store, demean Demean, opts Options) (*Stimulus, error) {
	if _, err := ParseDemean(string(demean)); err != nil {
		return nil, err
	}
	key, params, err := cache.Key(cacheKey{Grid: plan.Params(), Demean: demean, ChunkFrames: plan.ChunkFrames()})
	if err != nil {
		return nil, err
	}
	return &Stimulus{plan: plan, store: store, opts: opts, key: key, params: params, demean: demean}, nil
}

// Key returns the cache key of the stimulus.
func (s *Stimulus) Key() string { return s.key }

// Report replaces the progress callbacks used by later passes, so Prepare and
// Render can be counted separately.
func (s *Stimulus) Report(onProgress worker.ProgressFunc, onFrames func(n int)) {
	s.opts.OnProgress = onProgress
	s.opts.OnFrames = onFrames
}

// Stats returns the statistics recorded by Prepare.
func (s *Stimulus) Stats() cache.Stats { return s.stats }

// Prepare fills the cache. When a complete entry for the same parameters
// already exists it only loads its statistics.
func (s *Stimulus) Prepare(ctx context.Context) error {
	log := s.opts.log()

	ok, err := s.store.Complete(s.key)
	if err != nil {
		return err
	}
	if ok {
		if s.stats, err = s.store.Stats(s.key); err != nil {
			return err
		}
		s.ready = true
		log.Info("Using cached stimulus", "key", s.key, "frames", s.stats.Frames)
		return nil
	}

	warnPadding(log, s.plan)
	// Drop partial leftovers from an interrupted run.
	if err := s.store.Delete(s.key); err != nil {
		return err
	}

	nx, ny := len(s.plan.Xs()), len(s.plan.Ys())
	sums := make([]float64, nx*ny)
	r := newRange()
	var mu sync.Mutex

	log.Info("Generating stimulus", "key", s.key, "frames", s.plan.NumFrames(), "chunks", s.plan.NumChunks(), "demean", s.demean)
	frames, err := s.opts.run(ctx, s.plan, func(_ context.Context, c grid.Chunk) (int, error) {
		v, err := s.plan.Generate(c)
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		if s.demean.frames() {
			v.DemeanFrames()
		}
		lo, hi := v.MinMax()

		mu.Lock()
		r.add(lo, hi)
		err = v.AccumulatePixelSums(sums)
		mu.Unlock()
		if err != nil {
			return 0, err
		}

		if err := s.store.PutChunk(s.key, c.Index, v); err != nil {
			return 0, err
		}
		s.opts.frames(c.Count)
		return c.Count, nil
	})
	if err != nil {
		return err
	}

	if s.demean.pixels() {
		mean := make([]float32, len(sums))
		for i, sum := range sums {
			mean[i] = float32(sum / float64(frames))
		}
		log.Info("Removing per-pixel temporal mean", "key", s.key)

		r = newRange()
		_, err = s.opts.run(ctx, s.plan, func(_ context.Context, c grid.Chunk) (int, error) {
			v, err := s.store.Chunk(s.key, c.Index)
			if err != nil {
				return 0, err
			}
			if err := v.SubtractPixelMean(mean); err != nil {
				return 0, err
			}
			lo, hi := v.MinMax()
			mu.Lock()
			r.add(lo, hi)
			mu.Unlock()
			return c.Count, s.store.PutChunk(s.key, c.Index, v)
		})
		if err != nil {
			return err
		}
	}

	s.stats = cache.Stats{
		Params: s.params,
		Min:    r.lo,
		Max:    r.hi,
		Frames: frames,
		Chunks: s.plan.NumChunks(),
	}
	if err := s.store.PutStats(s.key, s.stats); err != nil {
		return err
	}
	s.ready = true
	log.Info("Stimulus prepared", "key", s.key, "min", r.lo, "max", r.hi, "frames", frames)
	return nil
}

// Render normalises every cached chunk to [0, 1] with the global range,
// applies filters, and writes the frames to sink at their remapped indices.
// It returns the number of frames written.
func (s *Stimulus) Render(ctx context.Context, filters []filter.Spec, sink FrameSink) (int, error) {
	if !s.ready {
		return 0, fmt.Errorf("stimulus %s has not been prepared", s.key)
	}
	if err := filter.Validate(filters); err != nil {
		return 0, err
	}

	total := s.stats.Frames
	remap := filter.Remap(filters, total)

	return s.opts.run(ctx, s.plan, func(ctx context.Context, c grid.Chunk) (int, error) {
		v, err := s.store.Chunk(s.key, c.Index)
		if err != nil {
			return 0, err
		}
		v.Rescale(s.stats.Min, s.stats.Max)
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
		s.opts.frames(c.Count)
		return c.Count, nil
	})
}

// Chunk returns cached chunk k as stored: demeaned but not normalised.
func (s *Stimulus) Chunk(k int) (*volume.Volume, error) {
	return s.store.Chunk(s.key, k)
}

type valueRange struct{ lo, hi float32 }

func newRange() *valueRange {
	return &valueRange{lo: float32(math.Inf(1)), hi: float32(math.Inf(-1))}
}

func (r *valueRange) add(lo, hi float32) {
	r.lo = min(r.lo, lo)
	r.hi = max(r.hi, hi)
}
