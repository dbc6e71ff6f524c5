// Package grid derives the (x, y, t) sample coordinates of a stimulus and
// splits its time axis into memory-bounded chunks.
package grid

import (
	"fmt"
	"iter"
	"math"

	"github.com/MeKo-Tech/zebranoise/internal/perlin"
	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

const (
	// XYScaleBase is the number of noise units spanned by the y axis tiling
	// period. The x period scales with the aspect ratio.
	XYScaleBase = 100

	// ReferenceFPS is the frame rate at which TScale frames span one temporal
	// noise unit.
	ReferenceFPS = 30

	// DefaultMaxChunkSamples bounds the number of float32 samples held in one
	// chunk (about 400 MB).
	DefaultMaxChunkSamples = 100_000_000

	// MaxFramePixels bounds xsize*ysize.
	MaxFramePixels = math.MaxInt32

	// MaxFrames bounds the requested frame count.
	MaxFrames = math.MaxInt32
)

// FramePixels returns xsize*ysize, rejecting sizes that are not positive or
// whose product exceeds MaxFramePixels.
func FramePixels(xsize, ysize int) (int, error) {
	if xsize <= 0 || ysize <= 0 {
		return 0, fmt.Errorf("%w: frame size must be positive, got %dx%d", perlin.ErrInvalidArgument, xsize, ysize)
	}
	if xsize > MaxFramePixels/ysize {
		return 0, fmt.Errorf("%w: frame size %dx%d exceeds %d pixels", perlin.ErrInvalidArgument, xsize, ysize, MaxFramePixels)
	}
	return xsize * ysize, nil
}

// Params describes a stimulus request.
type Params struct {
	// XSize and YSize are the frame dimensions in pixels.
	XSize int
	YSize int
	// Duration is the requested length in seconds. The frame count may be
	// padded upward so the temporal tiling period divides it.
	Duration float64
	FPS      int
	// Levels is the number of octaves.
	Levels int
	// XYScale is the octave persistence; larger is more granular.
	XYScale float64
	// TScale is the number of frames per temporal noise unit at ReferenceFPS;
	// larger is slower.
	TScale float64
	// XScale and YScale stretch the spatial axes; larger is a bigger scale.
	XScale float64
	YScale float64
	Seed   int
	// MaxChunkSamples caps XSize*YSize*frames per chunk.
	MaxChunkSamples int
}

// DefaultParams returns the zebra-noise defaults for the given frame size and
// duration.
func DefaultParams(xsize, ysize int, duration float64) Params {
	return Params{
		XSize:           xsize,
		YSize:           ysize,
		Duration:        duration,
		FPS:             30,
		Levels:          10,
		XYScale:         0.2,
		TScale:          50,
		XScale:          1,
		YScale:          1,
		MaxChunkSamples: DefaultMaxChunkSamples,
	}
}

// Plan is the immutable sample grid of one stimulus.
type Plan struct {
	params      Params
	xs          []float32
	ys          []float32
	noise       perlin.Params
	requested   int
	frames      int
	chunkFrames int
	timeScale   float32
}

// Chunk is one temporal slice of the grid: every pixel, Count frames starting
// at absolute frame Start.
type Chunk struct {
	Ts    []float32
	Index int
	Start int
	Count int
}

// End returns the absolute index one past the chunk's last frame.
func (c Chunk) End() int { return c.Start + c.Count }

// NewPlan validates p and computes the spatial coordinates, tiling periods,
// padded frame count and chunk size. Every coordinate bound is checked here,
// before any noise volume is allocated.
func NewPlan(p Params) (*Plan, error) {
	pixels, err := FramePixels(p.XSize, p.YSize)
	if err != nil {
		return nil, err
	}
	if p.FPS <= 0 {
		return nil, fmt.Errorf("%w: fps must be positive, got %d", perlin.ErrInvalidArgument, p.FPS)
	}
	if !(p.Duration > 0) || math.IsInf(p.Duration, 0) {
		return nil, fmt.Errorf("%w: duration must be positive, got %g", perlin.ErrInvalidArgument, p.Duration)
	}
	if !(p.TScale > 0) || math.IsInf(p.TScale, 0) {
		return nil, fmt.Errorf("%w: tscale must be positive, got %g", perlin.ErrInvalidArgument, p.TScale)
	}
	if !(p.XScale > 0) || !(p.YScale > 0) {
		return nil, fmt.Errorf("%w: xscale and yscale must be positive, got %g, %g", perlin.ErrInvalidArgument, p.XScale, p.YScale)
	}
	if p.MaxChunkSamples <= 0 {
		p.MaxChunkSamples = DefaultMaxChunkSamples
	}

	if p.Duration*float64(p.FPS) > MaxFrames {
		return nil, fmt.Errorf("%w: %gs at %d fps exceeds %d frames", perlin.ErrInvalidArgument, p.Duration, p.FPS, MaxFrames)
	}
	requested := int(p.Duration * float64(p.FPS))
	if requested < 1 {
		return nil, fmt.Errorf("%w: %gs at %d fps is less than one frame", perlin.ErrInvalidArgument, p.Duration, p.FPS)
	}

	// Frames per temporal noise unit at the requested frame rate.
	eff := p.TScale * float64(p.FPS) / ReferenceFPS
	const slack = 1e-9
	tunits := int(math.Ceil(float64(requested)/eff - slack))
	if tunits < 1 {
		tunits = 1
	}
	frames := int(math.Ceil(float64(tunits)*eff - slack))
	if frames < requested {
		frames = requested
	}

	repeatX := int(float64(p.XSize) / float64(p.YSize) * XYScaleBase)
	if repeatX < 1 {
		return nil, fmt.Errorf("%w: aspect ratio %dx%d gives an empty x period", perlin.ErrInvalidArgument, p.XSize, p.YSize)
	}

	noise := perlin.Params{
		Octaves:     p.Levels,
		Persistence: float32(p.XYScale),
		Lacunarity:  2,
		Cutoff:      perlin.DefaultCutoff,
		RepeatX:     repeatX,
		RepeatY:     XYScaleBase,
		RepeatT:     tunits,
		Base:        p.Seed,
	}
	if err := noise.Validate(); err != nil {
		return nil, err
	}

	chunkFrames := p.MaxChunkSamples / pixels
	if chunkFrames%2 == 1 {
		chunkFrames++
	}
	if chunkFrames < 2 {
		chunkFrames = 2
	}

	plan := &Plan{
		params:      p,
		xs:          axis(p.XSize, float32(p.YSize), float32(p.XScale)),
		ys:          axis(p.YSize, float32(p.YSize), float32(p.YScale)),
		noise:       noise,
		requested:   requested,
		frames:      frames,
		chunkFrames: chunkFrames,
		timeScale:   float32(eff),
	}

	if err := perlin.CheckAxis("x", plan.xs, noise.RepeatX); err != nil {
		return nil, err
	}
	if err := perlin.CheckAxis("y", plan.ys, noise.RepeatY); err != nil {
		return nil, err
	}
	if err := perlin.CheckAxis("t", []float32{plan.TimeAt(frames - 1)}, noise.RepeatT); err != nil {
		return nil, err
	}
	return plan, nil
}

// axis returns i/size/scale for i in [0, n).
func axis(n int, size, scale float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i) / size / scale
	}
	return out
}

// Params returns the request the plan was built from.
func (p *Plan) Params() Params { return p.params }

// Noise returns the engine parameters, including tiling periods and seed.
func (p *Plan) Noise() perlin.Params { return p.noise }

// Xs returns the x coordinates. Callers must not modify the slice.
func (p *Plan) Xs() []float32 { return p.xs }

// Ys returns the y coordinates. Callers must not modify the slice.
func (p *Plan) Ys() []float32 { return p.ys }

// NumFrames is the total frame count after padding.
func (p *Plan) NumFrames() int { return p.frames }

// PaddedFrames is the number of frames added to the requested duration.
func (p *Plan) PaddedFrames() int { return p.frames - p.requested }

// ChunkFrames is the (even) number of frames per chunk.
func (p *Plan) ChunkFrames() int { return p.chunkFrames }

// NumChunks is the number of chunks covering all frames.
func (p *Plan) NumChunks() int { return (p.frames + p.chunkFrames - 1) / p.chunkFrames }

// TimeAt returns the temporal coordinate of an absolute frame index.
func (p *Plan) TimeAt(frame int) float32 { return float32(frame) / p.timeScale }

// Chunk returns chunk k, computed from its absolute frame range alone.
// Every chunk starts on an even frame; only the last one may hold an odd
// number of frames, when the total frame count is odd.
func (p *Plan) Chunk(k int) (Chunk, error) {
	if k < 0 || k >= p.NumChunks() {
		return Chunk{}, fmt.Errorf("%w: chunk %d not in [0, %d)", perlin.ErrOutOfRange, k, p.NumChunks())
	}
	start := k * p.chunkFrames
	count := min(p.chunkFrames, p.frames-start)
	ts := make([]float32, count)
	for i := range ts {
		ts[i] = p.TimeAt(start + i)
	}
	return Chunk{Index: k, Start: start, Count: count, Ts: ts}, nil
}

// Chunks yields every chunk in order. The sequence may be ranged over any
// number of times; stopping early abandons the remaining chunks.
func (p *Plan) Chunks() iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		for k := 0; k < p.NumChunks(); k++ {
			c, _ := p.Chunk(k)
			if !yield(c) {
				return
			}
		}
	}
}

// FrameTimes returns the temporal coordinates of arbitrary absolute frames.
func (p *Plan) FrameTimes(frames []int) ([]float32, error) {
	ts := make([]float32, len(frames))
	for i, f := range frames {
		if f < 0 || f >= p.frames {
			return nil, fmt.Errorf("%w: frame %d not in [0, %d)", perlin.ErrOutOfRange, f, p.frames)
		}
		ts[i] = p.TimeAt(f)
	}
	return ts, nil
}

// Generate evaluates the noise engine over one chunk.
func (p *Plan) Generate(c Chunk) (*volume.Volume, error) {
	return perlin.Generate(p.xs, p.ys, c.Ts, p.noise)
}

// GenerateFrames evaluates the noise engine at arbitrary absolute frames.
func (p *Plan) GenerateFrames(frames []int) (*volume.Volume, error) {
	ts, err := p.FrameTimes(frames)
	if err != nil {
		return nil, err
	}
	return perlin.Generate(p.xs, p.ys, ts, p.noise)
}
