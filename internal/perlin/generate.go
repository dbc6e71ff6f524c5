package perlin

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

// Params configures one engine call.
type Params struct {
	Octaves     int
	Persistence float32
	Lacunarity  float32
	// Cutoff is the amplitude below which octave accumulation stops early.
	Cutoff  float64
	RepeatX int
	RepeatY int
	RepeatT int
	// Base is the seed, in [0, 255].
	Base int
}

// DefaultParams mirrors the classic single-octave defaults with a 1024-unit
// tiling period on every axis.
func DefaultParams() Params {
	return Params{
		Octaves:     1,
		Persistence: 0.5,
		Lacunarity:  2,
		Cutoff:      DefaultCutoff,
		RepeatX:     1024,
		RepeatY:     1024,
		RepeatT:     1024,
	}
}

func (p Params) octaves() Octaves {
	return Octaves{
		Count:       p.Octaves,
		Persistence: p.Persistence,
		Lacunarity:  p.Lacunarity,
		Cutoff:      p.Cutoff,
	}
}

// Validate checks everything except the coordinates themselves.
func (p Params) Validate() error {
	if p.Octaves < 1 {
		return fmt.Errorf("%w: octaves must be >= 1, got %d", ErrInvalidArgument, p.Octaves)
	}
	if !finite(p.Persistence) || p.Persistence < 0 {
		return fmt.Errorf("%w: persistence must be finite and >= 0, got %g", ErrInvalidArgument, p.Persistence)
	}
	if !finite(p.Lacunarity) || p.Lacunarity <= 0 {
		return fmt.Errorf("%w: lacunarity must be finite and > 0, got %g", ErrInvalidArgument, p.Lacunarity)
	}
	if p.Cutoff < 0 || math.IsNaN(p.Cutoff) {
		return fmt.Errorf("%w: cutoff must be >= 0, got %g", ErrInvalidArgument, p.Cutoff)
	}
	if p.RepeatX < 1 || p.RepeatY < 1 || p.RepeatT < 1 {
		return fmt.Errorf("%w: tiling periods must be positive, got (%d, %d, %d)",
			ErrInvalidArgument, p.RepeatX, p.RepeatY, p.RepeatT)
	}
	if p.Base < 0 || p.Base > 255 {
		return fmt.Errorf("%w: base must be between 0 and 255, got %d", ErrOutOfRange, p.Base)
	}
	return nil
}

// Sample evaluates the configured noise at one point without validation.
func (p Params) Sample(x, y, t float32) float32 {
	return Fractal(x, y, t, p.RepeatX, p.RepeatY, p.RepeatT, p.Base, p.octaves())
}

// CheckAxis verifies that every coordinate is finite, non-negative and
// strictly below repeat.
func CheckAxis(axis string, coords []float32, repeat int) error {
	if len(coords) == 0 {
		return fmt.Errorf("%w: %s axis has no samples", ErrInvalidArgument, axis)
	}
	limit := float32(repeat)
	for i, c := range coords {
		if !finite(c) || c < 0 {
			return fmt.Errorf("%w: %s[%d] = %g is not a finite non-negative coordinate", ErrOutOfRange, axis, i, c)
		}
		if c >= limit {
			return fmt.Errorf("%w: %s[%d] = %g must be < repeat%s %d", ErrOutOfRange, axis, i, c, axis, repeat)
		}
	}
	return nil
}

// Generate evaluates the noise over the outer product of xs, ys and ts and
// returns a volume shaped (len(xs), len(ys), len(ts)).
// All arguments are validated before the volume is allocated.
func Generate(xs, ys, ts []float32, p Params) (*volume.Volume, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := CheckAxis("x", xs, p.RepeatX); err != nil {
		return nil, err
	}
	if err := CheckAxis("y", ys, p.RepeatY); err != nil {
		return nil, err
	}
	if err := CheckAxis("t", ts, p.RepeatT); err != nil {
		return nil, err
	}

	v, err := volume.New(len(xs), len(ys), len(ts))
	if err != nil {
		return nil, err
	}
	o := p.octaves()
	n := 0
	for _, t := range ts {
		for _, y := range ys {
			for _, x := range xs {
				v.Data[n] = Fractal(x, y, t, p.RepeatX, p.RepeatY, p.RepeatT, p.Base, o)
				n++
			}
		}
	}
	return v, nil
}

func finite(x float32) bool {
	f := float64(x)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
