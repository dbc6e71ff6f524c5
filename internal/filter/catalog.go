package filter

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

type builtin struct {
	apply   func(v *volume.Volume, w Window, args []float64)
	check   func(args []float64) error
	minArgs int
	// maxArgs < 0 means unbounded.
	maxArgs int
}

func (b builtin) arity() string {
	switch {
	case b.maxArgs < 0:
		return fmt.Sprintf("at least %d arguments", b.minArgs)
	case b.minArgs == b.maxArgs:
		return fmt.Sprintf("%d arguments", b.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
	}
}

var catalog map[string]builtin

func init() {
	catalog = map[string]builtin{
		"threshold": {minArgs: 1, maxArgs: 1, apply: pointwise(func(x float32, a []float64) float32 {
			if float64(x) > a[0] {
				return 1
			}
			return 0
		})},
		"softthresh": {minArgs: 1, maxArgs: 1, apply: pointwise(func(x float32, a []float64) float32 {
			return float32(1 / (1 + math.Exp(-a[0]*(float64(x)-0.5))))
		})},
		"comb": {minArgs: 1, maxArgs: 1, check: positiveArgs, apply: pointwise(func(x float32, a []float64) float32 {
			if floorMod(math.Floor(float64(x)/a[0]), 2) == 1 {
				return 1
			}
			return 0
		})},
		"invert": {apply: pointwise(func(x float32, _ []float64) float32 { return 1 - x })},
		// Reversal is an index transform, see IndexFunc.
		"reverse": {apply: func(*volume.Volume, Window, []float64) {}},
		"blur":    {minArgs: 1, maxArgs: 1, check: positiveArgs, apply: blur},
		"wood": {minArgs: 1, maxArgs: 1, check: positiveArgs, apply: pointwise(func(x float32, a []float64) float32 {
			return float32(floorMod(float64(x), a[0]) / a[0])
		})},
		"center": {apply: pointwise(func(x float32, _ []float64) float32 {
			return 1 - float32(math.Abs(float64(x)-0.5))*2
		})},
		"photodiode":          {minArgs: 1, maxArgs: 1, check: nonNegativeArgs, apply: photodiodeTopRight},
		"photodiode_anywhere": {minArgs: 3, maxArgs: 3, check: nonNegativeArgs, apply: photodiodeAnywhere},
		"photodiode_b2":       {apply: photodiodePreset(125, cornerTopRight)},
		"photodiode_fusi":     {apply: photodiodePreset(75, cornerTopRight)},
		"photodiode_bscope":   {apply: photodiodePreset(100, cornerBottomLeft)},
		"photodiode_ibl":      {maxArgs: -1, apply: photodiodeIBL},
		"grain":               {minArgs: 2, maxArgs: 3, check: grainArgs, apply: grain},
	}
}

// Names lists the built-in filters in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func pointwise(fn func(x float32, args []float64) float32) func(*volume.Volume, Window, []float64) {
	return func(v *volume.Volume, _ Window, args []float64) {
		for i, x := range v.Data {
			v.Data[i] = fn(x, args)
		}
	}
}

// floorMod returns x mod m with the sign of m.
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r != 0 && (r < 0) != (m < 0) {
		r += m
	}
	return r
}

func positiveArgs(args []float64) error {
	for _, a := range args {
		if !(a > 0) || math.IsInf(a, 0) {
			return fmt.Errorf("argument %g must be positive", a)
		}
	}
	return nil
}

func nonNegativeArgs(args []float64) error {
	for _, a := range args {
		if !(a >= 0) || math.IsInf(a, 0) {
			return fmt.Errorf("argument %g must be non-negative", a)
		}
	}
	return nil
}

func grainArgs(args []float64) error {
	if math.IsNaN(args[0]) || math.IsInf(args[0], 0) {
		return errors.New("strength must be finite")
	}
	if !(args[1] > 0) {
		return errors.New("scale must be positive")
	}
	return nil
}
