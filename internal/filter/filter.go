// Package filter applies ordered per-chunk transforms to unit-interval noise
// volumes and derives the frame reordering implied by a filter list.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

var (
	// ErrUnknownFilter is returned for a filter name outside the catalog.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrInvalidArgs is returned when a built-in filter receives the wrong
	// number or range of arguments.
	ErrInvalidArgs = errors.New("invalid filter arguments")
)

// Kind tags a Spec as a built-in or a custom transform.
type Kind int

const (
	// KindBuiltin selects a named catalog filter with numeric arguments.
	KindBuiltin Kind = iota
	// KindCustom runs a caller-supplied Transform.
	KindCustom
)

// Window locates a chunk inside the whole stimulus.
type Window struct {
	// Start is the absolute index of the chunk's first frame.
	Start int
	// Total is the number of frames in the stimulus.
	Total int
}

// Transform is a caller-supplied chunk transform. It must keep the volume's
// shape.
type Transform func(v *volume.Volume, w Window) error

// Spec is one entry of a filter list.
type Spec struct {
	Transform Transform
	Name      string
	Args      []float64
	Kind      Kind
}

// Named returns a built-in filter spec.
func Named(name string, args ...float64) Spec {
	return Spec{Kind: KindBuiltin, Name: name, Args: args}
}

// Custom wraps a transform as a filter spec. name is used in logs only.
func Custom(name string, fn Transform) Spec {
	return Spec{Kind: KindCustom, Name: name, Transform: fn}
}

func (s Spec) String() string {
	if s.Kind == KindCustom {
		return "custom:" + s.Name
	}
	if len(s.Args) == 0 {
		return s.Name
	}
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		parts[i] = strconv.FormatFloat(a, 'g', -1, 64)
	}
	return s.Name + ":" + strings.Join(parts, ",")
}

// Validate checks every spec against the catalog without touching any data.
func Validate(filters []Spec) error {
	for i, f := range filters {
		if err := validate(f); err != nil {
			return fmt.Errorf("filter %d (%s): %w", i, f, err)
		}
	}
	return nil
}

func validate(f Spec) error {
	switch f.Kind {
	case KindCustom:
		if f.Transform == nil {
			return fmt.Errorf("%w: custom filter %q has no transform", ErrInvalidArgs, f.Name)
		}
		return nil
	case KindBuiltin:
		b, ok := catalog[f.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFilter, f.Name)
		}
		if len(f.Args) < b.minArgs || (b.maxArgs >= 0 && len(f.Args) > b.maxArgs) {
			return fmt.Errorf("%w: %s takes %s, got %d", ErrInvalidArgs, f.Name, b.arity(), len(f.Args))
		}
		if b.check != nil {
			if err := b.check(f.Args); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidArgs, f.Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: kind %d", ErrUnknownFilter, f.Kind)
	}
}

// Apply runs the filters over v in order, in place.
func Apply(v *volume.Volume, filters []Spec, w Window) error {
	if err := Validate(filters); err != nil {
		return err
	}
	for _, f := range filters {
		nx, ny, nt := v.Shape()
		if f.Kind == KindCustom {
			if err := f.Transform(v, w); err != nil {
				return fmt.Errorf("filter %s: %w", f, err)
			}
		} else {
			catalog[f.Name].apply(v, w, f.Args)
		}
		if v.NX != nx || v.NY != ny || v.NT != nt {
			return fmt.Errorf("filter %s changed chunk shape from %dx%dx%d to %dx%dx%d", f, nx, ny, nt, v.NX, v.NY, v.NT)
		}
	}
	return nil
}
