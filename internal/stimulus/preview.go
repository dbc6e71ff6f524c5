package stimulus

import (
	"image"

	"github.com/MeKo-Tech/zebranoise/internal/filter"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

// Preview renders single frames without generating the whole stimulus.
// Each frame is mapped from [-1, 1] to [0, 1] (after removing its spatial
// mean when demeanFrames is set), then filtered on its own so filters that
// depend on the absolute frame index see the right one.
func Preview(plan *grid.Plan, frames []int, filters []filter.Spec, demeanFrames bool) ([]*image.Gray, error) {
	if err := filter.Validate(filters); err != nil {
		return nil, err
	}
	v, err := plan.GenerateFrames(frames)
	if err != nil {
		return nil, err
	}
	if demeanFrames {
		v.DemeanFrames()
	}
	v.ToUnit()

	total := plan.NumFrames()
	out := make([]*image.Gray, len(frames))
	for i, f := range frames {
		one := &volume.Volume{NX: v.NX, NY: v.NY, NT: 1, Data: v.Frame(i)}
		if err := filter.Apply(one, filters, filter.Window{Start: f, Total: total}); err != nil {
			return nil, err
		}
		out[i] = one.Discretize()[0]
	}
	return out, nil
}
