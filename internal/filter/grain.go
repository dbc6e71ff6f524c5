package filter

import (
	"github.com/aquilax/go-perlin"

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

const (
	grainAlpha  = 2.0
	grainBeta   = 2.0
	grainOctave = 3
)

// grain overlays classic (non-tiling) Perlin noise as a fine texture:
// x += strength * noise(x/scale, y/scale, t/scale). The optional third
// argument seeds the overlay. Results are not clipped.
func grain(v *volume.Volume, w Window, args []float64) {
	strength, scale := args[0], args[1]
	var seed int64
	if len(args) > 2 {
		seed = int64(args[2])
	}
	p := perlin.NewPerlin(grainAlpha, grainBeta, grainOctave, seed)

	for t := 0; t < v.NT; t++ {
		tt := float64(w.Start+t) / scale
		frame := v.Frame(t)
		for y := 0; y < v.NY; y++ {
			yy := float64(y) / scale
			for x := 0; x < v.NX; x++ {
				i := y*v.NX + x
				frame[i] += float32(strength * p.Noise3D(float64(x)/scale, yy, tt))
			}
		}
	}
}
