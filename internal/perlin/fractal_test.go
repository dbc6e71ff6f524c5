package perlin

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFractal_SingleOctaveMatchesKernel(t *testing.T) {
	o := Octaves{Count: 1, Persistence: 0.5, Lacunarity: 2, Cutoff: DefaultCutoff}
	for _, p := range [][3]float32{{0.3, 0.6, 0.2}, {12.75, 3.1, 40.5}} {
		want := Noise3(p[0], p[1], p[2], 64, 64, 64, 3)
		got := Fractal(p[0], p[1], p[2], 64, 64, 64, 3, o)
		assert.Equal(t, math.Float32bits(want), math.Float32bits(got))
	}
}

func TestFractal_ZeroPersistenceKeepsFirstOctave(t *testing.T) {
	o := Octaves{Count: 5, Persistence: 0, Lacunarity: 2, Cutoff: DefaultCutoff}
	for _, p := range [][3]float32{{0.3, 0.6, 0.2}, {12.75, 3.1, 40.5}, {0.5, 0, 0}} {
		want := Noise3(p[0], p[1], p[2], 64, 64, 64, 11)
		got := Fractal(p[0], p[1], p[2], 64, 64, 64, 11, o)
		assert.Equal(t, math.Float32bits(want), math.Float32bits(got))
	}
}

func TestFractal_TilesAcrossPeriod(t *testing.T) {
	// Integer lacunarity keeps every octave's scaled period a whole multiple,
	// so the sum wraps at the base periods.
	const rx, ry, rt = 133, 100, 30
	o := Octaves{Count: 10, Persistence: 0.5, Lacunarity: 2, Cutoff: DefaultCutoff}
	for _, p := range [][2]float32{{0.6, 0.2}, {41.25, 3.5}, {97.9, 12.1}} {
		a, b := p[0], p[1]
		start := Fractal(0, a, b, rx, ry, rt, 5, o)
		end := Fractal(rx-1e-4, a, b, rx, ry, rt, 5, o)
		assert.InDelta(t, start, end, 2e-3, "x seam at y=%g t=%g", a, b)

		start = Fractal(a, 0, b, rx, ry, rt, 5, o)
		end = Fractal(a, ry-1e-4, b, rx, ry, rt, 5, o)
		assert.InDelta(t, start, end, 2e-3, "y seam at x=%g t=%g", a, b)

		start = Fractal(a, b, 0, rx, ry, rt, 5, o)
		end = Fractal(a, b, rt-1e-4, rx, ry, rt, 5, o)
		assert.InDelta(t, start, end, 2e-3, "t seam at x=%g y=%g", a, b)
	}
}

func TestFractal_CutoffEndsEarly(t *testing.T) {
	// With persistence 0.5 the ninth octave has amplitude 1/256 < 0.004, so a
	// 20-octave request must equal a 9-octave one.
	long := Octaves{Count: 20, Persistence: 0.5, Lacunarity: 2, Cutoff: DefaultCutoff}
	short := Octaves{Count: 9, Persistence: 0.5, Lacunarity: 2, Cutoff: DefaultCutoff}
	x, y, z := float32(0.37), float32(0.81), float32(1.62)
	assert.Equal(t, Fractal(x, y, z, 8, 8, 8, 0, short), Fractal(x, y, z, 8, 8, 8, 0, long))

	unbounded := Octaves{Count: 20, Persistence: 0.5, Lacunarity: 2}
	assert.InDelta(t, Fractal(x, y, z, 8, 8, 8, 0, long), Fractal(x, y, z, 8, 8, 8, 0, unbounded), 0.01)
}

func TestFractal_NormalisedRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	combos := []Octaves{
		{Count: 2, Persistence: 0.5, Lacunarity: 2, Cutoff: DefaultCutoff},
		{Count: 8, Persistence: 0.7, Lacunarity: 2, Cutoff: DefaultCutoff},
		{Count: 10, Persistence: 0.2, Lacunarity: 3, Cutoff: DefaultCutoff},
		{Count: 4, Persistence: 1, Lacunarity: 1.5, Cutoff: DefaultCutoff},
		{Count: 6, Persistence: 0.5, Lacunarity: 0.5, Cutoff: DefaultCutoff},
	}
	for _, o := range combos {
		for i := 0; i < 5000; i++ {
			x := rng.Float32() * 20
			y := rng.Float32() * 20
			z := rng.Float32() * 20
			v := float64(Fractal(x, y, z, 32, 32, 32, rng.Intn(256), o))
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%+v", o)
			require.LessOrEqual(t, math.Abs(v), 1.2, "%+v at (%g,%g,%g)", o, x, y, z)
		}
	}
}

func TestGenerate_SingleOctaveScenario(t *testing.T) {
	p := DefaultParams()
	v, err := Generate([]float32{0, 0.5, 1}, []float32{0}, []float32{0}, p)
	require.NoError(t, err)

	nx, ny, nt := v.Shape()
	assert.Equal(t, []int{3, 1, 1}, []int{nx, ny, nt})
	assert.Zero(t, v.At(0, 0, 0))
	assert.Zero(t, v.At(2, 0, 0))
	assert.Greater(t, v.At(1, 0, 0), float32(-1))
	assert.Less(t, v.At(1, 0, 0), float32(1))

	p.Base = 1
	v, err = Generate([]float32{0, 0.5, 1}, []float32{0}, []float32{0}, p)
	require.NoError(t, err)
	assert.NotZero(t, v.At(1, 0, 0))
}

func TestGenerate_MultiOctaveScenario(t *testing.T) {
	xs := []float32{0, 0.5, 1, 1.7}
	ys := []float32{0, 0.25}
	ts := []float32{0, 0.6}

	single := DefaultParams()
	one, err := Generate(xs, ys, ts, single)
	require.NoError(t, err)

	multi := DefaultParams()
	multi.Octaves = 5
	many, err := Generate(xs, ys, ts, multi)
	require.NoError(t, err)

	for i := range many.Data {
		v := float64(many.Data[i])
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		assert.LessOrEqual(t, math.Abs(v), 1.2)
	}

	multi.Persistence = 0
	flat, err := Generate(xs, ys, ts, multi)
	require.NoError(t, err)
	assert.Equal(t, one.Data, flat.Data)
}

func TestGenerate_LayoutMatchesSample(t *testing.T) {
	p := DefaultParams()
	p.Octaves = 3
	p.Base = 42
	xs := []float32{0.1, 0.9, 2.3}
	ys := []float32{0.4, 1.6}
	ts := []float32{0.2, 5.5}

	v, err := Generate(xs, ys, ts, p)
	require.NoError(t, err)
	for it, tt := range ts {
		for iy, y := range ys {
			for ix, x := range xs {
				assert.Equal(t, p.Sample(x, y, tt), v.At(ix, iy, it))
			}
		}
	}
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	xs := []float32{0, 0.5}
	base := DefaultParams()
	base.RepeatX = 4

	cases := []struct {
		name   string
		xs     []float32
		mutate func(*Params)
		want   error
	}{
		{"zero octaves", xs, func(p *Params) { p.Octaves = 0 }, ErrInvalidArgument},
		{"negative persistence", xs, func(p *Params) { p.Persistence = -0.1 }, ErrInvalidArgument},
		{"zero lacunarity", xs, func(p *Params) { p.Lacunarity = 0 }, ErrInvalidArgument},
		{"nan lacunarity", xs, func(p *Params) { p.Lacunarity = float32(math.NaN()) }, ErrInvalidArgument},
		{"zero period", xs, func(p *Params) { p.RepeatT = 0 }, ErrInvalidArgument},
		{"seed too large", xs, func(p *Params) { p.Base = 256 }, ErrOutOfRange},
		{"seed negative", xs, func(p *Params) { p.Base = -1 }, ErrOutOfRange},
		{"coordinate equals period", []float32{0, 4}, func(p *Params) {}, ErrOutOfRange},
		{"coordinate beyond period", []float32{0, 7.5}, func(p *Params) {}, ErrOutOfRange},
		{"negative coordinate", []float32{-0.5, 1}, func(p *Params) {}, ErrOutOfRange},
		{"nan coordinate", []float32{float32(math.NaN())}, func(p *Params) {}, ErrOutOfRange},
		{"empty axis", nil, func(p *Params) {}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := Generate(tc.xs, []float32{0}, []float32{0}, p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	_, err := Generate([]float32{0, 3.99}, []float32{0}, []float32{0}, base)
	assert.NoError(t, err)
}
