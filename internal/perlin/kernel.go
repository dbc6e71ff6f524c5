// Package perlin implements tileable improved gradient noise in three
// dimensions (x, y, time) and its multi-octave fractal composition.
//
// All functions are pure and read only process-wide constant tables, so they
// may be called concurrently without synchronisation.
package perlin

func fade(t float32) float32 { return t * t * t * (t*(t*6-15) + 10) }

func lerp(t, a, b float32) float32 { return a + t*(b-a) }

func grad(hash uint8, x, y, z float32) float32 {
	g := &grad3[hash&15]
	return x*g[0] + y*g[1] + z*g[2]
}

func floor32(x float32) int {
	i := int(x)
	if x < float32(i) {
		i--
	}
	return i
}

// Noise3 evaluates one octave of gradient noise at (x, y, t).
//
// The field repeats with periods (rx, ry, rt) along each axis; all three must
// be positive. base in [0, 255] selects the realisation by rotating the
// starting point in the permutation table. The result is approximately in
// [-1, 1] and is exactly zero at integer lattice points.
func Noise3(x, y, t float32, rx, ry, rt int, base int) float32 {
	i := floor32(x)
	j := floor32(y)
	k := floor32(t)
	ii := (i + 1) % rx
	jj := (j + 1) % ry
	kk := (k + 1) % rt

	fx := x - float32(i)
	fy := y - float32(j)
	fz := t - float32(k)
	u := fade(fx)
	v := fade(fy)
	w := fade(fz)

	i = (i + base) & 255
	j = (j + base) & 255
	k = (k + base) & 255
	ii = (ii + base) & 255
	jj = (jj + base) & 255
	kk = (kk + base) & 255

	a := int(perm[i])
	aa := int(perm[a+j])
	ab := int(perm[a+jj])
	b := int(perm[ii])
	ba := int(perm[b+j])
	bb := int(perm[b+jj])

	near := lerp(v,
		lerp(u, grad(perm[aa+k], fx, fy, fz), grad(perm[ba+k], fx-1, fy, fz)),
		lerp(u, grad(perm[ab+k], fx, fy-1, fz), grad(perm[bb+k], fx-1, fy-1, fz)))
	far := lerp(v,
		lerp(u, grad(perm[aa+kk], fx, fy, fz-1), grad(perm[ba+kk], fx-1, fy, fz-1)),
		lerp(u, grad(perm[ab+kk], fx, fy-1, fz-1), grad(perm[bb+kk], fx-1, fy-1, fz-1)))
	return lerp(w, near, far)
}
