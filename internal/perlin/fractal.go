package perlin

// DefaultCutoff stops octave accumulation once an octave's amplitude can no
// longer move an 8-bit output level.
const DefaultCutoff = 0.004

// Octaves controls the fractal sum.
type Octaves struct {
	// Count is the number of octaves; must be at least 1.
	Count int
	// Persistence scales the amplitude from one octave to the next.
	Persistence float32
	// Lacunarity scales the frequency from one octave to the next.
	Lacunarity float32
	// Cutoff ends the sum early once the next amplitude falls below it.
	// Zero disables the early exit.
	Cutoff float64
}

// Fractal sums Count octaves of Noise3 at growing frequency and shrinking
// amplitude and normalises by the total amplitude used. The tiling periods
// are scaled with the frequency so every octave tiles over the same extent.
func Fractal(x, y, t float32, rx, ry, rt int, base int, o Octaves) float32 {
	if o.Count == 1 {
		return Noise3(x, y, t, rx, ry, rt, base)
	}

	freq := float32(1)
	amp := float32(1)
	var total, maxAmp float32
	for octave := 0; octave < o.Count; octave++ {
		total += Noise3(x*freq, y*freq, t*freq,
			scaledPeriod(rx, freq), scaledPeriod(ry, freq), scaledPeriod(rt, freq), base) * amp
		maxAmp += amp
		freq *= o.Lacunarity
		amp *= o.Persistence
		if float64(amp) < o.Cutoff {
			break
		}
	}
	return total / maxAmp
}

// scaledPeriod truncates repeat*freq and keeps it at least one cell wide.
func scaledPeriod(repeat int, freq float32) int {
	p := int(float32(repeat) * freq)
	if p < 1 {
		return 1
	}
	return p
}
