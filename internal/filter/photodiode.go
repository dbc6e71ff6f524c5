package filter

import (
	"image"
	"math/rand"

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

type corner int

const (
	cornerTopRight corner = iota
	cornerBottomLeft
)

const (
	iblSize     = 75
	iblRight    = 1995
	iblBottom   = 1500
	iblRepeats  = 8
	iblSeqLen   = 3600
	iblSeqSeed  = 1234
	iblMidpoint = 0.5
)

// iblSequence holds one random value per group of iblRepeats frames.
var iblSequence = func() []float64 {
	rng := rand.New(rand.NewSource(iblSeqSeed))
	seq := make([]float64, iblSeqLen*iblRepeats)
	for i := 0; i < iblSeqLen; i++ {
		r := rng.Float64()
		for j := 0; j < iblRepeats; j++ {
			seq[i*iblRepeats+j] = r
		}
	}
	return seq
}()

func cornerRect(v *volume.Volume, size int, c corner) image.Rectangle {
	if c == cornerBottomLeft {
		return image.Rect(0, v.NY-size, size, v.NY)
	}
	return image.Rect(v.NX-size, 0, v.NX, size)
}

// fillRegion sets r (clipped to the frame) in every frame to value(t), where
// t is the absolute frame index.
func fillRegion(v *volume.Volume, w Window, r image.Rectangle, value func(abs int) float32) {
	r = r.Intersect(image.Rect(0, 0, v.NX, v.NY))
	if r.Empty() {
		return
	}
	for t := 0; t < v.NT; t++ {
		val := value(w.Start + t)
		frame := v.Frame(t)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			row := frame[y*v.NX : (y+1)*v.NX]
			for x := r.Min.X; x < r.Max.X; x++ {
				row[x] = val
			}
		}
	}
}

// alternating is black on even frames and white on odd frames.
func alternating(abs int) float32 { return float32(abs & 1) }

func photodiodeTopRight(v *volume.Volume, w Window, args []float64) {
	fillRegion(v, w, cornerRect(v, int(args[0]), cornerTopRight), alternating)
}

func photodiodeAnywhere(v *volume.Volume, w Window, args []float64) {
	x, y, s := int(args[0]), int(args[1]), int(args[2])
	fillRegion(v, w, image.Rect(x, y, x+s, y+s), alternating)
}

func photodiodePreset(size int, c corner) func(*volume.Volume, Window, []float64) {
	return func(v *volume.Volume, w Window, _ []float64) {
		fillRegion(v, w, cornerRect(v, size, c), alternating)
	}
}

// photodiodeIBL drives a fixed patch from a pseudo-random binary sequence.
// Explicit arguments replace the built-in sequence. Either sequence is indexed
// by absolute frame and repeats when exhausted.
func photodiodeIBL(v *volume.Volume, w Window, args []float64) {
	seq := iblSequence
	if len(args) > 0 {
		seq = args
	}
	r := image.Rect(iblRight-iblSize, iblBottom-iblSize, iblRight, iblBottom)
	fillRegion(v, w, r, func(abs int) float32 {
		if seq[abs%len(seq)] > iblMidpoint {
			return 1
		}
		return 0
	})
}
