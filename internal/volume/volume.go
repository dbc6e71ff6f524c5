// Package volume holds dense (x, y, t) float32 noise volumes and the
// per-chunk value transforms applied between the noise engine and the
// frame encoder.
package volume

import (
	"fmt"
	"image"
)

// Volume is a dense 3-D array shaped (NX, NY, NT).
// Storage is frame-major: all samples of frame t are contiguous and laid out
// row by row, so a frame maps directly onto an image.Gray pixel buffer.
type Volume struct {
	Data []float32
	NX   int
	NY   int
	NT   int
}

// New allocates a zeroed volume.
func New(nx, ny, nt int) (*Volume, error) {
	if nx <= 0 || ny <= 0 || nt <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got %dx%dx%d", nx, ny, nt)
	}
	return &Volume{
		NX:   nx,
		NY:   ny,
		NT:   nt,
		Data: make([]float32, nx*ny*nt),
	}, nil
}

// Shape returns (len(x), len(y), len(t)).
func (v *Volume) Shape() (int, int, int) { return v.NX, v.NY, v.NT }

// FrameSize is the number of samples in one frame.
func (v *Volume) FrameSize() int { return v.NX * v.NY }

func (v *Volume) idx(x, y, t int) int { return (t*v.NY+y)*v.NX + x }

// At returns the sample at (x, y, t).
func (v *Volume) At(x, y, t int) float32 { return v.Data[v.idx(x, y, t)] }

// Set stores the sample at (x, y, t).
func (v *Volume) Set(x, y, t int, val float32) { v.Data[v.idx(x, y, t)] = val }

// Frame returns frame t as a slice aliasing the volume's storage.
func (v *Volume) Frame(t int) []float32 {
	n := v.FrameSize()
	return v.Data[t*n : (t+1)*n]
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	out := &Volume{NX: v.NX, NY: v.NY, NT: v.NT, Data: make([]float32, len(v.Data))}
	copy(out.Data, v.Data)
	return out
}

// MinMax returns the smallest and largest samples.
func (v *Volume) MinMax() (lo, hi float32) {
	if len(v.Data) == 0 {
		return 0, 0
	}
	lo, hi = v.Data[0], v.Data[0]
	for _, x := range v.Data[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

// ToUnit maps engine output from roughly [-1, 1] onto [0, 1] via (n+1)/2.
func (v *Volume) ToUnit() {
	for i, x := range v.Data {
		v.Data[i] = (x + 1) / 2
	}
}

// Rescale maps [lo, hi] linearly onto [0, 1]. A degenerate range maps
// everything to 0.
func (v *Volume) Rescale(lo, hi float32) {
	var scale float32
	if hi > lo {
		scale = 1 / (hi - lo)
	}
	for i, x := range v.Data {
		v.Data[i] = (x - lo) * scale
	}
}

// DemeanFrames subtracts each frame's spatial mean from that frame.
func (v *Volume) DemeanFrames() {
	n := v.FrameSize()
	for t := 0; t < v.NT; t++ {
		frame := v.Frame(t)
		var sum float64
		for _, x := range frame {
			sum += float64(x)
		}
		mean := float32(sum / float64(n))
		for i := range frame {
			frame[i] -= mean
		}
	}
}

// AccumulatePixelSums adds every pixel's sum over time into acc, which must
// hold FrameSize entries.
func (v *Volume) AccumulatePixelSums(acc []float64) error {
	n := v.FrameSize()
	if len(acc) != n {
		return fmt.Errorf("accumulator holds %d pixels, volume frames hold %d", len(acc), n)
	}
	for t := 0; t < v.NT; t++ {
		for i, x := range v.Frame(t) {
			acc[i] += float64(x)
		}
	}
	return nil
}

// SubtractPixelMean subtracts a per-pixel temporal mean from every frame.
func (v *Volume) SubtractPixelMean(mean []float32) error {
	n := v.FrameSize()
	if len(mean) != n {
		return fmt.Errorf("mean holds %d pixels, volume frames hold %d", len(mean), n)
	}
	for t := 0; t < v.NT; t++ {
		frame := v.Frame(t)
		for i := range frame {
			frame[i] -= mean[i]
		}
	}
	return nil
}

// Discretize converts a [0, 1] volume into 8-bit frames by truncating
// value*255. Values outside [0, 1] saturate.
func (v *Volume) Discretize() []*image.Gray {
	frames := make([]*image.Gray, v.NT)
	for t := 0; t < v.NT; t++ {
		img := image.NewGray(image.Rect(0, 0, v.NX, v.NY))
		for i, x := range v.Frame(t) {
			img.Pix[i] = ToByte(x)
		}
		frames[t] = img
	}
	return frames
}

// ToByte truncates a unit-interval value to 0..255.
func ToByte(x float32) uint8 {
	s := x * 255
	switch {
	case s != s || s <= 0:
		return 0
	case s >= 255:
		return 255
	}
	return uint8(s)
}
