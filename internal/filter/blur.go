package filter

import (
	"image"
	"math"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/zebranoise/internal/volume"
)

// blur applies a Gaussian blur to every frame with wrap-around edges, so a
// spatially tiling stimulus stays seamless. Each frame is padded with its own
// wrapped pixels, blurred, and cropped back to size. Frames are processed at
// 16-bit precision.
func blur(v *volume.Volume, _ Window, args []float64) {
	sigma := float32(args[0])
	w, h := v.NX, v.NY
	pad := int(math.Ceil(3 * float64(sigma)))

	g := gift.New(
		gift.GaussianBlur(sigma),
		gift.Crop(image.Rect(pad, pad, pad+w, pad+h)),
	)
	src := image.NewGray16(image.Rect(0, 0, w+2*pad, h+2*pad))
	dst := image.NewGray16(g.Bounds(src.Bounds()))

	for t := 0; t < v.NT; t++ {
		frame := v.Frame(t)
		for y := 0; y < h+2*pad; y++ {
			sy := wrap(y-pad, h)
			for x := 0; x < w+2*pad; x++ {
				sx := wrap(x-pad, w)
				val := toGray16(frame[sy*w+sx])
				i := src.PixOffset(x, y)
				src.Pix[i] = uint8(val >> 8)
				src.Pix[i+1] = uint8(val)
			}
		}

		g.Draw(dst, src)

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := dst.PixOffset(x, y)
				val := uint16(dst.Pix[i])<<8 | uint16(dst.Pix[i+1])
				frame[y*w+x] = float32(val) / 0xffff
			}
		}
	}
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func toGray16(x float32) uint16 {
	switch {
	case !(x > 0):
		return 0
	case x >= 1:
		return 0xffff
	}
	return uint16(math.Round(float64(x) * 0xffff))
}
