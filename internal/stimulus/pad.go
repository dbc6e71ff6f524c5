package stimulus

import (
	"fmt"
	"image"
)

// GreyLevel is the 8-bit value of a padding frame.
const GreyLevel = 127

// GreyFrame returns a uniform mid-grey frame.
func GreyFrame(nx, ny int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, nx, ny))
	for i := range img.Pix {
		img.Pix[i] = GreyLevel
	}
	return img
}

// GreyPad writes n grey frames into sink: one encoded frame, hard-linked for
// the rest.
func GreyPad(sink *DirSink, nx, ny, n int) error {
	if n <= 0 {
		return fmt.Errorf("grey pad needs at least one frame, got %d", n)
	}
	if nx <= 0 || ny <= 0 {
		return fmt.Errorf("grey pad frame size must be positive, got %dx%d", nx, ny)
	}
	if err := sink.WriteFrame(0, GreyFrame(nx, ny)); err != nil {
		return err
	}
	for i := 1; i < n; i++ {
		if err := sink.Link(0, i); err != nil {
			return err
		}
	}
	return nil
}
