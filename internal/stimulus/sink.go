package stimulus

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"
)

// FrameSink receives discretized frames at their final output index. Frames
// may arrive in any order and from several goroutines.
type FrameSink interface {
	WriteFrame(index int, img *image.Gray) error
}

// Format selects the image encoding of a DirSink.
type Format string

const (
	// FormatTIFF writes Deflate-compressed TIFF frames.
	FormatTIFF Format = "tif"
	// FormatPNG writes PNG frames.
	FormatPNG Format = "png"
)

// ParseFormat validates a frame format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTIFF, "tiff":
		return FormatTIFF, nil
	case FormatPNG:
		return FormatPNG, nil
	}
	return "", fmt.Errorf("unsupported frame format %q (want tif or png)", s)
}

// DirSink writes numbered frame files into a directory, named so an encoder
// can read them back as an image sequence.
type DirSink struct {
	dir    string
	format Format
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string, format Format) (*DirSink, error) {
	if format != FormatTIFF && format != FormatPNG {
		return nil, fmt.Errorf("unsupported frame format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	return &DirSink{dir: dir, format: format}, nil
}

// Dir returns the output directory.
func (s *DirSink) Dir() string { return s.dir }

// Pattern returns the printf-style path of the frame sequence.
func (s *DirSink) Pattern() string {
	return filepath.Join(s.dir, "_frame%05d."+string(s.format))
}

// FramePath returns the file path of frame index.
func (s *DirSink) FramePath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("_frame%05d.%s", index, s.format))
}

// WriteFrame encodes img to the file of frame index, replacing any existing file.
func (s *DirSink) WriteFrame(index int, img *image.Gray) error {
	path := s.FramePath(index)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame %d: %w", index, err)
	}

	switch s.format {
	case FormatPNG:
		err = png.Encode(f, img)
	default:
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to encode frame %d: %w", index, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", index, err)
	}
	return nil
}

// Link makes frame dst a hard link to the already written frame src.
func (s *DirSink) Link(src, dst int) error {
	to := s.FramePath(dst)
	if err := os.Remove(to); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace frame %d: %w", dst, err)
	}
	if err := os.Link(s.FramePath(src), to); err != nil {
		return fmt.Errorf("failed to link frame %d to %d: %w", dst, src, err)
	}
	return nil
}

// Loop repeats frames [0, n) so the sequence plays times times in total.
func (s *DirSink) Loop(n, times int) error {
	for j := 1; j < times; j++ {
		for i := 0; i < n; i++ {
			if err := s.Link(i, i+j*n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clear removes every frame file written into the directory.
func (s *DirSink) Clear() error {
	matches, err := filepath.Glob(filepath.Join(s.dir, "_frame*."+string(s.format)))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("failed to remove %s: %w", m, err)
		}
	}
	return nil
}
