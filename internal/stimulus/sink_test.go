package stimulus

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func gradient(nx, ny int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, nx, ny))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img
}

func decodeFrame(t *testing.T, path string, format Format) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var img image.Image
	if format == FormatPNG {
		img, err = png.Decode(f)
	} else {
		img, err = tiff.Decode(f)
	}
	require.NoError(t, err)
	return img
}

func TestDirSink_WriteFrame(t *testing.T) {
	for _, format := range []Format{FormatTIFF, FormatPNG} {
		t.Run(string(format), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "frames")
			sink, err := NewDirSink(dir, format)
			require.NoError(t, err)

			want := gradient(9, 5)
			require.NoError(t, sink.WriteFrame(42, want))

			path := sink.FramePath(42)
			assert.Equal(t, filepath.Join(dir, "_frame00042."+string(format)), path)

			got := decodeFrame(t, path, format)
			require.Equal(t, want.Bounds(), got.Bounds())
			for y := 0; y < 5; y++ {
				for x := 0; x < 9; x++ {
					r, _, _, _ := got.At(x, y).RGBA()
					assert.Equal(t, want.GrayAt(x, y).Y, uint8(r>>8), "pixel (%d,%d)", x, y)
				}
			}
		})
	}
}

func TestDirSink_LoopLinksFrames(t *testing.T) {
	sink, err := NewDirSink(t.TempDir(), FormatPNG)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.WriteFrame(i, gradient(4, 4)))
	}
	require.NoError(t, sink.Loop(3, 3))

	for i := 0; i < 9; i++ {
		info, err := os.Stat(sink.FramePath(i))
		require.NoError(t, err, "frame %d", i)
		src, err := os.Stat(sink.FramePath(i % 3))
		require.NoError(t, err)
		assert.True(t, os.SameFile(src, info), "frame %d should link to %d", i, i%3)
	}

	// Looping again replaces the links instead of failing.
	require.NoError(t, sink.Loop(3, 2))

	require.NoError(t, sink.Clear())
	matches, err := filepath.Glob(filepath.Join(sink.Dir(), "_frame*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestGreyPad(t *testing.T) {
	sink, err := NewDirSink(t.TempDir(), FormatTIFF)
	require.NoError(t, err)

	require.NoError(t, GreyPad(sink, 6, 4, 5))
	for i := 0; i < 5; i++ {
		img := decodeFrame(t, sink.FramePath(i), FormatTIFF)
		r, _, _, _ := img.At(3, 2).RGBA()
		assert.Equal(t, uint8(GreyLevel), uint8(r>>8), "frame %d", i)
	}
	_, err = os.Stat(sink.FramePath(5))
	assert.True(t, os.IsNotExist(err))

	require.Error(t, GreyPad(sink, 6, 4, 0))
	require.Error(t, GreyPad(sink, 0, 4, 1))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("tiff")
	require.NoError(t, err)
	assert.Equal(t, FormatTIFF, f)

	f, err = ParseFormat("png")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	_, err = ParseFormat("gif")
	require.Error(t, err)

	_, err = NewDirSink(t.TempDir(), Format("gif"))
	require.Error(t, err)
}

func TestEncoder(t *testing.T) {
	sink, err := NewDirSink(t.TempDir(), FormatTIFF)
	require.NoError(t, err)

	e := Encoder{FPS: 60, BitrateMbps: 20}
	assert.Equal(t, []string{
		"-r", "60",
		"-i", sink.Pattern(),
		"-c:v", "mpeg2video",
		"-an",
		"-b:v", "20M",
		"out.mp4",
	}, e.Args(sink.Pattern(), "out.mp4"))

	assert.Equal(t, "clip.mp4", Output("clip"))
	assert.Equal(t, "clip.mp4", Output("clip.mp4"))

	existing := filepath.Join(t.TempDir(), "done.mp4")
	require.NoError(t, os.WriteFile(existing, nil, 0o644))
	err = e.Encode(context.Background(), sink, existing)
	require.ErrorContains(t, err, "already exists")

	err = Encoder{FPS: 0, BitrateMbps: 20}.Encode(context.Background(), sink, "x.mp4")
	require.Error(t, err)

	err = Encoder{FFmpeg: filepath.Join(t.TempDir(), "no-such-ffmpeg"), FPS: 30, BitrateMbps: 1}.
		Encode(context.Background(), sink, filepath.Join(t.TempDir(), "x.mp4"))
	require.ErrorContains(t, err, "ffmpeg failed")
}
