package stimulus

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Encoder turns a frame sequence into a video by running ffmpeg.
type Encoder struct {
	// FFmpeg is the executable to run; "ffmpeg" when empty.
	FFmpeg string
	// Codec defaults to mpeg2video.
	Codec string
	FPS   int
	// BitrateMbps is the target bitrate in megabits per second.
	BitrateMbps int
}

// Output normalises a video file name to end in .mp4.
func Output(path string) string {
	if strings.HasSuffix(path, ".mp4") {
		return path
	}
	return path + ".mp4"
}

// Args returns the ffmpeg arguments encoding pattern into out.
func (e Encoder) Args(pattern, out string) []string {
	codec := e.Codec
	if codec == "" {
		codec = "mpeg2video"
	}
	return []string{
		"-r", strconv.Itoa(e.FPS),
		"-i", pattern,
		"-c:v", codec,
		"-an",
		"-b:v", strconv.Itoa(e.BitrateMbps) + "M",
		out,
	}
}

// Encode runs ffmpeg over the frames of sink. It refuses to overwrite an
// existing video.
func (e Encoder) Encode(ctx context.Context, sink *DirSink, out string) error {
	if e.FPS <= 0 || e.BitrateMbps <= 0 {
		return fmt.Errorf("encoder needs positive fps and bitrate, got %d, %d", e.FPS, e.BitrateMbps)
	}
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("output video %s already exists", out)
	}

	bin := e.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, e.Args(sink.Pattern(), out)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLines(string(output), 5))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
