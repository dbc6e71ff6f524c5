package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Progress tracks and displays chunk processing progress. Rates are reported
// in frames per second since chunks differ in length.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	frames    int
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a new progress tracker for total chunks.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// AddFrames records frames written by a finished chunk.
func (p *Progress) AddFrames(n int) {
	p.mu.Lock()
	p.frames += n
	p.mu.Unlock()
}

// Update records the completion of a task.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

type snapshot struct {
	elapsed   time.Duration
	completed int
	total     int
	failed    int
	frames    int
}

func (p *Progress) snapshot() snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshot{
		elapsed:   time.Since(p.startTime),
		completed: p.completed,
		total:     p.total,
		failed:    p.failed,
		frames:    p.frames,
	}
}

// Print displays the current progress to output.
func (p *Progress) Print() {
	s := p.snapshot()

	var rate float64
	var eta time.Duration
	if s.completed > 0 && s.elapsed > 0 {
		rate = float64(s.frames) / s.elapsed.Seconds()
		perChunk := s.elapsed / time.Duration(s.completed)
		eta = perChunk * time.Duration(s.total-s.completed)
	}

	const barWidth = 30
	filled := 0
	if s.total > 0 {
		filled = s.completed * barWidth / s.total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	var b strings.Builder
	fmt.Fprintf(&b, "\r[%s] %d/%d chunks", bar, s.completed, s.total)
	if s.failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.failed)
	}
	fmt.Fprintf(&b, " - %d frames, %.1f frames/sec", s.frames, rate)
	if eta > 0 && s.completed < s.total {
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}
	if s.completed == s.total {
		fmt.Fprintf(&b, " - Done in %s", formatDuration(s.elapsed))
	}
	// Clear leftovers from a longer previous line.
	b.WriteString("          ")

	fmt.Fprint(p.output, b.String())
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary returns a summary string of the completed work.
func (p *Progress) Summary() string {
	s := p.snapshot()

	var rate float64
	if s.elapsed.Seconds() > 0 {
		rate = float64(s.frames) / s.elapsed.Seconds()
	}

	return fmt.Sprintf("Processed %d/%d chunks (%d failed), %d frames in %s (%.1f frames/sec)",
		s.completed-s.failed, s.total, s.failed, s.frames, formatDuration(s.elapsed), rate)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
