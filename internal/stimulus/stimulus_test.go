package stimulus

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zebranoise/internal/filter"
	"github.com/MeKo-Tech/zebranoise/internal/grid"
)

type memSink struct {
	frames map[int]*image.Gray
	mu     sync.Mutex
}

func newMemSink() *memSink { return &memSink{frames: map[int]*image.Gray{}} }

func (m *memSink) WriteFrame(index int, img *image.Gray) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.frames[index]; dup {
		return fmt.Errorf("frame %d written twice", index)
	}
	m.frames[index] = img
	return nil
}

// testPlan is 32x16 at 30 fps with 10 frames per temporal unit: 30 frames in
// chunks of 8, 8, 8 and 6.
func testPlan(t *testing.T, chunkFrames int) *grid.Plan {
	t.Helper()
	p := grid.DefaultParams(32, 16, 1)
	p.Levels = 2
	p.TScale = 10
	p.MaxChunkSamples = 32 * 16 * chunkFrames
	plan, err := grid.NewPlan(p)
	require.NoError(t, err)
	require.Equal(t, 30, plan.NumFrames())
	return plan
}

func stream(t *testing.T, plan *grid.Plan, filters []filter.Spec, workers int) *memSink {
	t.Helper()
	sink := newMemSink()
	n, err := Stream(context.Background(), plan, filters, sink, Options{Workers: workers})
	require.NoError(t, err)
	require.Equal(t, plan.NumFrames(), n)
	require.Len(t, sink.frames, n)
	return sink
}

func TestStream_WritesEveryFrame(t *testing.T) {
	plan := testPlan(t, 8)
	require.Equal(t, 4, plan.NumChunks())

	var frames atomic.Int32
	var lastCompleted int
	sink := newMemSink()
	n, err := Stream(context.Background(), plan, []filter.Spec{filter.Named("comb", 0.08)}, sink, Options{
		OnFrames:   func(n int) { frames.Add(int32(n)) },
		OnProgress: func(completed, _, _ int) { lastCompleted = completed },
	})
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	assert.Equal(t, int32(30), frames.Load())
	assert.Equal(t, 4, lastCompleted)

	for i := 0; i < 30; i++ {
		img, ok := sink.frames[i]
		require.True(t, ok, "frame %d missing", i)
		assert.Equal(t, image.Rect(0, 0, 32, 16), img.Bounds())
		for _, p := range img.Pix {
			require.True(t, p == 0 || p == 255, "comb output must be binary, got %d", p)
		}
	}
}

func TestStream_ChunkingAndWorkersDoNotChangeOutput(t *testing.T) {
	ref := stream(t, testPlan(t, 30), nil, 1)
	small := stream(t, testPlan(t, 8), nil, 1)
	parallel := stream(t, testPlan(t, 4), nil, 3)

	for i := 0; i < 30; i++ {
		assert.Equal(t, ref.frames[i].Pix, small.frames[i].Pix, "frame %d", i)
		assert.Equal(t, ref.frames[i].Pix, parallel.frames[i].Pix, "frame %d", i)
	}
}

func TestStream_ReverseRemapsFrames(t *testing.T) {
	plan := testPlan(t, 8)
	plain := stream(t, plan, nil, 1)
	rev := stream(t, plan, []filter.Spec{filter.Named("reverse")}, 2)

	for i := 0; i < 30; i++ {
		assert.Equal(t, plain.frames[29-i].Pix, rev.frames[i].Pix, "frame %d", i)
	}
}

func TestStream_PhotodiodeFollowsAbsoluteFrame(t *testing.T) {
	sink := stream(t, testPlan(t, 8), []filter.Spec{filter.Named("photodiode", 4)}, 2)
	for i := 0; i < 30; i++ {
		want := uint8(0)
		if i%2 == 1 {
			want = 255
		}
		assert.Equal(t, want, sink.frames[i].GrayAt(31, 0).Y, "frame %d", i)
	}
}

func TestStream_RejectsFiltersBeforeGenerating(t *testing.T) {
	sink := newMemSink()
	_, err := Stream(context.Background(), testPlan(t, 8), []filter.Spec{filter.Named("sharpen")}, sink, Options{})
	require.ErrorIs(t, err, filter.ErrUnknownFilter)
	assert.Empty(t, sink.frames)

	_, err = Stream(context.Background(), testPlan(t, 8), []filter.Spec{filter.Named("comb")}, sink, Options{})
	require.ErrorIs(t, err, filter.ErrInvalidArgs)
}

func TestStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Stream(ctx, testPlan(t, 8), nil, newMemSink(), Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPreview_MatchesStream(t *testing.T) {
	plan := testPlan(t, 8)
	filters := []filter.Spec{filter.Named("photodiode", 4), filter.Named("threshold", 0.5)}
	streamed := stream(t, plan, filters, 1)

	frames, err := Preview(plan, []int{5, 12, 29}, filters, false)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, streamed.frames[5].Pix, frames[0].Pix)
	assert.Equal(t, streamed.frames[12].Pix, frames[1].Pix)
	assert.Equal(t, streamed.frames[29].Pix, frames[2].Pix)

	_, err = Preview(plan, []int{30}, nil, false)
	require.Error(t, err)
}
