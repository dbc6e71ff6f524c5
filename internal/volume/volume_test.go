package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsEmptyShape(t *testing.T) {
	_, err := New(0, 4, 4)
	require.Error(t, err)

	v, err := New(3, 2, 4)
	require.NoError(t, err)
	nx, ny, nt := v.Shape()
	assert.Equal(t, []int{3, 2, 4}, []int{nx, ny, nt})
	assert.Len(t, v.Data, 24)
}

func TestFrameIsContiguous(t *testing.T) {
	v, err := New(3, 2, 2)
	require.NoError(t, err)

	v.Set(2, 1, 1, 7)
	frame := v.Frame(1)
	assert.Equal(t, float32(7), frame[1*3+2])

	frame[0] = 5
	assert.Equal(t, float32(5), v.At(0, 0, 1), "frame must alias storage")
}

func TestDemeanFrames(t *testing.T) {
	v, err := New(2, 2, 2)
	require.NoError(t, err)
	copy(v.Data, []float32{1, 2, 3, 4, 10, 10, 10, 10})

	v.DemeanFrames()

	assert.Equal(t, []float32{-1.5, -0.5, 0.5, 1.5}, v.Frame(0))
	assert.Equal(t, []float32{0, 0, 0, 0}, v.Frame(1))
}

func TestPixelMeanRoundTrip(t *testing.T) {
	v, err := New(2, 1, 3)
	require.NoError(t, err)
	copy(v.Data, []float32{1, 2, 3, 4, 5, 6})

	acc := make([]float64, 2)
	require.NoError(t, v.AccumulatePixelSums(acc))
	assert.Equal(t, []float64{9, 12}, acc)

	require.NoError(t, v.SubtractPixelMean([]float32{3, 4}))
	assert.Equal(t, []float32{-2, -2, 0, 0, 2, 2}, v.Data)

	assert.Error(t, v.AccumulatePixelSums(make([]float64, 3)))
	assert.Error(t, v.SubtractPixelMean(make([]float32, 1)))
}

func TestRescaleAndDiscretize(t *testing.T) {
	v, err := New(4, 1, 1)
	require.NoError(t, err)
	copy(v.Data, []float32{-2, 0, 1, 2})

	lo, hi := v.MinMax()
	assert.Equal(t, float32(-2), lo)
	assert.Equal(t, float32(2), hi)

	v.Rescale(lo, hi)
	assert.InDeltaSlice(t, []float32{0, 0.5, 0.75, 1}, v.Data, 1e-6)

	frames := v.Discretize()
	require.Len(t, frames, 1)
	assert.Equal(t, []uint8{0, 127, 191, 255}, frames[0].Pix)
}

func TestToUnitAndSaturation(t *testing.T) {
	v, err := New(3, 1, 1)
	require.NoError(t, err)
	copy(v.Data, []float32{-1, 0, 1})
	v.ToUnit()
	assert.Equal(t, []float32{0, 0.5, 1}, v.Data)

	assert.Equal(t, uint8(0), ToByte(-0.3))
	assert.Equal(t, uint8(255), ToByte(1.7))
}

func TestBinaryCodec(t *testing.T) {
	v, err := New(2, 3, 2)
	require.NoError(t, err)
	for i := range v.Data {
		v.Data[i] = float32(i) * 0.25
	}

	data, err := v.MarshalBinary()
	require.NoError(t, err)

	var out Volume
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, v.Data, out.Data)
	assert.Equal(t, 2, out.NX)
	assert.Equal(t, 3, out.NY)
	assert.Equal(t, 2, out.NT)

	assert.Error(t, out.UnmarshalBinary(data[:len(data)-1]))
}
