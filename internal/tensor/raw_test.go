package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaw(t *testing.T) {
	raw, err := NewRaw(Shape{2, 3}, Float32)
	require.NoError(t, err)

	assert.True(t, raw.Shape().Equal(Shape{2, 3}))
	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, 24, raw.ByteSize())
	assert.Equal(t, []int{3, 1}, raw.Strides())

	// Fresh storage is zeroed.
	for _, v := range raw.AsFloat32() {
		assert.Equal(t, float32(0), v)
	}
}

func TestNewRaw_InvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, 0}, Float32)
	require.Error(t, err)

	_, err = NewRaw(Shape{-1}, Float32)
	require.Error(t, err)
}

func TestFromFloat32(t *testing.T) {
	raw, err := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, raw.AsFloat32())

	// Length mismatch is rejected.
	_, err = FromFloat32([]float32{1, 2, 3}, Shape{2, 2})
	require.Error(t, err)
}

func TestAsFloat32_WrongDType(t *testing.T) {
	raw, err := NewRaw(Shape{2}, Int64)
	require.NoError(t, err)
	assert.Panics(t, func() { raw.AsFloat32() })
}

// TestResize_ReusesStorage verifies that shrinking and re-growing within
// capacity never reallocates, which is what the step buffer pool relies on.
func TestResize_ReusesStorage(t *testing.T) {
	raw, err := NewRaw(Shape{4, 4}, Float32)
	require.NoError(t, err)

	grew, err := raw.Resize(Shape{2, 2})
	require.NoError(t, err)
	assert.False(t, grew, "shrink must not reallocate")
	assert.True(t, raw.Shape().Equal(Shape{2, 2}))
	assert.Equal(t, 4, raw.NumElements())

	grew, err = raw.Resize(Shape{4, 4})
	require.NoError(t, err)
	assert.False(t, grew, "regrow within capacity must not reallocate")

	grew, err = raw.Resize(Shape{8, 8})
	require.NoError(t, err)
	assert.True(t, grew, "growth beyond capacity must reallocate")
	assert.Equal(t, 64, raw.NumElements())
}

func TestResize_InvalidShape(t *testing.T) {
	raw, err := NewRaw(Shape{2}, Float32)
	require.NoError(t, err)

	_, err = raw.Resize(Shape{0})
	require.Error(t, err)
}

func TestResizeAs(t *testing.T) {
	a, err := NewRaw(Shape{3}, Float32)
	require.NoError(t, err)
	b, err := NewRaw(Shape{2, 5}, Float32)
	require.NoError(t, err)

	_, err = a.ResizeAs(b)
	require.NoError(t, err)
	assert.True(t, a.Shape().Equal(Shape{2, 5}))
}

func TestClone_Independent(t *testing.T) {
	a, err := FromFloat32([]float32{1, 2, 3}, Shape{3})
	require.NoError(t, err)

	b := a.Clone()
	b.AsFloat32()[0] = 99

	assert.Equal(t, float32(1), a.AsFloat32()[0], "clone must not alias original storage")
}

func TestCopyFrom(t *testing.T) {
	src, err := FromFloat32([]float32{5, 6}, Shape{2})
	require.NoError(t, err)
	dst, err := NewRaw(Shape{2}, Float32)
	require.NoError(t, err)

	require.NoError(t, dst.CopyFrom(src))
	assert.Equal(t, []float32{5, 6}, dst.AsFloat32())

	bad, err := NewRaw(Shape{3}, Float32)
	require.NoError(t, err)
	require.Error(t, dst.CopyFrom(bad))

	ints, err := NewRaw(Shape{2}, Int64)
	require.NoError(t, err)
	require.Error(t, dst.CopyFrom(ints))
}

func TestShape(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.True(t, s.Equal(Shape{2, 3, 4}))
	assert.False(t, s.Equal(Shape{2, 3}))

	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 2, s[0])

	assert.Equal(t, 1, Shape{}.NumElements())
}
