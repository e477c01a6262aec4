package tensor

import "fmt"

// Zeros creates a zero-filled Float32 tensor with the given shape.
func Zeros(shape Shape) (*RawTensor, error) {
	return NewRaw(shape, Float32)
}

// FromFloat32 creates a Float32 tensor from a slice with the given shape.
// The data is copied; the caller keeps ownership of the slice.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	raw, err := NewRaw(shape, Float32)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, raw.NumElements())
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// Scalar creates a one-element Float32 tensor holding v.
func Scalar(v float32) *RawTensor {
	raw, _ := NewRaw(Shape{1}, Float32)
	raw.AsFloat32()[0] = v
	return raw
}
