package tensor

import (
	"fmt"
	"unsafe"
)

// RawTensor is the low-level tensor representation: a contiguous row-major
// byte buffer plus shape, stride and runtime type information.
//
// RawTensor has single-owner semantics. Whoever allocated it (or received it
// from Clone) owns the storage; handing a *RawTensor to another component is
// a borrow unless documented otherwise.
type RawTensor struct {
	data   []byte   // Backing storage, len == ByteSize(), cap may exceed it
	shape  Shape    // Tensor dimensions
	stride []int    // Memory strides (row-major)
	dtype  DataType // Runtime type information
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zero-initialized.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * dtype.Size()

	return &RawTensor{
		data:   make([]byte, byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	if r.dtype != Uint8 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint8", r.dtype))
	}
	return r.data // Already []byte = []uint8
}

// Clone creates a deep copy with its own storage.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
	}
}

// Resize reshapes the tensor in place to match the given shape, reusing the
// backing array whenever its capacity suffices and reallocating only on
// growth. Contents after a Resize are unspecified; callers are expected to
// overwrite them.
//
// Returns whether a fresh allocation was performed, so callers tracking
// storage reuse can count allocations.
func (r *RawTensor) Resize(shape Shape) (grew bool, err error) {
	if err := shape.Validate(); err != nil {
		return false, fmt.Errorf("invalid shape: %w", err)
	}

	byteSize := shape.NumElements() * r.dtype.Size()
	switch {
	case byteSize <= cap(r.data):
		r.data = r.data[:byteSize]
	default:
		r.data = make([]byte, byteSize)
		grew = true
	}

	r.shape = shape.Clone()
	r.stride = shape.ComputeStrides()
	return grew, nil
}

// ResizeAs is shorthand for Resize(other.Shape()).
func (r *RawTensor) ResizeAs(other *RawTensor) (grew bool, err error) {
	return r.Resize(other.Shape())
}

// CopyFrom copies the contents of src into r. The two tensors must have the
// same dtype and element count.
func (r *RawTensor) CopyFrom(src *RawTensor) error {
	if r.dtype != src.dtype {
		return fmt.Errorf("dtype mismatch: %s vs %s", r.dtype, src.dtype)
	}
	if r.NumElements() != src.NumElements() {
		return fmt.Errorf("element count mismatch: %d vs %d", r.NumElements(), src.NumElements())
	}
	copy(r.data, src.data)
	return nil
}
