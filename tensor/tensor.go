// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense tensor substrate.
//
// The package exposes the low-level tensor representation used throughout
// seqnn:
//   - RawTensor: a dense, CPU-resident buffer with shape and dtype
//   - Shape, DataType: core type definitions
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
//	data := raw.AsFloat32() // type-checked view of the backing storage
//	grew, _ := raw.Resize(tensor.Shape{3})
package tensor

import (
	"github.com/born-ml/seqnn/internal/tensor"
)

// Type aliases for public API

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// RawTensor is the dense tensor representation.
//
// RawTensor provides:
//   - Shape and type information via Shape(), DType()
//   - Type-safe data access via AsFloat32(), AsInt64(), AsUint8()
//   - Deep copies via Clone()
//   - In-place reshaping via Resize(), which reuses the backing
//     storage whenever the new shape fits its capacity
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-filled tensor with the given shape and dtype.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype)
}

// Zeros creates a zero-filled Float32 tensor with the given shape.
func Zeros(shape Shape) (*RawTensor, error) {
	return tensor.Zeros(shape)
}

// FromFloat32 creates a Float32 tensor holding a copy of data.
// The shape must describe exactly len(data) elements.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape)
}

// Scalar creates a single-element Float32 tensor holding v.
func Scalar(v float32) *RawTensor {
	return tensor.Scalar(v)
}
