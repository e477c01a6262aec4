// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/born-ml/seqnn/tensor"
)

// TestRawTensorAPI verifies the RawTensor type alias exposes the expected API.
func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32)
	if err != nil {
		t.Fatalf("NewRaw failed: %v", err)
	}

	if !raw.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Shape() = %v, want [2 3]", raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		t.Errorf("DType() = %v, want Float32", raw.DType())
	}
	if n := len(raw.AsFloat32()); n != 6 {
		t.Errorf("len(AsFloat32()) = %d, want 6", n)
	}

	clone := raw.Clone()
	if clone == nil {
		t.Fatal("Clone() returned nil")
	}
	clone.AsFloat32()[0] = 1
	if raw.AsFloat32()[0] != 0 {
		t.Error("Clone() shares storage with the original")
	}
}

// TestResizeAPI verifies Resize reports growth through the alias.
func TestResizeAPI(t *testing.T) {
	raw, err := tensor.Zeros(tensor.Shape{4})
	if err != nil {
		t.Fatalf("Zeros failed: %v", err)
	}

	grew, err := raw.Resize(tensor.Shape{2})
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if grew {
		t.Error("shrinking Resize reported growth")
	}

	grew, err = raw.Resize(tensor.Shape{8})
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if !grew {
		t.Error("growing Resize did not report growth")
	}
}

// TestCreationHelpers verifies FromFloat32 and Scalar through the alias.
func TestCreationHelpers(t *testing.T) {
	raw, err := tensor.FromFloat32([]float32{1, 2, 3}, tensor.Shape{3})
	if err != nil {
		t.Fatalf("FromFloat32 failed: %v", err)
	}
	if got := raw.AsFloat32()[2]; got != 3 {
		t.Errorf("AsFloat32()[2] = %v, want 3", got)
	}

	if got := tensor.Scalar(7).AsFloat32()[0]; got != 7 {
		t.Errorf("Scalar(7) = %v, want 7", got)
	}
}
