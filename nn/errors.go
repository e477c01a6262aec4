// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/seqnn/internal/nn"
)

// Sentinel errors reported by sequence passes. Match with errors.Is.
var (
	// ErrTypeMismatch reports an input that is not an ordered step list.
	ErrTypeMismatch = nn.ErrTypeMismatch

	// ErrLengthMismatch reports a gradOutput list whose length differs
	// from the input list of the preceding forward pass.
	ErrLengthMismatch = nn.ErrLengthMismatch

	// ErrInvalidStateShape reports a stored step state that cannot be
	// reshaped to the structure a pass requires.
	ErrInvalidStateShape = nn.ErrInvalidStateShape

	// ErrMissingForwardState reports a backward pass over steps that
	// were never visited by a forward pass.
	ErrMissingForwardState = nn.ErrMissingForwardState

	// ErrMissingGradients reports a recurrent module that failed to
	// populate per-step input gradients after backpropagation through
	// time.
	ErrMissingGradients = nn.ErrMissingGradients
)
