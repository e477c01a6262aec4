package nn

import "errors"

// Common errors. All of them are fatal to the call that returns them; no
// partial results accompany a non-nil error.
var (
	ErrTypeMismatch        = errors.New("input is not an ordered step list")
	ErrLengthMismatch      = errors.New("gradOutput list length does not match input list length")
	ErrInvalidStateShape   = errors.New("stored step state is structurally incompatible with requested shape")
	ErrMissingForwardState = errors.New("backward pass visited a step with no prior forward capture")
	ErrMissingGradients    = errors.New("recurrent module did not populate per-step gradients after BPTT")
)
