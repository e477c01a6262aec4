package nn

import "fmt"

// Mode selects the Sequencer's execution protocol. It is derived from the
// wrapped module's capability set once, at construction, and never changes
// for the lifetime of the Sequencer.
type Mode int

// Execution modes.
const (
	// ModeStepwise: the wrapped module is stateless across steps; the
	// Sequencer manages per-step state explicitly via a StepBufferPool.
	ModeStepwise Mode = iota
	// ModeRecurrent: the wrapped module implements Recurrent and manages
	// its own rolling state; gradients flow through BPTT.
	ModeRecurrent
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeStepwise:
		return "Stepwise"
	case ModeRecurrent:
		return "Recurrent"
	default:
		return "Unknown"
	}
}

// Sequencer applies a wrapped Module once per time-step over an ordered
// list of inputs, producing a per-step list of outputs and, on the backward
// pass, a per-step list of input gradients.
//
// The Sequencer owns the wrapped module exclusively for its lifetime, and
// owns every buffer its pool hands out. All passes run steps strictly in
// ascending order; Forward for a sequence must complete before
// BackwardInput, which must complete before either accumulation pass.
//
// Example:
//
//	seq := nn.NewSequencer(nn.NewPipeline(nn.NewLinear(4, 8), nn.NewTanh()))
//	outs, err := seq.Forward(inputs)
//	grads, err := seq.BackwardInput(inputs, gradOutputs)
//	err = seq.AccumulateGrad(inputs, gradOutputs, 1.0)
type Sequencer struct {
	inner Module
	rec   Recurrent // non-nil only in ModeRecurrent
	mode  Mode
	pool  *StepBufferPool
	units []Module // inner's flattened decomposition, fixed at construction

	output    []*State
	gradInput []*State
}

// NewSequencer wraps inner in a Sequencer. The execution mode is resolved
// here, once: a module implementing Recurrent runs in ModeRecurrent,
// anything else in ModeStepwise.
func NewSequencer(inner Module) *Sequencer {
	s := &Sequencer{
		inner: inner,
		mode:  ModeStepwise,
		pool:  NewStepBufferPool(),
		units: inner.SubUnits(),
	}
	if rec, ok := inner.(Recurrent); ok {
		s.rec = rec
		s.mode = ModeRecurrent
	}
	return s
}

// Mode returns the execution mode fixed at construction.
func (s *Sequencer) Mode() Mode {
	return s.mode
}

// Pool returns the step buffer pool. Exposed for reuse accounting.
func (s *Sequencer) Pool() *StepBufferPool {
	return s.pool
}

// Forward runs the wrapped module once per step, in order, and returns the
// per-step outputs. The output list is rebuilt on every call; outputs from
// a previous Forward are never visible.
func (s *Sequencer) Forward(inputs []*State) ([]*State, error) {
	if err := checkSteps(inputs); err != nil {
		return nil, err
	}

	s.output = make([]*State, len(inputs))

	switch s.mode {
	case ModeRecurrent:
		// Rolling state from a previous sequence must not leak into this
		// one, even for an empty input list.
		s.rec.ResetState()
		for step, in := range inputs {
			s.output[step] = s.rec.Forward(in)
		}

	case ModeStepwise:
		for step, in := range inputs {
			if err := s.pool.RestoreOutputs(step, s.units); err != nil {
				return nil, err
			}
			s.output[step] = s.inner.Forward(in)
			s.pool.CaptureOutputs(step, s.units)
		}
	}

	return s.output, nil
}

// BackwardInput computes per-step input gradients for the sequence of the
// immediately preceding Forward call. gradOutputs must have exactly one
// entry per input; anything else fails with ErrLengthMismatch.
func (s *Sequencer) BackwardInput(inputs, gradOutputs []*State) ([]*State, error) {
	if err := checkSteps(inputs); err != nil {
		return nil, err
	}
	if len(gradOutputs) != len(inputs) {
		return nil, fmt.Errorf("%w: %d gradOutputs for %d inputs",
			ErrLengthMismatch, len(gradOutputs), len(inputs))
	}
	if err := checkSteps(gradOutputs); err != nil {
		return nil, err
	}

	s.gradInput = make([]*State, len(inputs))

	switch s.mode {
	case ModeRecurrent:
		// Per-step calls only prime local gradients; the chained
		// propagation happens once, in BackwardThroughTime.
		for step := range inputs {
			s.rec.SetStep(step + 1)
			s.rec.BackwardInput(inputs[step], gradOutputs[step])
		}
		s.rec.BackwardThroughTime()
		grads := s.rec.GradInputs()
		if len(grads) != len(inputs) {
			return nil, fmt.Errorf("%w: got %d gradients for %d steps",
				ErrMissingGradients, len(grads), len(inputs))
		}
		copy(s.gradInput, grads)

	case ModeStepwise:
		for step := range inputs {
			if err := s.restoreForBackward(step); err != nil {
				return nil, err
			}
			s.gradInput[step] = s.inner.BackwardInput(inputs[step], gradOutputs[step])
			s.pool.CaptureGradInputs(step, s.units)
		}
	}

	return s.gradInput, nil
}

// AccumulateGrad accumulates parameter gradients over every step, scaled by
// scale. It mutates the wrapped module's accumulated-gradient state as its
// sole effect; no result list is produced.
func (s *Sequencer) AccumulateGrad(inputs, gradOutputs []*State, scale float32) error {
	return s.accumulate(inputs, gradOutputs, func(step int) {
		s.inner.AccumulateGrad(inputs[step], gradOutputs[step], scale)
	})
}

// AccumulateAndUpdate fuses gradient computation with an immediate scaled
// in-place parameter update, using lr as the learning rate. Traversal and
// state restoration follow AccumulateGrad exactly.
func (s *Sequencer) AccumulateAndUpdate(inputs, gradOutputs []*State, lr float32) error {
	return s.accumulate(inputs, gradOutputs, func(step int) {
		s.inner.AccumulateUpdate(inputs[step], gradOutputs[step], lr)
	})
}

// accumulate shares the traversal and restore/capture discipline of the
// two parameter passes.
func (s *Sequencer) accumulate(inputs, gradOutputs []*State, visit func(step int)) error {
	if err := checkSteps(inputs); err != nil {
		return err
	}
	if len(gradOutputs) != len(inputs) {
		return fmt.Errorf("%w: %d gradOutputs for %d inputs",
			ErrLengthMismatch, len(gradOutputs), len(inputs))
	}
	if err := checkSteps(gradOutputs); err != nil {
		return err
	}

	switch s.mode {
	case ModeRecurrent:
		for step := range inputs {
			s.rec.SetStep(step + 1)
			visit(step)
		}
		s.rec.AccumulateThroughTime()

	case ModeStepwise:
		for step := range inputs {
			if err := s.restoreForBackward(step); err != nil {
				return err
			}
			visit(step)
			s.pool.CaptureGradInputs(step, s.units)
		}
	}

	return nil
}

// restoreForBackward re-establishes a step's forward and backward buffers
// before a backward-pass visit. The step's forward state must exist: a
// backward pass cannot precede the forward pass for that step.
func (s *Sequencer) restoreForBackward(step int) error {
	if !s.pool.HasOutputs(step) {
		return fmt.Errorf("%w: step %d", ErrMissingForwardState, step)
	}
	if err := s.pool.RestoreOutputs(step, s.units); err != nil {
		return err
	}
	return s.pool.RestoreGradInputs(step, s.units)
}

// checkSteps validates that the step list is an ordered list of states. A
// nil list, or a nil entry inside it, is the Go shape of handing something
// other than an ordered step list to a pass.
func checkSteps(inputs []*State) error {
	if inputs == nil {
		return fmt.Errorf("%w: nil input list", ErrTypeMismatch)
	}
	for i, in := range inputs {
		if in == nil {
			return fmt.Errorf("%w: nil state at step %d", ErrTypeMismatch, i)
		}
	}
	return nil
}
