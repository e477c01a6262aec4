package nn

import "fmt"

// stepState records, for one time-step and one pass kind, every sub-unit's
// buffer at the moment the step finished, indexed by sub-unit ordinal.
// Entries are stored by reference; no copies are made.
type stepState []*State

// StepBufferPool owns the per-step intermediate buffers of a Sequencer in
// Stepwise mode. For every (step, pass kind) it remembers the buffer each
// sub-unit computed into, so a later pass over the same step runs in
// pre-sized storage instead of allocating fresh tensors per step per pass.
//
// A step's state is created lazily on its first visit: each sub-unit gets
// step-private storage shaped like its current buffer, which keeps two
// steps of the same sequence from computing into the same tensor. Pool
// buffers are reused, never freed: state from a prior sequence is
// overwritten in place the next time its step index is visited. The pool's
// lifetime is the lifetime of the Sequencer that owns it.
type StepBufferPool struct {
	outputs    []stepState // captured output buffers, indexed by step
	gradInputs []stepState // captured gradInput buffers, indexed by step

	allocs int // fresh leaf allocations, for reuse accounting
}

// NewStepBufferPool creates an empty pool.
func NewStepBufferPool() *StepBufferPool {
	return &StepBufferPool{}
}

// Allocs returns the number of fresh leaf allocations (including in-place
// resizes that had to grow) performed on behalf of the pool. A second run
// over an identical sequence must leave this counter unchanged.
func (p *StepBufferPool) Allocs() int {
	return p.allocs
}

// HasOutputs reports whether step has captured forward state.
func (p *StepBufferPool) HasOutputs(step int) bool {
	return step < len(p.outputs) && p.outputs[step] != nil
}

// CaptureOutputs records every sub-unit's current output buffer into the
// step's output state, replacing any prior entry for that step.
func (p *StepBufferPool) CaptureOutputs(step int, units []Module) {
	p.outputs = capture(p.outputs, step, units, Module.Output)
}

// CaptureGradInputs records every sub-unit's current gradInput buffer into
// the step's gradInput state, replacing any prior entry for that step.
func (p *StepBufferPool) CaptureGradInputs(step int, units []Module) {
	p.gradInputs = capture(p.gradInputs, step, units, Module.GradInput)
}

// RestoreOutputs points every sub-unit's output field at the step's own
// output storage, resized against the sub-unit's current output shape.
func (p *StepBufferPool) RestoreOutputs(step int, units []Module) error {
	var err error
	p.outputs, err = p.restore(p.outputs, step, units, Module.Output, Module.SetOutput)
	if err != nil {
		return fmt.Errorf("restore output state, step %d: %w", step, err)
	}
	return nil
}

// RestoreGradInputs points every sub-unit's gradInput field at the step's
// own gradInput storage, resized against the sub-unit's current gradInput
// shape.
func (p *StepBufferPool) RestoreGradInputs(step int, units []Module) error {
	var err error
	p.gradInputs, err = p.restore(p.gradInputs, step, units, Module.GradInput, Module.SetGradInput)
	if err != nil {
		return fmt.Errorf("restore gradInput state, step %d: %w", step, err)
	}
	return nil
}

// restore swaps each unit's buffer field to the step's stored state,
// resizing it in place against the unit's current buffer. A sub-unit with
// no stored entry yet gets fresh step-private storage shaped like its
// current buffer; a sub-unit whose current buffer is still nil is skipped
// entirely (the compute call will populate it and capture adopts it).
func (p *StepBufferPool) restore(
	states []stepState, step int, units []Module,
	field func(Module) *State, setField func(Module, *State),
) ([]stepState, error) {
	states = ensure(states, step, len(units))
	state := states[step]
	for i, unit := range units {
		cur := field(unit)
		if cur == nil {
			continue
		}
		restored, err := reshape(state[i], cur, p.countAlloc)
		if err != nil {
			return states, fmt.Errorf("sub-unit %d: %w", i, err)
		}
		state[i] = restored
		setField(unit, restored)
	}
	return states, nil
}

func (p *StepBufferPool) countAlloc() {
	p.allocs++
}

// capture writes the current buffer of every unit into states[step],
// growing the step table as needed.
func capture(states []stepState, step int, units []Module, field func(Module) *State) []stepState {
	states = ensure(states, step, len(units))
	for i, unit := range units {
		states[step][i] = field(unit)
	}
	return states
}

// ensure grows states so that states[step] exists with nUnits slots.
func ensure(states []stepState, step int, nUnits int) []stepState {
	for len(states) <= step {
		states = append(states, nil)
	}
	if states[step] == nil {
		states[step] = make(stepState, nUnits)
	}
	return states
}
