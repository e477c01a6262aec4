package nn

// Module is the contract the Sequencer requires of a wrapped trainable
// module. It is deliberately Torch-shaped: explicit forward, backward-input
// and parameter-accumulation passes, with the module's current output and
// gradInput exposed as replaceable buffer fields.
//
// The buffer fields are the state-passing mechanism of the whole package:
// the Sequencer swaps them by reference before and after every step, so a
// module must always compute into its current Output()/GradInput() buffers
// (resizing in place as needed) rather than into hidden private storage.
type Module interface {
	// Forward computes the module's output for one time-step input and
	// returns it. The returned state must be the module's Output() buffer.
	Forward(input *State) *State

	// BackwardInput computes the gradient with respect to input, given the
	// step's input and the gradient with respect to output. The returned
	// state must be the module's GradInput() buffer.
	BackwardInput(input, gradOutput *State) *State

	// AccumulateGrad accumulates parameter gradients for one step, scaled
	// by scale. It mutates the module's gradient state only.
	AccumulateGrad(input, gradOutput *State, scale float32)

	// AccumulateUpdate fuses gradient computation with an immediate scaled
	// in-place parameter update using the given learning rate. No gradient
	// state is retained.
	AccumulateUpdate(input, gradOutput *State, lr float32)

	// Output returns the module's current output buffer, or nil before the
	// first forward call.
	Output() *State

	// GradInput returns the module's current gradInput buffer, or nil
	// before the first backward call.
	GradInput() *State

	// SetOutput replaces the output buffer by reference.
	SetOutput(*State)

	// SetGradInput replaces the gradInput buffer by reference.
	SetGradInput(*State)

	// SubUnits returns the module's flattened decomposition, including the
	// module itself, in an order that is stable across calls. The ordinal
	// position of each sub-unit is its identity in captured step state.
	SubUnits() []Module
}

// Recurrent marks a module that threads hidden state across time-steps
// itself. When a Sequencer wraps a Recurrent module it delegates all state
// management to the module and runs gradient computation as a single
// back-propagation-through-time pass.
type Recurrent interface {
	Module

	// ResetState discards rolling state left over from a previous
	// sequence. The Sequencer calls it once before every forward pass.
	ResetState()

	// SetStep positions the module's internal step counter (1-indexed)
	// before a per-step gradient priming call.
	SetStep(step int)

	// BackwardThroughTime performs the chained gradient propagation across
	// all primed steps and populates GradInputs.
	BackwardThroughTime()

	// AccumulateThroughTime applies the pending through-time parameter
	// gradient accumulation (or fused update) for all primed steps.
	AccumulateThroughTime()

	// GradInputs returns the per-step input gradients produced by the last
	// BackwardThroughTime call, in step order.
	GradInputs() []*State
}

// Base carries the output and gradInput buffer fields shared by every
// module implementation. Embed it and wire SubUnits per module.
type Base struct {
	output    *State
	gradInput *State
}

// Output returns the current output buffer.
func (b *Base) Output() *State { return b.output }

// GradInput returns the current gradInput buffer.
func (b *Base) GradInput() *State { return b.gradInput }

// SetOutput replaces the output buffer by reference.
func (b *Base) SetOutput(s *State) { b.output = s }

// SetGradInput replaces the gradInput buffer by reference.
func (b *Base) SetGradInput(s *State) { b.gradInput = s }

// shapeOutput resizes (or allocates) the module's output buffer to match
// like's structure and returns it. A module-owned buffer whose structure no
// longer matches is simply replaced; structural violations only matter for
// pool-owned step state, where the pool reports them.
func (b *Base) shapeOutput(like *State) *State {
	b.output = shapeBuffer(b.output, like)
	return b.output
}

// shapeGradInput resizes (or allocates) the module's gradInput buffer to
// match like's structure and returns it.
func (b *Base) shapeGradInput(like *State) *State {
	b.gradInput = shapeBuffer(b.gradInput, like)
	return b.gradInput
}

func shapeBuffer(buf, like *State) *State {
	out, err := reshape(buf, like, nil)
	if err == nil {
		return out
	}
	out, err = allocLike(like, nil)
	if err != nil {
		panic(err)
	}
	return out
}
