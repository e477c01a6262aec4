package nn

// Identity passes its input through unchanged. Output and gradInput are
// written into the module's own buffers rather than aliasing the caller's
// states, which keeps the sequencer's buffer swap protocol uniform.
type Identity struct {
	Base
}

// NewIdentity creates a new Identity module.
func NewIdentity() *Identity {
	return &Identity{}
}

// Forward copies input into the output buffer.
func (m *Identity) Forward(input *State) *State {
	out := m.shapeOutput(input)
	if err := copyInto(out, input); err != nil {
		panic(err)
	}
	return out
}

// BackwardInput copies gradOutput into the gradInput buffer.
func (m *Identity) BackwardInput(_, gradOutput *State) *State {
	g := m.shapeGradInput(gradOutput)
	if err := copyInto(g, gradOutput); err != nil {
		panic(err)
	}
	return g
}

// AccumulateGrad is a no-op: Identity has no parameters.
func (m *Identity) AccumulateGrad(_, _ *State, _ float32) {}

// AccumulateUpdate is a no-op: Identity has no parameters.
func (m *Identity) AccumulateUpdate(_, _ *State, _ float32) {}

// SubUnits returns the module itself.
func (m *Identity) SubUnits() []Module {
	return []Module{m}
}
