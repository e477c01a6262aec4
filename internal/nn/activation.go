package nn

import "math"

// Tanh is a hyperbolic tangent activation module.
//
// Applies the element-wise function: f(x) = tanh(x)
//
// The backward pass is computed from the module's own output, so the
// output buffer for the step being revisited must be restored first; the
// Sequencer's restore phase guarantees that.
type Tanh struct {
	Base
}

// NewTanh creates a new Tanh activation module.
func NewTanh() *Tanh {
	return &Tanh{}
}

// Forward applies tanh element-wise into the output buffer.
func (m *Tanh) Forward(input *State) *State {
	out := m.shapeOutput(input)
	in := input.Float32s()
	dst := out.Float32s()
	for i, v := range in {
		dst[i] = float32(math.Tanh(float64(v)))
	}
	return out
}

// BackwardInput computes gradInput = gradOutput * (1 - output^2).
func (m *Tanh) BackwardInput(_, gradOutput *State) *State {
	g := m.shapeGradInput(gradOutput)
	out := m.Output().Float32s()
	grad := gradOutput.Float32s()
	dst := g.Float32s()
	for i, v := range grad {
		dst[i] = v * (1 - out[i]*out[i])
	}
	return g
}

// AccumulateGrad is a no-op: Tanh has no parameters.
func (m *Tanh) AccumulateGrad(_, _ *State, _ float32) {}

// AccumulateUpdate is a no-op: Tanh has no parameters.
func (m *Tanh) AccumulateUpdate(_, _ *State, _ float32) {}

// SubUnits returns the module itself.
func (m *Tanh) SubUnits() []Module {
	return []Module{m}
}

// Sigmoid is a logistic sigmoid activation module.
//
// Applies the element-wise function: f(x) = 1 / (1 + exp(-x))
type Sigmoid struct {
	Base
}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid() *Sigmoid {
	return &Sigmoid{}
}

// Forward applies sigmoid element-wise into the output buffer.
func (m *Sigmoid) Forward(input *State) *State {
	out := m.shapeOutput(input)
	in := input.Float32s()
	dst := out.Float32s()
	for i, v := range in {
		dst[i] = float32(1 / (1 + math.Exp(float64(-v))))
	}
	return out
}

// BackwardInput computes gradInput = gradOutput * output * (1 - output).
func (m *Sigmoid) BackwardInput(_, gradOutput *State) *State {
	g := m.shapeGradInput(gradOutput)
	out := m.Output().Float32s()
	grad := gradOutput.Float32s()
	dst := g.Float32s()
	for i, v := range grad {
		dst[i] = v * out[i] * (1 - out[i])
	}
	return g
}

// AccumulateGrad is a no-op: Sigmoid has no parameters.
func (m *Sigmoid) AccumulateGrad(_, _ *State, _ float32) {}

// AccumulateUpdate is a no-op: Sigmoid has no parameters.
func (m *Sigmoid) AccumulateUpdate(_, _ *State, _ float32) {}

// SubUnits returns the module itself.
func (m *Sigmoid) SubUnits() []Module {
	return []Module{m}
}
