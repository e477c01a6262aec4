package nn

import (
	"fmt"

	"github.com/born-ml/seqnn/internal/tensor"
)

// Linear implements a fully connected (dense) layer over 1-D feature
// vectors.
//
// Performs the transformation: y = W @ x + b
// where:
//   - x is the input vector with shape [in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output vector with shape [out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
type Linear struct {
	Base
	inFeatures  int
	outFeatures int

	Weight *tensor.RawTensor // [out_features, in_features]
	Bias   *tensor.RawTensor // [out_features]

	GradWeight *tensor.RawTensor // accumulated, same shape as Weight
	GradBias   *tensor.RawTensor // accumulated, same shape as Bias

	outTemplate *State // shape source for output buffers
	inTemplate  *State // shape source for gradInput buffers
}

// NewLinear creates a new Linear layer with Xavier-initialized weights and
// zero biases.
func NewLinear(inFeatures, outFeatures int) *Linear {
	weight := mustRaw(tensor.Shape{outFeatures, inFeatures})
	initXavier(weight.AsFloat32(), inFeatures, outFeatures)

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		Weight:      weight,
		Bias:        mustRaw(tensor.Shape{outFeatures}),
		GradWeight:  mustRaw(tensor.Shape{outFeatures, inFeatures}),
		GradBias:    mustRaw(tensor.Shape{outFeatures}),
		outTemplate: Leaf(mustRaw(tensor.Shape{outFeatures})),
		inTemplate:  Leaf(mustRaw(tensor.Shape{inFeatures})),
	}
}

// InFeatures returns the input feature count.
func (m *Linear) InFeatures() int { return m.inFeatures }

// OutFeatures returns the output feature count.
func (m *Linear) OutFeatures() int { return m.outFeatures }

// Forward computes y = W @ x + b into the output buffer.
func (m *Linear) Forward(input *State) *State {
	x := m.checkInput(input)
	out := m.shapeOutput(m.outTemplate)
	y := out.Float32s()
	w := m.Weight.AsFloat32()
	b := m.Bias.AsFloat32()
	for o := 0; o < m.outFeatures; o++ {
		sum := b[o]
		row := w[o*m.inFeatures : (o+1)*m.inFeatures]
		for i, v := range x {
			sum += row[i] * v
		}
		y[o] = sum
	}
	return out
}

// BackwardInput computes gradInput = W^T @ gradOutput.
func (m *Linear) BackwardInput(input, gradOutput *State) *State {
	m.checkInput(input)
	g := gradOutput.Float32s()
	gi := m.shapeGradInput(m.inTemplate)
	dst := gi.Float32s()
	w := m.Weight.AsFloat32()
	for i := 0; i < m.inFeatures; i++ {
		var sum float32
		for o := 0; o < m.outFeatures; o++ {
			sum += w[o*m.inFeatures+i] * g[o]
		}
		dst[i] = sum
	}
	return gi
}

// AccumulateGrad accumulates scale * gradOutput (x) input into GradWeight
// and scale * gradOutput into GradBias.
func (m *Linear) AccumulateGrad(input, gradOutput *State, scale float32) {
	x := m.checkInput(input)
	g := gradOutput.Float32s()
	gw := m.GradWeight.AsFloat32()
	gb := m.GradBias.AsFloat32()
	for o := 0; o < m.outFeatures; o++ {
		row := gw[o*m.inFeatures : (o+1)*m.inFeatures]
		for i, v := range x {
			row[i] += scale * g[o] * v
		}
		gb[o] += scale * g[o]
	}
}

// AccumulateUpdate applies the step's parameter gradient directly:
// W -= lr * gradOutput (x) input, b -= lr * gradOutput.
func (m *Linear) AccumulateUpdate(input, gradOutput *State, lr float32) {
	x := m.checkInput(input)
	g := gradOutput.Float32s()
	w := m.Weight.AsFloat32()
	b := m.Bias.AsFloat32()
	for o := 0; o < m.outFeatures; o++ {
		row := w[o*m.inFeatures : (o+1)*m.inFeatures]
		for i, v := range x {
			row[i] -= lr * g[o] * v
		}
		b[o] -= lr * g[o]
	}
}

// ZeroGrad clears the accumulated parameter gradients.
func (m *Linear) ZeroGrad() {
	clear(m.GradWeight.AsFloat32())
	clear(m.GradBias.AsFloat32())
}

// SubUnits returns the module itself.
func (m *Linear) SubUnits() []Module {
	return []Module{m}
}

func (m *Linear) checkInput(input *State) []float32 {
	x := input.Float32s()
	if len(x) != m.inFeatures {
		panic(fmt.Sprintf("Linear: expected input with %d features, got %d", m.inFeatures, len(x)))
	}
	return x
}

// mustRaw allocates a Float32 tensor or panics; shapes here are always
// derived from validated layer dimensions.
func mustRaw(shape tensor.Shape) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}
	return raw
}
