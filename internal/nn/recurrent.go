package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/seqnn/internal/tensor"
)

// Recur is a minimal Elman-style recurrent module:
//
//	h_t = tanh(W @ x_t + R @ h_{t-1} + b)
//
// It threads its own hidden state across time-steps, so a Sequencer runs
// it in Recurrent mode: per-step BackwardInput calls only record upstream
// gradients, and the chained gradient computation happens once, in
// BackwardThroughTime, walking the recorded steps in reverse.
type Recur struct {
	Base
	inSize  int
	hidSize int

	Weight    *tensor.RawTensor // [hid, in]
	RecWeight *tensor.RawTensor // [hid, hid]
	Bias      *tensor.RawTensor // [hid]

	GradWeight    *tensor.RawTensor
	GradRecWeight *tensor.RawTensor
	GradBias      *tensor.RawTensor

	hidden []float32 // rolling h_{t-1}, zeroed by ResetState
	step   int       // 1-indexed counter positioned by the Sequencer

	// Per-sequence trace, rebuilt between ResetState calls.
	inputs      []*State
	outputs     []*State
	gradOutputs []*State
	dpre        [][]float32 // per-step pre-activation gradients from BPTT
	gradInputs  []*State

	scale    float32 // primed accumulation scale
	updateLR float32 // primed fused-update learning rate, 0 in accumulate mode
}

// NewRecur creates a recurrent module with Xavier-initialized input and
// recurrent weights and zero biases.
func NewRecur(inSize, hidSize int) *Recur {
	r := &Recur{
		inSize:        inSize,
		hidSize:       hidSize,
		Weight:        mustRaw(tensor.Shape{hidSize, inSize}),
		RecWeight:     mustRaw(tensor.Shape{hidSize, hidSize}),
		Bias:          mustRaw(tensor.Shape{hidSize}),
		GradWeight:    mustRaw(tensor.Shape{hidSize, inSize}),
		GradRecWeight: mustRaw(tensor.Shape{hidSize, hidSize}),
		GradBias:      mustRaw(tensor.Shape{hidSize}),
		hidden:        make([]float32, hidSize),
	}
	initXavier(r.Weight.AsFloat32(), inSize, hidSize)
	initXavier(r.RecWeight.AsFloat32(), hidSize, hidSize)
	return r
}

// InSize returns the input feature count.
func (r *Recur) InSize() int { return r.inSize }

// HidSize returns the hidden state size.
func (r *Recur) HidSize() int { return r.hidSize }

// Hidden returns the current rolling hidden state.
func (r *Recur) Hidden() []float32 { return r.hidden }

// ResetState discards the rolling hidden state and the per-sequence trace.
func (r *Recur) ResetState() {
	clear(r.hidden)
	r.step = 0
	r.inputs = nil
	r.outputs = nil
	r.gradOutputs = nil
	r.dpre = nil
	r.gradInputs = nil
}

// SetStep positions the 1-indexed step counter for gradient priming.
func (r *Recur) SetStep(step int) {
	r.step = step
}

// Forward computes h_t from the input and the rolling hidden state,
// records the step in the trace, and returns the step's output buffer.
func (r *Recur) Forward(input *State) *State {
	x := input.Float32s()
	if len(x) != r.inSize {
		panic(fmt.Sprintf("Recur: expected input with %d features, got %d", r.inSize, len(x)))
	}

	out := Leaf(mustRaw(tensor.Shape{r.hidSize}))
	h := out.Float32s()
	w := r.Weight.AsFloat32()
	rw := r.RecWeight.AsFloat32()
	b := r.Bias.AsFloat32()
	for o := 0; o < r.hidSize; o++ {
		sum := b[o]
		for i, v := range x {
			sum += w[o*r.inSize+i] * v
		}
		for i, v := range r.hidden {
			sum += rw[o*r.hidSize+i] * v
		}
		h[o] = float32(math.Tanh(float64(sum)))
	}
	copy(r.hidden, h)

	r.inputs = append(r.inputs, input)
	r.outputs = append(r.outputs, out)
	r.SetOutput(out)
	return out
}

// BackwardInput records the upstream gradient for the step positioned by
// SetStep. It does not produce a gradient itself; final per-step input
// gradients exist only after BackwardThroughTime. Returns nil.
func (r *Recur) BackwardInput(_, gradOutput *State) *State {
	r.prime(gradOutput)
	return nil
}

// AccumulateGrad records the upstream gradient and the accumulation scale
// for the positioned step; the real work happens in AccumulateThroughTime.
func (r *Recur) AccumulateGrad(_, gradOutput *State, scale float32) {
	r.prime(gradOutput)
	r.scale = scale
	r.updateLR = 0
}

// AccumulateUpdate records the upstream gradient and the learning rate for
// a fused accumulate-and-update; applied by AccumulateThroughTime.
func (r *Recur) AccumulateUpdate(_, gradOutput *State, lr float32) {
	r.prime(gradOutput)
	r.updateLR = lr
}

func (r *Recur) prime(gradOutput *State) {
	if r.step < 1 || r.step > len(r.outputs) {
		panic(fmt.Sprintf("Recur: step counter %d outside traced sequence of length %d",
			r.step, len(r.outputs)))
	}
	for len(r.gradOutputs) < len(r.outputs) {
		r.gradOutputs = append(r.gradOutputs, nil)
	}
	r.gradOutputs[r.step-1] = gradOutput
}

// BackwardThroughTime performs the chained gradient propagation across all
// primed steps, in reverse, and populates GradInputs. Pre-activation
// gradients are retained for the parameter pass.
func (r *Recur) BackwardThroughTime() {
	nStep := len(r.outputs)
	r.gradInputs = make([]*State, nStep)
	r.dpre = make([][]float32, nStep)

	w := r.Weight.AsFloat32()
	rw := r.RecWeight.AsFloat32()
	carry := make([]float32, r.hidSize) // R^T @ dpre_{t+1}

	for t := nStep - 1; t >= 0; t-- {
		h := r.outputs[t].Float32s()
		dpre := make([]float32, r.hidSize)
		for o := 0; o < r.hidSize; o++ {
			dh := carry[o]
			if r.gradOutputs != nil && r.gradOutputs[t] != nil {
				dh += r.gradOutputs[t].Float32s()[o]
			}
			dpre[o] = dh * (1 - h[o]*h[o])
		}
		r.dpre[t] = dpre

		gi := Leaf(mustRaw(tensor.Shape{r.inSize}))
		dst := gi.Float32s()
		for i := 0; i < r.inSize; i++ {
			var sum float32
			for o := 0; o < r.hidSize; o++ {
				sum += w[o*r.inSize+i] * dpre[o]
			}
			dst[i] = sum
		}
		r.gradInputs[t] = gi

		clear(carry)
		for i := 0; i < r.hidSize; i++ {
			for o := 0; o < r.hidSize; o++ {
				carry[i] += rw[o*r.hidSize+i] * dpre[o]
			}
		}
	}
	r.SetGradInput(nil)
	if nStep > 0 {
		r.SetGradInput(r.gradInputs[0])
	}
}

// AccumulateThroughTime applies the pending through-time parameter pass.
// In accumulate mode the scaled gradients are added to the Grad* tensors;
// in fused-update mode they are subtracted from the parameters directly,
// scaled by the primed learning rate. A call before BackwardThroughTime is
// a no-op: there are no pre-activation gradients to consume.
func (r *Recur) AccumulateThroughTime() {
	if r.dpre == nil {
		return
	}

	gw, grw, gb := r.GradWeight.AsFloat32(), r.GradRecWeight.AsFloat32(), r.GradBias.AsFloat32()
	factor := r.scale
	if r.updateLR != 0 {
		gw, grw, gb = r.Weight.AsFloat32(), r.RecWeight.AsFloat32(), r.Bias.AsFloat32()
		factor = -r.updateLR
	}

	for t, dpre := range r.dpre {
		if dpre == nil {
			continue
		}
		x := r.inputs[t].Float32s()
		var hPrev []float32
		if t > 0 {
			hPrev = r.outputs[t-1].Float32s()
		}
		for o := 0; o < r.hidSize; o++ {
			d := factor * dpre[o]
			for i, v := range x {
				gw[o*r.inSize+i] += d * v
			}
			if hPrev != nil {
				for i, v := range hPrev {
					grw[o*r.hidSize+i] += d * v
				}
			}
			gb[o] += d
		}
	}
	r.updateLR = 0
}

// GradInputs returns the per-step input gradients from the last
// BackwardThroughTime call.
func (r *Recur) GradInputs() []*State {
	return r.gradInputs
}

// ZeroGrad clears the accumulated parameter gradients.
func (r *Recur) ZeroGrad() {
	clear(r.GradWeight.AsFloat32())
	clear(r.GradRecWeight.AsFloat32())
	clear(r.GradBias.AsFloat32())
}

// SubUnits returns the module itself.
func (r *Recur) SubUnits() []Module {
	return []Module{r}
}

func initXavier(w []float32, fanIn, fanOut int) {
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	for i := range w {
		w[i] = (rand.Float32()*2 - 1) * limit
	}
}
