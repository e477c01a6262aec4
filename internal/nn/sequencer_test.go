package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/seqnn/internal/tensor"
)

func TestSequencer_ModeDispatch(t *testing.T) {
	assert.Equal(t, ModeStepwise, NewSequencer(NewIdentity()).Mode())
	assert.Equal(t, ModeStepwise, NewSequencer(NewPipeline(NewLinear(2, 2), NewTanh())).Mode())
	assert.Equal(t, ModeRecurrent, NewSequencer(NewRecur(2, 3)).Mode())
	assert.Equal(t, ModeRecurrent, NewSequencer(&stubRecurrent{}).Mode())
}

// TestSequencer_IdentityScenario runs the canonical identity scenario:
// forward [10, 20, 30], then backward with unit upstream gradients.
func TestSequencer_IdentityScenario(t *testing.T) {
	seq := NewSequencer(NewIdentity())

	inputs := steps(t, 10, 20, 30)
	outs, err := seq.Forward(inputs)
	require.NoError(t, err)
	require.Len(t, outs, 3)
	for i, want := range []float32{10, 20, 30} {
		assert.Equal(t, want, outs[i].Float32s()[0], "step %d", i)
	}

	// Steps must not share storage: the first step's output survives the
	// later steps untouched.
	assert.NotSame(t, outs[0].Raw(), outs[1].Raw())
	assert.NotSame(t, outs[1].Raw(), outs[2].Raw())

	grads, err := seq.BackwardInput(inputs, steps(t, 1, 1, 1))
	require.NoError(t, err)
	require.Len(t, grads, 3)
	for i := range grads {
		assert.Equal(t, float32(1), grads[i].Float32s()[0], "step %d", i)
	}
}

// TestSequencer_ForwardTwice_AllocsFlat verifies the reuse property: the
// second forward over an identical step list allocates nothing new.
func TestSequencer_ForwardTwice_AllocsFlat(t *testing.T) {
	seq := NewSequencer(NewPipeline(NewLinear(3, 5), NewTanh(), NewLinear(5, 2)))

	inputs := []*State{vec(t, 1, 2, 3), vec(t, 4, 5, 6), vec(t, 7, 8, 9)}
	_, err := seq.Forward(inputs)
	require.NoError(t, err)

	after := seq.Pool().Allocs()
	_, err = seq.Forward(inputs)
	require.NoError(t, err)
	assert.Equal(t, after, seq.Pool().Allocs(), "second identical forward must not allocate")

	// The backward passes reuse their own storage the same way.
	gradOuts := []*State{vec(t, 1, 0), vec(t, 0, 1), vec(t, 1, 1)}
	_, err = seq.BackwardInput(inputs, gradOuts)
	require.NoError(t, err)
	after = seq.Pool().Allocs()
	_, err = seq.BackwardInput(inputs, gradOuts)
	require.NoError(t, err)
	assert.Equal(t, after, seq.Pool().Allocs(), "second identical backward must not allocate")
}

func TestSequencer_BackwardBeforeForward(t *testing.T) {
	seq := NewSequencer(NewIdentity())

	_, err := seq.BackwardInput(steps(t, 1), steps(t, 1))
	require.ErrorIs(t, err, ErrMissingForwardState)

	// A backward pass over more steps than were run forward fails on the
	// first step without forward state.
	_, err = seq.Forward(steps(t, 1, 2))
	require.NoError(t, err)
	_, err = seq.BackwardInput(steps(t, 1, 2, 3), steps(t, 1, 1, 1))
	require.ErrorIs(t, err, ErrMissingForwardState)
}

func TestSequencer_LengthMismatch(t *testing.T) {
	for _, mod := range []Module{NewIdentity(), &stubRecurrent{}} {
		seq := NewSequencer(mod)
		inputs := steps(t, 1, 2, 3)
		_, err := seq.Forward(inputs)
		require.NoError(t, err)

		_, err = seq.BackwardInput(inputs, steps(t, 1, 1))
		assert.ErrorIs(t, err, ErrLengthMismatch, "%s mode, one short", seq.Mode())

		_, err = seq.BackwardInput(inputs, steps(t, 1, 1, 1, 1))
		assert.ErrorIs(t, err, ErrLengthMismatch, "%s mode, one long", seq.Mode())

		assert.ErrorIs(t, seq.AccumulateGrad(inputs, steps(t, 1, 1), 1), ErrLengthMismatch)
		assert.ErrorIs(t, seq.AccumulateAndUpdate(inputs, steps(t, 1, 1), 0.1), ErrLengthMismatch)
	}
}

func TestSequencer_TypeMismatch(t *testing.T) {
	seq := NewSequencer(NewIdentity())

	_, err := seq.Forward(nil)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = seq.Forward([]*State{vec(t, 1), nil})
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = seq.BackwardInput(nil, nil)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

// TestSequencer_NilGradOutputEntry checks that a nil entry inside the
// gradOutput list is rejected the same way as a nil input entry, by every
// backward-side pass in both modes.
func TestSequencer_NilGradOutputEntry(t *testing.T) {
	for name, seq := range map[string]*Sequencer{
		"stepwise":  NewSequencer(NewIdentity()),
		"recurrent": NewSequencer(&stubRecurrent{}),
	} {
		t.Run(name, func(t *testing.T) {
			inputs := steps(t, 1, 2)
			_, err := seq.Forward(inputs)
			require.NoError(t, err)

			holed := []*State{vec(t, 1), nil}

			_, err = seq.BackwardInput(inputs, holed)
			assert.ErrorIs(t, err, ErrTypeMismatch)

			err = seq.AccumulateGrad(inputs, holed, 1)
			assert.ErrorIs(t, err, ErrTypeMismatch)

			err = seq.AccumulateAndUpdate(inputs, holed, 0.1)
			assert.ErrorIs(t, err, ErrTypeMismatch)
		})
	}
}

// TestSequencer_ResetPerForward checks that Recurrent mode resets rolling
// state exactly once per Forward call, before any step, for any sequence
// length including zero.
func TestSequencer_ResetPerForward(t *testing.T) {
	stub := &stubRecurrent{}
	seq := NewSequencer(stub)

	_, err := seq.Forward([]*State{})
	require.NoError(t, err)
	assert.Equal(t, 1, stub.resets, "empty sequence still resets state")

	_, err = seq.Forward(steps(t, 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, stub.resets)

	_, err = seq.Forward(steps(t, 4, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, 3, stub.resets)
}

// TestSequencer_RecurrentNoStateLeak: two consecutive forwards over the
// same inputs must produce identical outputs, because step 1 of the second
// sequence never observes hidden state left over from the first.
func TestSequencer_RecurrentNoStateLeak(t *testing.T) {
	rec := NewRecur(2, 4)
	seq := NewSequencer(rec)

	inputs := []*State{vec(t, 1, -1), vec(t, 0.5, 2), vec(t, -2, 0.25)}
	first, err := seq.Forward(inputs)
	require.NoError(t, err)

	// Rolling state is nonzero after a sequence.
	var nonzero bool
	for _, h := range rec.Hidden() {
		nonzero = nonzero || h != 0
	}
	assert.True(t, nonzero)

	second, err := seq.Forward(inputs)
	require.NoError(t, err)
	for step := range first {
		assert.Equal(t, first[step].Float32s(), second[step].Float32s(), "step %d", step)
	}
}

func TestSequencer_RecurrentBackwardProtocol(t *testing.T) {
	stub := &stubRecurrent{}
	seq := NewSequencer(stub)

	inputs := steps(t, 1, 2, 3)
	_, err := seq.Forward(inputs)
	require.NoError(t, err)

	grads, err := seq.BackwardInput(inputs, steps(t, 7, 8, 9))
	require.NoError(t, err)
	require.Len(t, grads, 3)
	for i, want := range []float32{7, 8, 9} {
		assert.Equal(t, want, grads[i].Float32s()[0], "gradients come back in step order")
	}

	// The step counter is positioned 1-indexed, in ascending order, before
	// each priming call, and BPTT runs exactly once after the loop.
	assert.Equal(t, []int{1, 2, 3}, stub.stepTrace)
	assert.Equal(t, 1, stub.bpttCalls)

	require.NoError(t, seq.AccumulateGrad(inputs, steps(t, 1, 1, 1), 0.5))
	assert.Equal(t, 1, stub.accCalls)
	assert.Equal(t, []int{1, 2, 3, 1, 2, 3}, stub.stepTrace)
}

func TestSequencer_MissingGradients(t *testing.T) {
	inputs := steps(t, 1, 2)

	stub := &stubRecurrent{dropGradients: true}
	seq := NewSequencer(stub)
	_, err := seq.Forward(inputs)
	require.NoError(t, err)
	_, err = seq.BackwardInput(inputs, steps(t, 1, 1))
	assert.ErrorIs(t, err, ErrMissingGradients)

	stub = &stubRecurrent{extraGradient: true}
	seq = NewSequencer(stub)
	_, err = seq.Forward(inputs)
	require.NoError(t, err)
	_, err = seq.BackwardInput(inputs, steps(t, 1, 1))
	assert.ErrorIs(t, err, ErrMissingGradients, "wrong gradient count is as fatal as none")
}

// TestSequencer_StepwiseGradients checks backward-input results for a
// two-layer pipeline against central finite differences, per step.
func TestSequencer_StepwiseGradients(t *testing.T) {
	pipe := NewPipeline(NewLinear(2, 3), NewTanh(), NewLinear(3, 2))
	seq := NewSequencer(pipe)

	inputs := []*State{vec(t, 0.3, -0.7), vec(t, 1.1, 0.4)}
	gradOuts := []*State{vec(t, 1, 0.5), vec(t, -0.25, 1)}

	_, err := seq.Forward(inputs)
	require.NoError(t, err)
	grads, err := seq.BackwardInput(inputs, gradOuts)
	require.NoError(t, err)
	require.Len(t, grads, len(inputs))

	// loss(inputs) = sum_t <forward(inputs)[t], gradOuts[t]>
	loss := func() float32 {
		outs, err := seq.Forward(inputs)
		require.NoError(t, err)
		var sum float32
		for step := range outs {
			o := outs[step].Float32s()
			g := gradOuts[step].Float32s()
			for i := range o {
				sum += o[i] * g[i]
			}
		}
		return sum
	}

	const eps = 1e-2
	for step := range inputs {
		// Snapshot analytic gradients before the finite-difference runs
		// overwrite the reused buffers.
		analytic := append([]float32(nil), grads[step].Float32s()...)
		x := inputs[step].Float32s()
		for i := range x {
			orig := x[i]
			x[i] = orig + eps
			plus := loss()
			x[i] = orig - eps
			minus := loss()
			x[i] = orig

			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, analytic[i], 5e-3, "step %d, input %d", step, i)
		}
	}
}

// TestSequencer_RecurrentGradients checks the BPTT input gradients of the
// Elman module against central finite differences across a sequence, where
// early inputs influence late outputs through the hidden state.
func TestSequencer_RecurrentGradients(t *testing.T) {
	rec := NewRecur(2, 3)
	seq := NewSequencer(rec)

	inputs := []*State{vec(t, 0.2, -0.4), vec(t, 0.6, 0.1), vec(t, -0.3, 0.5)}
	gradOuts := []*State{vec(t, 1, 0, 0.5), vec(t, 0, 1, -0.5), vec(t, 0.25, 0.25, 1)}

	_, err := seq.Forward(inputs)
	require.NoError(t, err)
	grads, err := seq.BackwardInput(inputs, gradOuts)
	require.NoError(t, err)
	require.Len(t, grads, len(inputs))

	loss := func() float32 {
		outs, err := seq.Forward(inputs)
		require.NoError(t, err)
		var sum float32
		for step := range outs {
			o := outs[step].Float32s()
			g := gradOuts[step].Float32s()
			for i := range o {
				sum += o[i] * g[i]
			}
		}
		return sum
	}

	const eps = 1e-2
	for step := range inputs {
		analytic := append([]float32(nil), grads[step].Float32s()...)
		x := inputs[step].Float32s()
		for i := range x {
			orig := x[i]
			x[i] = orig + eps
			plus := loss()
			x[i] = orig - eps
			minus := loss()
			x[i] = orig

			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, analytic[i], 5e-3, "step %d, input %d", step, i)
		}
	}
}

// TestSequencer_AccumulateGrad verifies that parameter gradients sum over
// steps with the given scale for a wrapped Linear layer.
func TestSequencer_AccumulateGrad(t *testing.T) {
	lin := NewLinear(2, 1)
	copy(lin.Weight.AsFloat32(), []float32{1, 2})
	seq := NewSequencer(lin)

	inputs := []*State{vec(t, 1, 2), vec(t, 3, 4)}
	gradOuts := []*State{vec(t, 1), vec(t, 0.5)}

	_, err := seq.Forward(inputs)
	require.NoError(t, err)
	_, err = seq.BackwardInput(inputs, gradOuts)
	require.NoError(t, err)
	require.NoError(t, seq.AccumulateGrad(inputs, gradOuts, 2))

	// gradW = 2 * (1*[1,2] + 0.5*[3,4]) = [5, 8]; gradB = 2 * (1 + 0.5) = 3
	assert.InDeltaSlice(t, []float32{5, 8}, lin.GradWeight.AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{3}, lin.GradBias.AsFloat32(), 1e-6)
}

// TestSequencer_AccumulateAndUpdate verifies the fused variant mutates the
// parameters directly by the scaled summed gradient.
func TestSequencer_AccumulateAndUpdate(t *testing.T) {
	lin := NewLinear(2, 1)
	copy(lin.Weight.AsFloat32(), []float32{1, 2})
	seq := NewSequencer(lin)

	inputs := []*State{vec(t, 1, 2), vec(t, 3, 4)}
	gradOuts := []*State{vec(t, 1), vec(t, 0.5)}

	_, err := seq.Forward(inputs)
	require.NoError(t, err)
	_, err = seq.BackwardInput(inputs, gradOuts)
	require.NoError(t, err)
	require.NoError(t, seq.AccumulateAndUpdate(inputs, gradOuts, 0.1))

	// W -= 0.1 * (1*[1,2] + 0.5*[3,4]) = [1,2] - [0.25, 0.4]
	assert.InDeltaSlice(t, []float32{0.75, 1.6}, lin.Weight.AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{-0.15}, lin.Bias.AsFloat32(), 1e-6)

	// Accumulated gradients stay untouched by the fused pass.
	assert.InDeltaSlice(t, []float32{0, 0}, lin.GradWeight.AsFloat32(), 1e-6)
}

func TestSequencer_EmptySequence(t *testing.T) {
	seq := NewSequencer(NewIdentity())

	outs, err := seq.Forward([]*State{})
	require.NoError(t, err)
	assert.Empty(t, outs)

	grads, err := seq.BackwardInput([]*State{}, []*State{})
	require.NoError(t, err)
	assert.Empty(t, grads)
}

// TestSequencer_OutputListRebuilt: outputs of a previous Forward must not
// be visible after a shorter Forward call.
func TestSequencer_OutputListRebuilt(t *testing.T) {
	seq := NewSequencer(NewIdentity())

	_, err := seq.Forward(steps(t, 1, 2, 3))
	require.NoError(t, err)

	outs, err := seq.Forward(steps(t, 9))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, float32(9), outs[0].Float32s()[0])
}

// TestSequencer_VaryingLength exercises the pool across sequence length
// changes: shorter then longer sequences must stay correct, with stale
// state from prior sequences overwritten in place.
func TestSequencer_VaryingLength(t *testing.T) {
	seq := NewSequencer(NewIdentity())

	_, err := seq.Forward(steps(t, 1, 2, 3, 4))
	require.NoError(t, err)

	outs, err := seq.Forward(steps(t, 5, 6))
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, float32(5), outs[0].Float32s()[0])
	assert.Equal(t, float32(6), outs[1].Float32s()[0])

	outs, err = seq.Forward(steps(t, 7, 8, 9))
	require.NoError(t, err)
	require.Len(t, outs, 3)
	assert.Equal(t, float32(9), outs[2].Float32s()[0])
}

// TestSequencer_StructureChange: feeding a nested state where a prior step
// captured a flat buffer is a structural contract violation.
func TestSequencer_StructureChange(t *testing.T) {
	seq := NewSequencer(NewIdentity())

	_, err := seq.Forward(steps(t, 1, 2))
	require.NoError(t, err)

	nested := Node(vec(t, 1), vec(t, 2))
	_, err = seq.Forward([]*State{nested, nested})
	require.ErrorIs(t, err, ErrInvalidStateShape)
}

func TestSequencer_ModeString(t *testing.T) {
	assert.Equal(t, "Stepwise", ModeStepwise.String())
	assert.Equal(t, "Recurrent", ModeRecurrent.String())
	assert.Equal(t, "Unknown", Mode(42).String())
}

// Varying element counts across sequences must resize pool storage without
// structural errors.
func TestSequencer_VaryingShape(t *testing.T) {
	seq := NewSequencer(NewIdentity())

	_, err := seq.Forward([]*State{vec(t, 1, 2, 3)})
	require.NoError(t, err)

	outs, err := seq.Forward([]*State{vec(t, 4)})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	require.True(t, outs[0].Raw().Shape().Equal(tensor.Shape{1}))
	assert.Equal(t, float32(4), outs[0].Float32s()[0])
}
