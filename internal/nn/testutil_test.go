package nn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/seqnn/internal/tensor"
)

// vec builds a leaf state over a fresh Float32 vector.
func vec(t *testing.T, vals ...float32) *State {
	t.Helper()
	s, err := FromFloat32(vals, tensor.Shape{len(vals)})
	require.NoError(t, err)
	return s
}

// steps builds a step list of single-element leaf states.
func steps(t *testing.T, vals ...float32) []*State {
	t.Helper()
	list := make([]*State, len(vals))
	for i, v := range vals {
		list[i] = vec(t, v)
	}
	return list
}

// stubRecurrent is a configurable Recurrent implementation for exercising
// the Sequencer's recurrent protocol without real BPTT math. Forward is the
// identity; BackwardThroughTime replays the primed upstream gradients as
// input gradients unless configured to misbehave.
type stubRecurrent struct {
	Base

	resets    int
	stepTrace []int // step counter values observed by priming calls
	bpttCalls int
	accCalls  int

	primed     []*State
	gradInputs []*State

	dropGradients bool // BackwardThroughTime leaves GradInputs nil
	extraGradient bool // BackwardThroughTime appends one gradient too many
}

func (s *stubRecurrent) Forward(input *State) *State {
	out, err := allocLike(input, nil)
	if err != nil {
		panic(err)
	}
	if err := copyInto(out, input); err != nil {
		panic(err)
	}
	s.SetOutput(out)
	return out
}

func (s *stubRecurrent) BackwardInput(_, gradOutput *State) *State {
	s.primed = append(s.primed, gradOutput)
	return nil
}

func (s *stubRecurrent) AccumulateGrad(_, gradOutput *State, _ float32) {
	s.primed = append(s.primed, gradOutput)
}

func (s *stubRecurrent) AccumulateUpdate(_, gradOutput *State, _ float32) {
	s.primed = append(s.primed, gradOutput)
}

func (s *stubRecurrent) SubUnits() []Module { return []Module{s} }

func (s *stubRecurrent) ResetState() {
	s.resets++
	s.primed = nil
	s.gradInputs = nil
}

func (s *stubRecurrent) SetStep(step int) {
	s.stepTrace = append(s.stepTrace, step)
}

func (s *stubRecurrent) BackwardThroughTime() {
	s.bpttCalls++
	if s.dropGradients {
		s.gradInputs = nil
		return
	}
	s.gradInputs = append([]*State(nil), s.primed...)
	if s.extraGradient && len(s.primed) > 0 {
		s.gradInputs = append(s.gradInputs, s.primed[0])
	}
}

func (s *stubRecurrent) AccumulateThroughTime() {
	s.accCalls++
}

func (s *stubRecurrent) GradInputs() []*State { return s.gradInputs }
