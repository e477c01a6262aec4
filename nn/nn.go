// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for sequence-aware neural network
// modules.
//
// The central type is Sequencer, which lifts a per-step module into one
// that consumes and produces ordered lists of step states, keeping every
// step's buffers alive in a StepBufferPool so that backpropagation through
// the whole sequence remains possible.
//
// Example:
//
//	model := nn.NewPipeline(
//	    nn.NewLinear(4, 8),
//	    nn.NewTanh(),
//	    nn.NewLinear(8, 2),
//	)
//	seq := nn.NewSequencer(model)
//	out, err := seq.Forward(input) // input is a *State per time step
package nn

import (
	"github.com/born-ml/seqnn/internal/nn"
	"github.com/born-ml/seqnn/internal/tensor"
)

// Module is the contract every per-step network module satisfies.
//
// A module owns two persistent buffers, Output and GradInput, which the
// three passes write into:
//   - Forward: input -> Output
//   - BackwardInput: (input, gradOutput) -> GradInput
//   - AccumulateGrad / AccumulateUpdate: (input, gradOutput) -> parameter
//     gradients, or an immediate in-place parameter update
type Module = nn.Module

// Recurrent is a Module that carries hidden state across time steps and
// implements backpropagation through time.
type Recurrent = nn.Recurrent

// State is the per-step value flowing between modules: either a single
// tensor leaf or an ordered list of child states.
type State = nn.State

// Leaf wraps a tensor as a leaf state.
func Leaf(raw *tensor.RawTensor) *State {
	return nn.Leaf(raw)
}

// Node builds a composite state from child states.
func Node(children ...*State) *State {
	return nn.Node(children...)
}

// FromFloat32 builds a leaf state holding a copy of data.
func FromFloat32(data []float32, shape tensor.Shape) (*State, error) {
	return nn.FromFloat32(data, shape)
}

// Mode selects how a Sequencer drives its inner module.
type Mode = nn.Mode

// Sequencer modes.
const (
	// ModeStepwise drives a plain module once per step, swapping the
	// module's buffers through a StepBufferPool between steps.
	ModeStepwise Mode = nn.ModeStepwise

	// ModeRecurrent delegates state handling to a Recurrent inner
	// module, which performs backpropagation through time itself.
	ModeRecurrent Mode = nn.ModeRecurrent
)

// Sequencer lifts a per-step module into a sequence module.
type Sequencer = nn.Sequencer

// NewSequencer wraps inner, selecting ModeRecurrent when inner implements
// Recurrent and ModeStepwise otherwise.
func NewSequencer(inner Module) *Sequencer {
	return nn.NewSequencer(inner)
}

// StepBufferPool keeps per-step snapshots of module buffers so that a
// single set of modules can serve every time step of a sequence.
type StepBufferPool = nn.StepBufferPool

// NewStepBufferPool creates an empty pool.
func NewStepBufferPool() *StepBufferPool {
	return nn.NewStepBufferPool()
}
