// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/seqnn/internal/nn"
)

// Identity passes its input through unchanged.
type Identity = nn.Identity

// NewIdentity creates an identity module.
func NewIdentity() *Identity {
	return nn.NewIdentity()
}

// Linear is a fully connected layer over 1-D vector states.
type Linear = nn.Linear

// NewLinear creates a linear layer mapping inFeatures to outFeatures.
func NewLinear(inFeatures, outFeatures int) *Linear {
	return nn.NewLinear(inFeatures, outFeatures)
}

// Tanh applies the hyperbolic tangent element-wise.
type Tanh = nn.Tanh

// NewTanh creates a tanh activation module.
func NewTanh() *Tanh {
	return nn.NewTanh()
}

// Sigmoid applies the logistic function element-wise.
type Sigmoid = nn.Sigmoid

// NewSigmoid creates a sigmoid activation module.
func NewSigmoid() *Sigmoid {
	return nn.NewSigmoid()
}

// Pipeline chains modules, feeding each module's output to the next.
type Pipeline = nn.Pipeline

// NewPipeline creates a pipeline over the given modules, in order.
func NewPipeline(modules ...Module) *Pipeline {
	return nn.NewPipeline(modules...)
}

// Recur is a simple recurrent (Elman) layer with tanh activation and
// built-in backpropagation through time.
type Recur = nn.Recur

// NewRecur creates a recurrent layer with the given input and hidden sizes.
func NewRecur(inSize, hidSize int) *Recur {
	return nn.NewRecur(inSize, hidSize)
}
