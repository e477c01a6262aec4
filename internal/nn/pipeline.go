package nn

// Pipeline chains multiple modules together: each module's output becomes
// the next module's input.
//
// Example:
//
//	model := nn.NewPipeline(
//	    nn.NewLinear(4, 8),
//	    nn.NewTanh(),
//	    nn.NewLinear(8, 2),
//	)
//
// A Pipeline's own output and gradInput buffers alias the last module's
// output and the first module's gradInput respectively. Its backward pass
// reads each constituent's Output() as the next constituent's input, which
// is what lets a Sequencer restore a prior step's buffers and replay the
// backward pass for exactly that step.
type Pipeline struct {
	Base
	modules []Module
}

// NewPipeline creates a new Pipeline container.
func NewPipeline(modules ...Module) *Pipeline {
	return &Pipeline{modules: modules}
}

// Add appends a module to the pipeline.
func (p *Pipeline) Add(m Module) {
	p.modules = append(p.modules, m)
}

// Len returns the number of directly contained modules.
func (p *Pipeline) Len() int {
	return len(p.modules)
}

// Module returns the directly contained module at index i.
// Panics if i is out of bounds.
func (p *Pipeline) Module(i int) Module {
	if i < 0 || i >= len(p.modules) {
		panic("Pipeline.Module: index out of bounds")
	}
	return p.modules[i]
}

// Forward applies all modules in sequence.
func (p *Pipeline) Forward(input *State) *State {
	out := input
	for _, m := range p.modules {
		out = m.Forward(out)
	}
	p.SetOutput(out)
	return out
}

// BackwardInput propagates gradOutput through the modules in reverse,
// feeding each module the preceding module's current output as its input.
func (p *Pipeline) BackwardInput(input, gradOutput *State) *State {
	g := gradOutput
	for i := len(p.modules) - 1; i > 0; i-- {
		g = p.modules[i].BackwardInput(p.modules[i-1].Output(), g)
	}
	if len(p.modules) > 0 {
		g = p.modules[0].BackwardInput(input, g)
	}
	p.SetGradInput(g)
	return g
}

// AccumulateGrad accumulates parameter gradients in every module, feeding
// each the same inputs and upstream gradients as the backward pass.
func (p *Pipeline) AccumulateGrad(input, gradOutput *State, scale float32) {
	p.eachBackward(input, gradOutput, func(m Module, in, g *State) {
		m.AccumulateGrad(in, g, scale)
	})
}

// AccumulateUpdate fuses gradient computation with an in-place parameter
// update in every module.
func (p *Pipeline) AccumulateUpdate(input, gradOutput *State, lr float32) {
	p.eachBackward(input, gradOutput, func(m Module, in, g *State) {
		m.AccumulateUpdate(in, g, lr)
	})
}

// eachBackward walks modules in reverse with the per-module (input,
// gradOutput) pair of the current step. Interior upstream gradients are the
// constituents' current gradInput buffers, valid because the parameter
// passes always follow a BackwardInput over the same step with the same
// restored state.
func (p *Pipeline) eachBackward(input, gradOutput *State, visit func(Module, *State, *State)) {
	g := gradOutput
	for i := len(p.modules) - 1; i > 0; i-- {
		visit(p.modules[i], p.modules[i-1].Output(), g)
		g = p.modules[i].GradInput()
		if g == nil {
			panic("Pipeline: parameter pass requires a prior BackwardInput over the same step")
		}
	}
	if len(p.modules) > 0 {
		visit(p.modules[0], input, g)
	}
}

// SubUnits returns the pipeline itself followed by the flattened
// decomposition of every contained module, in order.
func (p *Pipeline) SubUnits() []Module {
	units := []Module{p}
	for _, m := range p.modules {
		units = append(units, m.SubUnits()...)
	}
	return units
}
