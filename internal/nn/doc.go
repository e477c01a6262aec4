// Package nn implements the sequence wrapper modules for the seqnn toolkit.
//
// The central type is Sequencer, which applies a wrapped Module once per
// time-step over an ordered list of inputs. Two execution modes exist,
// fixed when the Sequencer is built:
//
//   - Recurrent: the wrapped module implements the Recurrent interface and
//     threads its own hidden state across steps; gradients flow through a
//     single back-propagation-through-time pass after all steps are primed.
//   - Stepwise: the wrapped module is stateless across steps; the Sequencer
//     captures every sub-unit's output/gradInput buffer per step into a
//     StepBufferPool and restores it before revisiting that step, so each
//     step computes into the same storage on every pass and every epoch.
//
// The buffer swap is a transient borrow: while a step executes, the wrapped
// module's sub-unit buffer fields point at pool-owned storage. Between steps
// those fields must not be inspected by callers. All passes are synchronous
// and single-threaded; steps of one sequence share storage by design and
// cannot run concurrently.
package nn
