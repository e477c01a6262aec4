package nn

import (
	"fmt"

	"github.com/born-ml/seqnn/internal/tensor"
)

// State is the buffer currency of the sequence wrapper: either a Leaf
// holding a single raw tensor, or a Node holding an ordered list of child
// states. Modules that produce or consume multiple tensors per step (for
// example a layer emitting both an output and an attention map) use Nodes;
// everything else uses Leaves.
type State struct {
	leaf *tensor.RawTensor
	kids []*State
}

// Leaf wraps a raw tensor as a leaf state.
func Leaf(raw *tensor.RawTensor) *State {
	if raw == nil {
		panic("nn.Leaf: nil tensor")
	}
	return &State{leaf: raw}
}

// Node builds an ordered composite state from children.
func Node(children ...*State) *State {
	return &State{kids: children}
}

// FromFloat32 is a convenience constructor for a leaf state over a fresh
// Float32 tensor with the given data and shape.
func FromFloat32(data []float32, shape tensor.Shape) (*State, error) {
	raw, err := tensor.FromFloat32(data, shape)
	if err != nil {
		return nil, err
	}
	return Leaf(raw), nil
}

// IsLeaf reports whether the state is a single tensor.
func (s *State) IsLeaf() bool {
	return s.leaf != nil
}

// Raw returns the leaf tensor.
// Panics if the state is a Node.
func (s *State) Raw() *tensor.RawTensor {
	if s.leaf == nil {
		panic("nn.State: Raw() called on a node state")
	}
	return s.leaf
}

// Len returns the number of children of a Node, or 0 for a Leaf.
func (s *State) Len() int {
	return len(s.kids)
}

// At returns the i-th child of a Node.
// Panics if the state is a Leaf or i is out of range.
func (s *State) At(i int) *State {
	if s.leaf != nil {
		panic("nn.State: At() called on a leaf state")
	}
	return s.kids[i]
}

// Float32s returns the leaf tensor's data as []float32.
// Shorthand used heavily by modules and tests.
func (s *State) Float32s() []float32 {
	return s.Raw().AsFloat32()
}

// reshape makes existing structurally and shape-wise compatible with
// shapeSource, allocating fresh storage only where existing has none and
// resizing leaf tensors in place otherwise. Contents carry no guarantee
// after a reshape; callers overwrite them.
//
// onAlloc, if non-nil, is invoked once per fresh leaf allocation (including
// an in-place resize that had to grow its backing array). A Leaf/Node
// mismatch between existing and shapeSource is a contract violation and
// returns ErrInvalidStateShape.
func reshape(existing, shapeSource *State, onAlloc func()) (*State, error) {
	if shapeSource == nil {
		return nil, fmt.Errorf("%w: nil shape source", ErrInvalidStateShape)
	}

	if existing == nil {
		return allocLike(shapeSource, onAlloc)
	}

	switch {
	case existing.IsLeaf() && shapeSource.IsLeaf():
		src := shapeSource.Raw()
		dst := existing.Raw()
		if dst.DType() != src.DType() {
			return nil, fmt.Errorf("%w: dtype %s vs %s", ErrInvalidStateShape, dst.DType(), src.DType())
		}
		grew, err := dst.ResizeAs(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStateShape, err)
		}
		if grew && onAlloc != nil {
			onAlloc()
		}
		return existing, nil

	case !existing.IsLeaf() && !shapeSource.IsLeaf():
		if existing.Len() != shapeSource.Len() {
			return nil, fmt.Errorf("%w: node arity %d vs %d",
				ErrInvalidStateShape, existing.Len(), shapeSource.Len())
		}
		for i := range existing.kids {
			kid, err := reshape(existing.kids[i], shapeSource.kids[i], onAlloc)
			if err != nil {
				return nil, err
			}
			existing.kids[i] = kid
		}
		return existing, nil

	default:
		return nil, fmt.Errorf("%w: leaf/node structure mismatch", ErrInvalidStateShape)
	}
}

// allocLike creates a fresh state mirroring the structure, shapes and
// dtypes of src.
func allocLike(src *State, onAlloc func()) (*State, error) {
	if src.IsLeaf() {
		raw, err := tensor.NewRaw(src.Raw().Shape(), src.Raw().DType())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStateShape, err)
		}
		if onAlloc != nil {
			onAlloc()
		}
		return Leaf(raw), nil
	}
	kids := make([]*State, src.Len())
	for i := range kids {
		kid, err := allocLike(src.kids[i], onAlloc)
		if err != nil {
			return nil, err
		}
		kids[i] = kid
	}
	return Node(kids...), nil
}

// copyInto copies src's contents into dst. Both states must already share
// structure and element counts (typically dst came out of reshape(dst, src)).
func copyInto(dst, src *State) error {
	if dst.IsLeaf() != src.IsLeaf() {
		return fmt.Errorf("%w: leaf/node structure mismatch", ErrInvalidStateShape)
	}
	if dst.IsLeaf() {
		if err := dst.Raw().CopyFrom(src.Raw()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidStateShape, err)
		}
		return nil
	}
	if dst.Len() != src.Len() {
		return fmt.Errorf("%w: node arity %d vs %d", ErrInvalidStateShape, dst.Len(), src.Len())
	}
	for i := range dst.kids {
		if err := copyInto(dst.kids[i], src.kids[i]); err != nil {
			return err
		}
	}
	return nil
}
