// Package layers builds trainable modules out of the operator adapter
// layer: a Layer wraps one or more ops calls plus the parameter
// tensors they close over.
package layers

import (
	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Layer is one stage of a network: a forward transform plus whatever
// trainable parameters it owns (none, for a plain activation).
type Layer interface {
	// Forward runs the layer's transform, wiring it into allocs' graph.
	Forward(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error)

	// Params returns the layer's trainable tensors, in update order.
	// A parameter-free layer (an activation) returns nil.
	Params() []*tensor.Tensor

	// Retrack re-registers the layer's parameters on allocs' tape
	// after a ResetTape, clearing the previous step's stale outgoing
	// links. A parameter-free layer is a no-op.
	Retrack(allocs *graph.Allocators) error
}

// Sequential chains a fixed list of layers, feeding each one's output
// into the next.
type Sequential struct {
	layers []Layer
}

// NewSequential returns a Sequential running layers in the given order.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Forward runs every layer in order.
func (s *Sequential) Forward(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	out := x
	var err error
	for _, l := range s.layers {
		out, err = l.Forward(out, allocs)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Params concatenates every sub-layer's parameters, in layer order.
func (s *Sequential) Params() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, l := range s.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// Retrack re-tracks every sub-layer's parameters.
func (s *Sequential) Retrack(allocs *graph.Allocators) error {
	for _, l := range s.layers {
		if err := l.Retrack(allocs); err != nil {
			return err
		}
	}
	return nil
}
