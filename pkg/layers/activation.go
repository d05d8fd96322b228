package layers

import (
	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/ops"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// activationFunc is the shape shared by ops.ReLU, ops.Sigmoid, and
// ops.Tanh: a unary, parameter-free, gradient-tracked transform.
type activationFunc func(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error)

// activation adapts one of the ops package's unary functions into a
// parameter-free Layer, so it can sit inside a Sequential alongside
// Dense.
type activation struct {
	name string
	fn   activationFunc
}

func (a *activation) Forward(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	return a.fn(x, allocs)
}

func (a *activation) Params() []*tensor.Tensor { return nil }

func (a *activation) Retrack(allocs *graph.Allocators) error { return nil }

// ReLU returns a Layer applying ops.ReLU.
func ReLU() Layer { return &activation{name: "relu", fn: ops.ReLU} }

// Sigmoid returns a Layer applying ops.Sigmoid.
func Sigmoid() Layer { return &activation{name: "sigmoid", fn: ops.Sigmoid} }

// Tanh returns a Layer applying ops.Tanh.
func Tanh() Layer { return &activation{name: "tanh", fn: ops.Tanh} }
