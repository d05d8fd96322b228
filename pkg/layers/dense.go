package layers

import (
	"math"

	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/ops"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Dense is a fully connected layer: y = x @ weights + bias.
type Dense struct {
	Weights *tensor.Tensor
	Bias    *tensor.Tensor
	inDim   int
	outDim  int
}

// NewDense allocates a Dense layer's weights and bias, He-initialized
// and tracked against allocs so gradients accumulate into them across
// forward passes.
func NewDense(inDim, outDim int, allocs *graph.Allocators, seed int64) (*Dense, error) {
	scale := math.Sqrt(2.0 / float64(inDim))
	w := tensor.Randn([]int{inDim, outDim}, seed)
	for i := range w.Data {
		w.Data[i] *= scale
	}
	b := tensor.Zeros(outDim)

	if _, err := graph.Track(w, allocs); err != nil {
		return nil, err
	}
	if _, err := graph.Track(b, allocs); err != nil {
		return nil, err
	}
	return &Dense{Weights: w, Bias: b, inDim: inDim, outDim: outDim}, nil
}

// Forward computes x @ Weights + Bias for a [batch, inDim] input.
func (d *Dense) Forward(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	return ops.Linear(x, d.Weights, d.Bias, allocs)
}

// Params returns the weight and bias tensors, in the order an
// optimizer should update them.
func (d *Dense) Params() []*tensor.Tensor {
	return []*tensor.Tensor{d.Weights, d.Bias}
}

// Retrack re-registers Weights and Bias on allocs' tape after a
// ResetTape, so their fresh outgoing links from this step's Forward
// are visible to Backward.
func (d *Dense) Retrack(allocs *graph.Allocators) error {
	if _, err := graph.Retrack(d.Weights, allocs); err != nil {
		return err
	}
	if _, err := graph.Retrack(d.Bias, allocs); err != nil {
		return err
	}
	return nil
}
