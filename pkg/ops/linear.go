package ops

import (
	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Operand slots for Linear: a fused matmul-plus-broadcast-bias,
// grounded on the dense layer's forward/backward pair but expressed as
// a standalone operator so any caller can use it without pulling in a
// layer type.
const (
	LinearInput   = 0
	LinearWeights = 1
	LinearBias    = 2
)

// Linear computes input @ weights + bias, where input is
// [batch, inDim], weights is [inDim, outDim], and bias is [outDim]
// broadcast over the batch dimension.
func Linear(input, weights, bias *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	if len(input.Shape) != 2 || len(weights.Shape) != 2 || len(bias.Shape) != 1 {
		panic("ops: Linear requires a 2D input, a 2D weights matrix, and a 1D bias")
	}
	if input.Shape[1] != weights.Shape[0] {
		panic("ops: Linear input/weights inner dimensions must match")
	}
	if weights.Shape[1] != bias.Shape[0] {
		panic("ops: Linear weights/bias output dimensions must match")
	}

	batch, outDim := input.Shape[0], weights.Shape[1]
	out := allocs.Tensors.Alloc([]int{batch, outDim})
	linearKernel(input, weights, bias, out)

	if !input.Tracked() && !weights.Tracked() && !bias.Tracked() {
		return out, nil
	}
	if _, err := graph.Track(out, allocs); err != nil {
		return nil, err
	}
	if input.Tracked() {
		if err := graph.AddLink(input, out, LinearInput, linearBackwardInput, allocs); err != nil {
			return nil, err
		}
	}
	if weights.Tracked() {
		if err := graph.AddLink(weights, out, LinearWeights, linearBackwardWeights, allocs); err != nil {
			return nil, err
		}
	}
	if bias.Tracked() {
		if err := graph.AddLink(bias, out, LinearBias, linearBackwardBias, allocs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func linearKernel(input, weights, bias, out *tensor.Tensor) {
	batch, inDim, outDim := input.Shape[0], input.Shape[1], weights.Shape[1]
	for i := 0; i < batch; i++ {
		for j := 0; j < outDim; j++ {
			sum := bias.Data[j*bias.Strides[0]]
			for k := 0; k < inDim; k++ {
				sum += input.Data[i*input.Strides[0]+k*input.Strides[1]] * weights.Data[k*weights.Strides[0]+j*weights.Strides[1]]
			}
			out.Data[i*out.Strides[0]+j*out.Strides[1]] = sum
		}
	}
}

// linearBackwardInput computes d(out)/d(input) = gradOut @ weights^T.
func linearBackwardInput(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	weights := ctx.Operands.Operands[LinearWeights]
	batch, inDim, outDim := gradIn.Shape[0], gradIn.Shape[1], gradOut.Shape[1]
	for i := 0; i < batch; i++ {
		for k := 0; k < inDim; k++ {
			sum := 0.0
			for j := 0; j < outDim; j++ {
				sum += gradOut.Data[i*gradOut.Strides[0]+j*gradOut.Strides[1]] * weights.Data[k*weights.Strides[0]+j*weights.Strides[1]]
			}
			gradIn.Data[i*gradIn.Strides[0]+k*gradIn.Strides[1]] = sum
		}
	}
}

// linearBackwardWeights computes d(out)/d(weights) = input^T @ gradOut.
func linearBackwardWeights(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	input := ctx.Operands.Operands[LinearInput]
	batch, inDim, outDim := input.Shape[0], gradIn.Shape[0], gradOut.Shape[1]
	for k := 0; k < inDim; k++ {
		for j := 0; j < outDim; j++ {
			sum := 0.0
			for i := 0; i < batch; i++ {
				sum += input.Data[i*input.Strides[0]+k*input.Strides[1]] * gradOut.Data[i*gradOut.Strides[0]+j*gradOut.Strides[1]]
			}
			gradIn.Data[k*gradIn.Strides[0]+j*gradIn.Strides[1]] = sum
		}
	}
}

// linearBackwardBias sums gradOut over the batch dimension.
func linearBackwardBias(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	batch, outDim := gradOut.Shape[0], gradOut.Shape[1]
	for j := 0; j < outDim; j++ {
		sum := 0.0
		for i := 0; i < batch; i++ {
			sum += gradOut.Data[i*gradOut.Strides[0]+j*gradOut.Strides[1]]
		}
		gradIn.Data[j*gradIn.Strides[0]] = sum
	}
}
