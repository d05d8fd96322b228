package ops

import (
	"math"

	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Operand slots for Add.
const (
	AddLHS = 0
	AddRHS = 1
)

// Operand slot shared by every unary elementwise op (ReLU, Sigmoid,
// Tanh, Transpose): there is only one operand.
const Only = 0

// Add computes lhs + rhs elementwise. Both operands must share a
// shape — no broadcasting.
func Add(lhs, rhs *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	if !tensor.ShapesEqual(lhs.Shape, rhs.Shape) {
		panic("ops: Add requires matching shapes")
	}
	out := allocs.Tensors.Alloc(lhs.Shape)
	for i := range out.Data {
		out.Data[i] = lhs.Data[i] + rhs.Data[i]
	}

	if !lhs.Tracked() && !rhs.Tracked() {
		return out, nil
	}
	if _, err := graph.Track(out, allocs); err != nil {
		return nil, err
	}
	if lhs.Tracked() {
		if err := graph.AddLink(lhs, out, AddLHS, addIdentityBackward, allocs); err != nil {
			return nil, err
		}
	}
	if rhs.Tracked() {
		if err := graph.AddLink(rhs, out, AddRHS, addIdentityBackward, allocs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func addIdentityBackward(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	copy(gradIn.Data, gradOut.Data)
}

// ReLU computes max(0, x) elementwise.
func ReLU(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	out := allocs.Tensors.Alloc(x.Shape)
	for i, v := range x.Data {
		if v > 0 {
			out.Data[i] = v
		}
	}
	return wireUnary(x, out, reluBackward, allocs)
}

func reluBackward(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	input := ctx.Operands.Operands[Only]
	for i, v := range input.Data {
		if v > 0 {
			gradIn.Data[i] = gradOut.Data[i]
		}
	}
}

// Sigmoid computes 1/(1+e^-x) elementwise.
func Sigmoid(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	out := allocs.Tensors.Alloc(x.Shape)
	for i, v := range x.Data {
		out.Data[i] = 1.0 / (1.0 + math.Exp(-v))
	}
	return wireUnary(x, out, sigmoidBackward, allocs)
}

// sigmoidBackward recomputes the sigmoid from the input operand in the
// snapshot (ctx carries only operands, not the consumer's own forward
// value).
func sigmoidBackward(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	input := ctx.Operands.Operands[Only]
	for i, v := range input.Data {
		s := 1.0 / (1.0 + math.Exp(-v))
		gradIn.Data[i] = gradOut.Data[i] * s * (1.0 - s)
	}
}

// Tanh computes tanh(x) elementwise.
func Tanh(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	out := allocs.Tensors.Alloc(x.Shape)
	for i, v := range x.Data {
		out.Data[i] = math.Tanh(v)
	}
	return wireUnary(x, out, tanhBackward, allocs)
}

func tanhBackward(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	input := ctx.Operands.Operands[Only]
	for i, v := range input.Data {
		th := math.Tanh(v)
		gradIn.Data[i] = gradOut.Data[i] * (1.0 - th*th)
	}
}

// Transpose returns the transpose of a 2D tensor.
func Transpose(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	if len(x.Shape) != 2 {
		panic("ops: Transpose requires a 2D tensor")
	}
	rows, cols := x.Shape[0], x.Shape[1]
	out := allocs.Tensors.Alloc([]int{cols, rows})
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Data[j*out.Strides[0]+i*out.Strides[1]] = x.Data[i*x.Strides[0]+j*x.Strides[1]]
		}
	}
	return wireUnary(x, out, transposeBackward, allocs)
}

func transposeBackward(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	rows, cols := gradIn.Shape[0], gradIn.Shape[1]
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			gradIn.Data[i*gradIn.Strides[0]+j*gradIn.Strides[1]] = gradOut.Data[j*gradOut.Strides[0]+i*gradOut.Strides[1]]
		}
	}
}

func wireUnary(x, out *tensor.Tensor, backward graph.BackwardFunc, allocs *graph.Allocators) (*tensor.Tensor, error) {
	if !x.Tracked() {
		return out, nil
	}
	if _, err := graph.Track(out, allocs); err != nil {
		return nil, err
	}
	if err := graph.AddLink(x, out, Only, backward, allocs); err != nil {
		return nil, err
	}
	return out, nil
}
