// Package ops is the operator adapter layer: every function here pairs
// a pure tensor kernel with the graph wiring that makes it
// differentiable. A kernel panics on a shape-contract violation (the
// caller passed tensors that could never have been produced by correct
// forward code); AddLink failures are returned as errors, since those
// reflect allocator exhaustion rather than programmer error.
package ops

import (
	"sync"

	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Operand slots for MatMul.
const (
	MatMulLHS = 0
	MatMulRHS = 1
)

// parallelRowThreshold is the row count at or above which MatMul shards rows
// across goroutines instead of running a single sequential pass.
const parallelRowThreshold = 64

// MatMul computes lhs @ rhs for two 2D tensors and wires a backward
// rule for whichever operand is tracked.
func MatMul(lhs, rhs *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	out := matmulForward(lhs, rhs, allocs)
	return wireMatMul(lhs, rhs, out, allocs)
}

func matmulForward(lhs, rhs *tensor.Tensor, allocs *graph.Allocators) *tensor.Tensor {
	if len(lhs.Shape) != 2 || len(rhs.Shape) != 2 {
		panic("ops: MatMul requires 2D tensors")
	}
	if lhs.Shape[1] != rhs.Shape[0] {
		panic("ops: MatMul inner dimensions must match")
	}
	out := allocs.Tensors.Alloc([]int{lhs.Shape[0], rhs.Shape[1]})
	if lhs.Shape[0] >= parallelRowThreshold {
		matmulKernelParallel(lhs, rhs, out)
	} else {
		matmulKernel(lhs, rhs, out)
	}
	return out
}

func wireMatMul(lhs, rhs, out *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	if !lhs.Tracked() && !rhs.Tracked() {
		return out, nil
	}
	if _, err := graph.Track(out, allocs); err != nil {
		return nil, err
	}
	if lhs.Tracked() {
		if err := graph.AddLink(lhs, out, MatMulLHS, matmulBackwardLHS, allocs); err != nil {
			return nil, err
		}
	}
	if rhs.Tracked() {
		if err := graph.AddLink(rhs, out, MatMulRHS, matmulBackwardRHS, allocs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func matmulKernel(a, b, out *tensor.Tensor) {
	rows, inner, cols := a.Shape[0], a.Shape[1], b.Shape[1]
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum := 0.0
			for k := 0; k < inner; k++ {
				sum += a.Data[i*a.Strides[0]+k*a.Strides[1]] * b.Data[k*b.Strides[0]+j*b.Strides[1]]
			}
			out.Data[i*out.Strides[0]+j*out.Strides[1]] = sum
		}
	}
}

// matmulKernelParallel shards the row loop across goroutines, one per
// row, synchronized by a WaitGroup — safe because each goroutine only
// ever writes the rows it owns.
func matmulKernelParallel(a, b, out *tensor.Tensor) {
	rows, inner, cols := a.Shape[0], a.Shape[1], b.Shape[1]
	var wg sync.WaitGroup
	for i := 0; i < rows; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < cols; j++ {
				sum := 0.0
				for k := 0; k < inner; k++ {
					sum += a.Data[i*a.Strides[0]+k*a.Strides[1]] * b.Data[k*b.Strides[0]+j*b.Strides[1]]
				}
				out.Data[i*out.Strides[0]+j*out.Strides[1]] = sum
			}
		}(i)
	}
	wg.Wait()
}

// matmulBackwardLHS computes d(out)/d(lhs) = gradOut @ rhs^T.
func matmulBackwardLHS(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	rhs := ctx.Operands.Operands[MatMulRHS]
	rows, cols, inner := gradIn.Shape[0], gradIn.Shape[1], gradOut.Shape[1]
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum := 0.0
			for k := 0; k < inner; k++ {
				sum += gradOut.Data[i*gradOut.Strides[0]+k*gradOut.Strides[1]] * rhs.Data[j*rhs.Strides[0]+k*rhs.Strides[1]]
			}
			gradIn.Data[i*gradIn.Strides[0]+j*gradIn.Strides[1]] = sum
		}
	}
}

// matmulBackwardRHS computes d(out)/d(rhs) = lhs^T @ gradOut.
func matmulBackwardRHS(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	lhs := ctx.Operands.Operands[MatMulLHS]
	rows, cols, inner := gradIn.Shape[0], gradIn.Shape[1], gradOut.Shape[0]
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum := 0.0
			for k := 0; k < inner; k++ {
				sum += lhs.Data[k*lhs.Strides[0]+i*lhs.Strides[1]] * gradOut.Data[k*gradOut.Strides[0]+j*gradOut.Strides[1]]
			}
			gradIn.Data[i*gradIn.Strides[0]+j*gradIn.Strides[1]] = sum
		}
	}
}
