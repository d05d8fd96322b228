// Package tensor implements the dense float64 tensor container that the
// autograd engine and its operators build on: a contiguous row-major
// buffer, a shape vector, and the optional graph/gradient linkage that
// makes a tensor "tracked" (see package graph).
package tensor

import "math/rand"

// MaxRank bounds the shape vectors this library expects to see; it is a
// documentation constant rather than an enforced array size, since Go
// slices already give safe, growable storage for shape/strides.
const MaxRank = 8

// Tensor is an opaque rank-N array: a contiguous row-major float64
// buffer plus its shape and strides. A Tensor with a nil Node is
// "non-tracked" — it cannot participate in backward.
type Tensor struct {
	Data    []float64
	Shape   []int
	Strides []int

	// Node is the graph node attached to this tensor once it becomes
	// gradient-tracked. Nil for untracked scratch tensors.
	Node GraphNode

	// Grad is the gradient accumulator for this tensor, same shape as
	// Data. Allocated lazily on first write during backward.
	Grad *Tensor

	// Aux holds a scratch tensor an operator's backward closure needs
	// to keep alive for the lifetime of this node (e.g. the softmax
	// saved by SoftmaxCrossEntropy). Nil for every other tensor.
	// Released alongside this tensor by Allocators.Free.
	Aux *Tensor
}

// GraphNode is the subset of *graph.Node that package tensor needs to
// know about, expressed as an interface to avoid an import cycle
// between tensor and graph (graph.Node embeds a *Tensor back-reference).
type GraphNode interface {
	// Tracked reports whether this node is attached to a live tensor.
	Tracked() bool
}

// New wraps data with the given shape, computing row-major strides.
// It panics if the data length does not match the shape's element
// count — a structural precondition violation, not a recoverable one.
func New(data []float64, shape []int) *Tensor {
	size := ElemCount(shape)
	if len(data) != size {
		panic("tensor: data length does not match shape")
	}
	return &Tensor{
		Data:    data,
		Shape:   append([]int{}, shape...),
		Strides: Strides(shape),
	}
}

// Zeros returns a new tensor of the given shape filled with zeros.
func Zeros(shape ...int) *Tensor {
	return &Tensor{
		Data:    make([]float64, ElemCount(shape)),
		Shape:   append([]int{}, shape...),
		Strides: Strides(shape),
	}
}

// Ones returns a new tensor of the given shape filled with ones.
func Ones(shape ...int) *Tensor {
	t := Zeros(shape...)
	for i := range t.Data {
		t.Data[i] = 1.0
	}
	return t
}

// Randn returns a tensor of the given shape with values drawn from the
// standard normal distribution, seeded for reproducibility.
func Randn(shape []int, seed int64) *Tensor {
	t := Zeros(shape...)
	rng := rand.New(rand.NewSource(seed))
	for i := range t.Data {
		t.Data[i] = rng.NormFloat64()
	}
	return t
}

// Scalar wraps a single float64 as a rank-1, size-1 tensor.
func Scalar(v float64) *Tensor {
	return &Tensor{Data: []float64{v}, Shape: []int{1}, Strides: []int{1}}
}

// DataLen returns the number of elements in the tensor's buffer.
func (t *Tensor) DataLen() int { return len(t.Data) }

// IsScalar reports whether the tensor has exactly one element.
func (t *Tensor) IsScalar() bool { return ElemCount(t.Shape) == 1 }

// Tracked reports whether the tensor has an attached graph node.
func (t *Tensor) Tracked() bool { return t.Node != nil && t.Node.Tracked() }

// ElemCount returns the product of a shape's dimensions (1 for the
// empty shape, matching a scalar with no explicit axes).
func ElemCount(shape []int) int {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return size
}

// Strides computes row-major (C-style) strides for shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// ShapesEqual reports whether two shape vectors describe identical
// dimensions in the same order.
func ShapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
