package tensor

import (
	"fmt"
	"math"
)

// UnrollFactor is the loop-unroll width used by the vectorized
// elementwise kernels below, standing in for SIMD vector width 4
// doubles (unrolled x8 to amortize the scalar remainder loop) when no
// hardware vector unit is assumed, per the scalar-fallback model in
// SPEC_FULL.md §5.
const UnrollFactor = 8

// Add returns a new tensor c where c[i] = a[i] + b[i]. a and b must
// share a shape.
func Add(a, b *Tensor) (*Tensor, error) {
	if !ShapesEqual(a.Shape, b.Shape) {
		return nil, fmt.Errorf("tensor: shapes must match: %v != %v", a.Shape, b.Shape)
	}
	result := Zeros(a.Shape...)
	addVectorized(a.Data, b.Data, result.Data)
	return result, nil
}

// Sub returns a new tensor c where c[i] = a[i] - b[i].
func Sub(a, b *Tensor) (*Tensor, error) {
	if !ShapesEqual(a.Shape, b.Shape) {
		return nil, fmt.Errorf("tensor: shapes must match: %v != %v", a.Shape, b.Shape)
	}
	result := Zeros(a.Shape...)
	subVectorized(a.Data, b.Data, result.Data)
	return result, nil
}

// Mul returns a new tensor c where c[i] = a[i] * b[i] (Hadamard
// product).
func Mul(a, b *Tensor) (*Tensor, error) {
	if !ShapesEqual(a.Shape, b.Shape) {
		return nil, fmt.Errorf("tensor: shapes must match: %v != %v", a.Shape, b.Shape)
	}
	result := Zeros(a.Shape...)
	mulVectorized(a.Data, b.Data, result.Data)
	return result, nil
}

// AddInPlace performs a += b without allocating, the operation the
// backward engine uses to accumulate a gradient contribution into an
// operand's grad buffer.
func AddInPlace(a, b *Tensor) error {
	if !ShapesEqual(a.Shape, b.Shape) {
		return fmt.Errorf("tensor: shapes must match: %v != %v", a.Shape, b.Shape)
	}
	addVectorized(a.Data, b.Data, a.Data)
	return nil
}

// Apply returns a new tensor with f applied elementwise.
func Apply(a *Tensor, f func(float64) float64) *Tensor {
	result := Zeros(a.Shape...)
	for i := range a.Data {
		result.Data[i] = f(a.Data[i])
	}
	return result
}

func addVectorized(a, b, out []float64) {
	n := len(a)
	i := 0
	for ; i <= n-UnrollFactor; i += UnrollFactor {
		for k := 0; k < UnrollFactor; k++ {
			out[i+k] = a[i+k] + b[i+k]
		}
	}
	for ; i < n; i++ {
		out[i] = a[i] + b[i]
	}
}

func subVectorized(a, b, out []float64) {
	n := len(a)
	i := 0
	for ; i <= n-UnrollFactor; i += UnrollFactor {
		for k := 0; k < UnrollFactor; k++ {
			out[i+k] = a[i+k] - b[i+k]
		}
	}
	for ; i < n; i++ {
		out[i] = a[i] - b[i]
	}
}

func mulVectorized(a, b, out []float64) {
	n := len(a)
	i := 0
	for ; i <= n-UnrollFactor; i += UnrollFactor {
		for k := 0; k < UnrollFactor; k++ {
			out[i+k] = a[i+k] * b[i+k]
		}
	}
	for ; i < n; i++ {
		out[i] = a[i] * b[i]
	}
}

// Transpose returns the transpose of a 2D tensor.
func Transpose(a *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 {
		return nil, fmt.Errorf("tensor: transpose requires a 2D tensor, got %dD", len(a.Shape))
	}
	rows, cols := a.Shape[0], a.Shape[1]
	result := Zeros(cols, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			result.Data[j*rows+i] = a.Data[i*cols+j]
		}
	}
	return result, nil
}

// Sum returns the scalar sum of every element in a.
func Sum(a *Tensor) *Tensor {
	sum := 0.0
	for _, v := range a.Data {
		sum += v
	}
	return Scalar(sum)
}

// Exp applies e^x elementwise.
func Exp(a *Tensor) *Tensor { return Apply(a, math.Exp) }
