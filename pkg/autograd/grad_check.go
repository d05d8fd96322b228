package autograd

import (
	"math"

	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// BuildFunc constructs a computation graph given tracked leaf tensors
// that mirror the shapes of the values passed to CheckGradient, and
// returns the (possibly non-scalar) output to check. CheckGradient
// sums a non-scalar output's elements before differentiating, so
// BuildFunc is free to return any shape a kernel under test happens to
// produce.
type BuildFunc func(allocs *graph.Allocators, inputs []*tensor.Tensor) (*tensor.Tensor, error)

// CheckGradient numerically verifies the analytic gradient BuildFunc's
// graph produces, using central differences with step eps, accepting
// relative error up to tol. It builds the graph once to collect the
// analytic gradient via Backward, and twice per input coordinate (at
// +eps and -eps) to estimate the numeric one.
func CheckGradient(build BuildFunc, values []*tensor.Tensor, eps, tol float64) (bool, error) {
	sizes := make([]int, len(values))
	total := 0
	for i, v := range values {
		sizes[i] = len(v.Data)
		total += sizes[i]
	}

	pack := func(vs []*tensor.Tensor) []float64 {
		x := make([]float64, 0, total)
		for _, v := range vs {
			x = append(x, v.Data...)
		}
		return x
	}

	leavesFrom := func(x []float64) []*tensor.Tensor {
		leaves := make([]*tensor.Tensor, len(values))
		pos := 0
		for i, orig := range values {
			data := make([]float64, sizes[i])
			copy(data, x[pos:pos+sizes[i]])
			pos += sizes[i]
			leaves[i] = tensor.New(data, orig.Shape)
		}
		return leaves
	}

	evalScalar := func(out *tensor.Tensor) float64 {
		if len(out.Data) == 1 {
			return out.Data[0]
		}
		s := 0.0
		for _, v := range out.Data {
			s += v
		}
		return s
	}

	eval := func(x []float64) (float64, error) {
		allocs := graph.NewAllocators()
		leaves := leavesFrom(x)
		for _, l := range leaves {
			if _, err := graph.Track(l, allocs); err != nil {
				return 0, err
			}
		}
		out, err := build(allocs, leaves)
		if err != nil {
			return 0, err
		}
		return evalScalar(out), nil
	}

	x0 := pack(values)

	allocs := graph.NewAllocators()
	analyticLeaves := leavesFrom(x0)
	for _, l := range analyticLeaves {
		if _, err := graph.Track(l, allocs); err != nil {
			return false, err
		}
	}
	out, err := build(allocs, analyticLeaves)
	if err != nil {
		return false, err
	}

	// A non-scalar output is reduced through an explicit sum op, so the
	// root is a scalar whose value matches evalScalar (the same gradient
	// as seeding the output itself with all ones).
	root := out
	if len(out.Data) != 1 {
		root, err = sumToScalar(out, allocs)
		if err != nil {
			return false, err
		}
	}
	if err := Backward(root, allocs); err != nil {
		return false, err
	}

	analytic := make([]float64, 0, total)
	for _, l := range analyticLeaves {
		if l.Grad == nil {
			analytic = append(analytic, make([]float64, len(l.Data))...)
			continue
		}
		analytic = append(analytic, l.Grad.Data...)
	}

	numeric := make([]float64, total)
	for i := 0; i < total; i++ {
		xInc := append([]float64{}, x0...)
		xDec := append([]float64{}, x0...)
		xInc[i] += eps
		xDec[i] -= eps

		fInc, err := eval(xInc)
		if err != nil {
			return false, err
		}
		fDec, err := eval(xDec)
		if err != nil {
			return false, err
		}
		numeric[i] = (fInc - fDec) / (2 * eps)
	}

	for i := 0; i < total; i++ {
		absErr := math.Abs(analytic[i] - numeric[i])
		scale := math.Max(1.0, math.Max(math.Abs(analytic[i]), math.Abs(numeric[i])))
		if absErr/scale > tol {
			return false, nil
		}
	}
	return true, nil
}

// sumToScalar wires a tiny reduction op so CheckGradient can
// differentiate through a non-scalar BuildFunc output without every
// caller having to build one themselves.
func sumToScalar(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	sum := 0.0
	for _, v := range x.Data {
		sum += v
	}
	out := allocs.Tensors.Alloc([]int{1})
	out.Data[0] = sum

	if _, err := graph.Track(out, allocs); err != nil {
		return nil, err
	}
	if x.Tracked() {
		backward := func(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
			for i := range gradIn.Data {
				gradIn.Data[i] = gradOut.Data[0]
			}
		}
		if err := graph.AddLink(x, out, 0, backward, allocs); err != nil {
			return nil, err
		}
	}
	return out, nil
}
