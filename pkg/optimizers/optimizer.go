// Package optimizers implements parameter-update rules driven by the
// gradients the autograd engine accumulates into each tensor's Grad
// field.
package optimizers

import (
	"github.com/solstice-ml/tensorgrad/pkg/autograd"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Optimizer mutates a model's parameter tensors in place from their
// accumulated gradients.
type Optimizer interface {
	// Step applies one parameter update using each tensor's current
	// Grad. Parameters with a nil Grad are left untouched.
	Step(params []*tensor.Tensor)

	// ZeroGrad clears every parameter's gradient accumulator, ready
	// for the next forward/backward pass.
	ZeroGrad(params []*tensor.Tensor)

	// SetLearningRate overrides the optimizer's step size, used by an
	// external learning-rate schedule between epochs.
	SetLearningRate(lr float64)
}

// zeroGrad is shared by every Optimizer implementation in this
// package: gradient zeroing has nothing to do with a particular update
// rule, so it delegates to the one place that owns a tensor's Grad
// buffer.
func zeroGrad(params []*tensor.Tensor) { autograd.ZeroGrad(params) }
