package optimizers

import (
	"math"

	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Adam is Adaptive Moment Estimation: it tracks per-parameter running
// averages of the gradient (m) and its square (v), bias-corrects them,
// and scales the step by 1/sqrt(v_hat).
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	m map[*tensor.Tensor][]float64
	v map[*tensor.Tensor][]float64
	t int
}

// NewAdam returns an Adam optimizer with the given hyperparameters.
func NewAdam(lr, beta1, beta2, eps float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        beta1,
		Beta2:        beta2,
		Epsilon:      eps,
		m:            make(map[*tensor.Tensor][]float64),
		v:            make(map[*tensor.Tensor][]float64),
	}
}

func (a *Adam) SetLearningRate(lr float64) { a.LearningRate = lr }

func (a *Adam) ZeroGrad(params []*tensor.Tensor) { zeroGrad(params) }

func (a *Adam) Step(params []*tensor.Tensor) {
	a.t++
	beta1Corr := 1 - math.Pow(a.Beta1, float64(a.t))
	beta2Corr := 1 - math.Pow(a.Beta2, float64(a.t))

	for _, p := range params {
		if p.Grad == nil {
			continue
		}

		mVec, ok := a.m[p]
		if !ok {
			mVec = make([]float64, len(p.Data))
			a.m[p] = mVec
		}
		vVec, ok := a.v[p]
		if !ok {
			vVec = make([]float64, len(p.Data))
			a.v[p] = vVec
		}

		for i := range p.Data {
			g := p.Grad.Data[i]
			mVec[i] = a.Beta1*mVec[i] + (1-a.Beta1)*g
			vVec[i] = a.Beta2*vVec[i] + (1-a.Beta2)*g*g

			mHat := mVec[i] / beta1Corr
			vHat := vVec[i] / beta2Corr

			p.Data[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
}
