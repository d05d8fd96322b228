package optimizers

import "github.com/solstice-ml/tensorgrad/pkg/tensor"

// SGD is stochastic gradient descent with optional momentum:
//
//	v_t = mu*v_{t-1} + lr*grad
//	param -= v_t
//
// With Momentum at its zero value, v_t collapses to lr*grad and this
// degenerates to plain SGD.
type SGD struct {
	LearningRate float64
	Momentum     float64

	velocity map[*tensor.Tensor][]float64
}

// NewSGD returns an SGD optimizer with the given learning rate and
// momentum coefficient (0 disables momentum).
func NewSGD(lr, momentum float64) *SGD {
	return &SGD{
		LearningRate: lr,
		Momentum:     momentum,
		velocity:     make(map[*tensor.Tensor][]float64),
	}
}

func (s *SGD) SetLearningRate(lr float64) { s.LearningRate = lr }

func (s *SGD) ZeroGrad(params []*tensor.Tensor) { zeroGrad(params) }

func (s *SGD) Step(params []*tensor.Tensor) {
	for _, p := range params {
		if p.Grad == nil {
			continue
		}

		if s.Momentum == 0 {
			for i := range p.Data {
				p.Data[i] -= s.LearningRate * p.Grad.Data[i]
			}
			continue
		}

		v, ok := s.velocity[p]
		if !ok {
			v = make([]float64, len(p.Data))
			s.velocity[p] = v
		}
		for i := range p.Data {
			v[i] = s.Momentum*v[i] + s.LearningRate*p.Grad.Data[i]
			p.Data[i] -= v[i]
		}
	}
}
