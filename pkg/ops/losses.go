package ops

import (
	"math"

	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Operand slots for MSE and SoftmaxCrossEntropy. Both losses reduce to
// a scalar, so their "gradOut" during backward is always a one-element
// tensor seeded upstream (directly by Backward, for a loss used as
// root).
const (
	MSEPred   = 0
	MSETarget = 1

	SoftmaxCrossEntropyLogits = 0
	SoftmaxCrossEntropyTarget = 1
)

// MSE computes 0.5*mean((pred-target)^2) over every element, returning
// a scalar tensor.
func MSE(pred, target *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	if !tensor.ShapesEqual(pred.Shape, target.Shape) {
		panic("ops: MSE requires pred and target to share a shape")
	}
	n := float64(len(pred.Data))
	sumSquares := 0.0
	for i := range pred.Data {
		d := pred.Data[i] - target.Data[i]
		sumSquares += d * d
	}

	out := allocs.Tensors.Alloc([]int{1})
	out.Data[0] = 0.5 * sumSquares / n

	if _, err := graph.Track(out, allocs); err != nil {
		return nil, err
	}
	if pred.Tracked() {
		if err := graph.AddLink(pred, out, MSEPred, mseBackwardPred, allocs); err != nil {
			return nil, err
		}
	}
	if target.Tracked() {
		if err := graph.AddLink(target, out, MSETarget, mseBackwardTarget, allocs); err != nil {
			return nil, err
		}
	}
	// Both backward rules read pred and target from the shared snapshot;
	// an untracked operand gets no link of its own, so fill in its slot.
	for _, op := range []*tensor.Tensor{pred, target} {
		if n, ok := op.Node.(*graph.Node); ok && n != nil {
			snap := n.Outgoing[len(n.Outgoing)-1].Snapshot
			snap.Operands[MSEPred] = pred
			snap.Operands[MSETarget] = target
			break
		}
	}
	return out, nil
}

func mseBackwardPred(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	pred := ctx.Operands.Operands[MSEPred]
	target := ctx.Operands.Operands[MSETarget]
	n := float64(len(pred.Data))
	scale := gradOut.Data[0] / n
	for i := range gradIn.Data {
		gradIn.Data[i] = scale * (pred.Data[i] - target.Data[i])
	}
}

func mseBackwardTarget(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
	pred := ctx.Operands.Operands[MSEPred]
	target := ctx.Operands.Operands[MSETarget]
	n := float64(len(pred.Data))
	scale := gradOut.Data[0] / n
	for i := range gradIn.Data {
		gradIn.Data[i] = -scale * (pred.Data[i] - target.Data[i])
	}
}

// SoftmaxCrossEntropy computes softmax(logits) then cross-entropy
// against one-hot target, in one numerically stable pass (the
// log-sum-exp trick), averaged over the batch. logits and target must
// be 2D: [batch, numClasses].
func SoftmaxCrossEntropy(logits, target *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	if len(logits.Shape) != 2 || len(target.Shape) != 2 {
		panic("ops: SoftmaxCrossEntropy requires 2D logits and target")
	}
	if !tensor.ShapesEqual(logits.Shape, target.Shape) {
		panic("ops: SoftmaxCrossEntropy requires logits and target to share a shape")
	}

	batch, classes := logits.Shape[0], logits.Shape[1]
	softmax := allocs.Tensors.AllocNoGrad([]int{batch, classes})

	const epsilon = 1e-15
	totalLoss := 0.0
	for i := 0; i < batch; i++ {
		rowMax := logits.Data[i*logits.Strides[0]]
		for j := 1; j < classes; j++ {
			v := logits.Data[i*logits.Strides[0]+j*logits.Strides[1]]
			if v > rowMax {
				rowMax = v
			}
		}
		sumExp := 0.0
		for j := 0; j < classes; j++ {
			idx := i*logits.Strides[0] + j*logits.Strides[1]
			e := math.Exp(logits.Data[idx] - rowMax)
			softmax.Data[i*softmax.Strides[0]+j*softmax.Strides[1]] = e
			sumExp += e
		}
		for j := 0; j < classes; j++ {
			sIdx := i*softmax.Strides[0] + j*softmax.Strides[1]
			softmax.Data[sIdx] /= sumExp

			tIdx := i*target.Strides[0] + j*target.Strides[1]
			if target.Data[tIdx] > 0 {
				prob := math.Max(softmax.Data[sIdx], epsilon)
				totalLoss -= target.Data[tIdx] * math.Log(prob)
			}
		}
	}

	out := allocs.Tensors.Alloc([]int{1})
	out.Data[0] = totalLoss / float64(batch)

	if !logits.Tracked() {
		// No backward pass will ever read softmax: release it to the
		// pool immediately instead of waiting on the GC.
		allocs.Tensors.FreeNoGrad(softmax)
		return out, nil
	}

	if _, err := graph.Track(out, allocs); err != nil {
		return nil, err
	}
	// softmax is captured by this closure rather than threaded through
	// the operand snapshot: it is a derived quantity, not one of the
	// operator's operands, and recomputing it in the backward pass
	// would repeat the log-sum-exp pass for no reason. It is stashed on
	// out.Aux so Allocators.Free releases it back to the pool alongside
	// out instead of leaking it to the GC.
	backward := func(ctx *graph.Context, gradOut, gradIn *tensor.Tensor) {
		tgt := target
		scale := gradOut.Data[0] / float64(batch)
		for i := 0; i < batch; i++ {
			for j := 0; j < classes; j++ {
				sIdx := i*softmax.Strides[0] + j*softmax.Strides[1]
				gIdx := i*gradIn.Strides[0] + j*gradIn.Strides[1]
				tIdx := i*tgt.Strides[0] + j*tgt.Strides[1]
				gradIn.Data[gIdx] = (softmax.Data[sIdx] - tgt.Data[tIdx]) * scale
			}
		}
	}
	if err := graph.AddLink(logits, out, SoftmaxCrossEntropyLogits, backward, allocs); err != nil {
		return nil, err
	}
	out.Aux = softmax
	return out, nil
}
