// Package autograd implements the reverse-mode backpropagation engine:
// given a scalar tracked root tensor, it walks the DAG recorded by
// package graph and accumulates gradient contributions into every
// operand tensor that participated in producing it.
package autograd

import (
	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// incomingEdge is one contribution into a consumer tensor's gradient:
// the operand whose outgoing link targets the consumer, plus the
// backward rule and shared snapshot that produced the edge.
type incomingEdge struct {
	operand  *tensor.Tensor
	backward graph.BackwardFunc
	snapshot *graph.OperandSnapshot
}

// Backward performs the reverse traversal described in spec.md §4.3:
// it seeds root's gradient with all-ones and accumulates every
// reachable operand's contribution in reverse creation order.
//
// Links are recorded only on the operand side (operand -> consumer),
// so there is no outgoing edge to follow backward from root itself.
// Instead Backward relies on allocs' creation-order tape: the DAG
// invariant that a tensor can never appear as an operand before it is
// produced means creation order is already a valid topological order,
// so walking the tape in reverse visits every consumer before the
// operands that fed it, with no separate reachability pass required.
//
// Allocation failure during backward aborts with OutOfMemory and
// leaves partially-accumulated gradients in place; callers must
// re-zero before relying on them again. A nil or untracked root
// returns InvalidRoot.
func Backward(root *tensor.Tensor, allocs *graph.Allocators) error {
	if root == nil || !root.Tracked() {
		return graph.Errorf(graph.InvalidRoot, "Backward: root is nil or untracked")
	}

	tape := allocs.Tape()
	incoming := buildIncoming(tape)

	root.Grad = tensor.Ones(root.Shape...)

	for i := len(tape) - 1; i >= 0; i-- {
		n := tape[i]
		consumer := n.Tensor
		if consumer.Grad == nil {
			// Never reached by any contribution from root: outside the
			// subgraph backward needs to visit.
			continue
		}
		for _, e := range incoming[consumer] {
			if err := accumulate(consumer, e, allocs); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildIncoming inverts every node's outgoing links into a per-consumer
// edge list in a single linear pass over the tape.
func buildIncoming(tape []*graph.Node) map[*tensor.Tensor][]incomingEdge {
	incoming := make(map[*tensor.Tensor][]incomingEdge)
	for _, n := range tape {
		for _, link := range n.Outgoing {
			incoming[link.Consumer] = append(incoming[link.Consumer], incomingEdge{
				operand:  n.Tensor,
				backward: link.Backward,
				snapshot: link.Snapshot,
			})
		}
	}
	return incoming
}

// accumulate evaluates one edge's backward rule and sums the result
// into e.operand's gradient, releasing the scratch tensor on every
// exit path.
func accumulate(consumer *tensor.Tensor, e incomingEdge, allocs *graph.Allocators) error {
	gradIn := allocs.Tensors.AllocNoGradZero(e.operand.Shape)
	defer allocs.Tensors.FreeNoGrad(gradIn)

	ctx := &graph.Context{Operands: e.snapshot, Allocator: allocs.Tensors}
	e.backward(ctx, consumer.Grad, gradIn)

	if e.operand.Grad == nil {
		e.operand.Grad = allocs.Tensors.AllocNoGradZero(e.operand.Shape)
	}
	return tensor.AddInPlace(e.operand.Grad, gradIn)
}

// ZeroGrad resets the gradient buffer of every tensor in params to
// zero, allocating one if absent.
func ZeroGrad(params []*tensor.Tensor) {
	for _, p := range params {
		if p.Grad == nil {
			p.Grad = tensor.Zeros(p.Shape...)
			continue
		}
		for i := range p.Grad.Data {
			p.Grad.Data[i] = 0
		}
	}
}
