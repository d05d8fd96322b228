// Package graph maintains the computational DAG that the autograd
// engine traverses. A Node is attached to each gradient-tracked
// tensor; its outgoing Links record the operations that consumed it.
package graph

import "github.com/solstice-ml/tensorgrad/pkg/tensor"

// MaxOperands bounds the width of an operand snapshot. 4 covers every
// operator in scope, including the richest one (Linear: input,
// weights, bias, plus one spare slot).
const MaxOperands = 4

// BackwardFunc computes the partial derivative of a consumer tensor
// with respect to one specific operand, given the upstream gradient.
// It writes its result into gradIn, which is already zeroed and shaped
// like the operand.
type BackwardFunc func(ctx *Context, gradOut, gradIn *tensor.Tensor)

// Context is what a BackwardFunc sees as its execution context: the
// full operand snapshot of the consumer it is differentiating, and an
// allocator for any scratch tensors it needs.
type Context struct {
	Operands  *OperandSnapshot
	Allocator *tensor.Allocator
}

// OperandSnapshot is the fixed-size, ordered tuple of operand tensors
// associated with one consumer, indexed by operand slot. Every link
// for a given consumer shares the same snapshot instance.
type OperandSnapshot struct {
	Operands [MaxOperands]*tensor.Tensor
}

// Link is an edge from an operand node to a consumer tensor.
type Link struct {
	Consumer     *tensor.Tensor
	OperandIndex int
	Backward     BackwardFunc
	Snapshot     *OperandSnapshot
}

// Node is the per-tracked-tensor record: a back-reference to its
// tensor and the ordered list of links to tensors produced from it.
// Outgoing links are appended in add order; there is no internal
// sorting.
type Node struct {
	Tensor   *tensor.Tensor
	Outgoing []*Link

	// snapshots maps a consumer tensor to the single OperandSnapshot
	// shared by all links targeting it. It lives on the node because
	// a consumer's first incoming link may come from any operand.
	snapshots map[*tensor.Tensor]*OperandSnapshot
}

// Tracked reports whether n is a live node. A non-nil *Node is always
// tracked; the method exists so tensor.GraphNode is satisfied without
// tensor importing graph.
func (n *Node) Tracked() bool { return n != nil }

// NewNode allocates a fresh node bound to t and attaches it.
func NewNode(t *tensor.Tensor) *Node {
	n := &Node{Tensor: t, snapshots: make(map[*tensor.Tensor]*OperandSnapshot)}
	t.Node = n
	return n
}

// Track attaches a node to t if it does not already have one, and
// records it on allocs' tape. Nodes produced as the result of an
// AddLink call are tape-recorded automatically; a leaf tensor that is
// never anyone's consumer (model weights, biases) is not, so parameter
// initialization calls Track once up front. Without this, a leaf's
// outgoing links would never be visited during Backward — the tape
// walk only inspects Outgoing on nodes it holds, and nothing else ever
// adds the leaf to it.
func Track(t *tensor.Tensor, allocs *Allocators) (*Node, error) {
	if n, ok := t.Node.(*Node); ok && n != nil {
		return n, nil
	}
	n, err := allocs.Nodes.AllocNode(t)
	if err != nil {
		return nil, err
	}
	allocs.appendTape(n)
	return n, nil
}

// Retrack prepares a persistent leaf (a model parameter, still tracked
// from a previous training step) for a new forward pass after its
// owning Allocators called ResetTape: a fresh tape no longer holds the
// parameter's node, and its Outgoing slice still carries the prior
// step's links, which Free never clears because a parameter is never
// itself passed to Free. Retrack clears that stale Outgoing/snapshot
// state and re-appends the node to the current tape. Safe to call on a
// tensor that isn't tracked yet — it then behaves exactly like Track.
func Retrack(t *tensor.Tensor, allocs *Allocators) (*Node, error) {
	n, ok := t.Node.(*Node)
	if !ok || n == nil {
		return Track(t, allocs)
	}
	n.Outgoing = n.Outgoing[:0]
	if n.snapshots == nil {
		n.snapshots = make(map[*tensor.Tensor]*OperandSnapshot)
	} else {
		clear(n.snapshots)
	}
	allocs.appendTape(n)
	return n, nil
}

// AddLink implements the graph node & link store contract: it wires
// operand (the upstream tensor) to consumer (the downstream tensor)
// for the given operand slot, sharing one OperandSnapshot across every
// link that targets the same consumer.
//
// operand must already be tracked (MissingNode otherwise); consumer
// becomes tracked on first link if it wasn't already. Overwriting an
// existing snapshot slot is permitted and idempotent — callers are
// expected to supply a consistent operand pointer for a given slot.
func AddLink(operand, consumer *tensor.Tensor, operandIndex int, backward BackwardFunc, allocs *Allocators) error {
	if operand == nil {
		return Errorf(TensorNull, "AddLink: nil operand")
	}
	opNode, ok := operand.Node.(*Node)
	if !ok || opNode == nil {
		return Errorf(MissingNode, "AddLink: operand has no graph node")
	}
	if operandIndex < 0 || operandIndex >= MaxOperands {
		return Errorf(TensorIndexOutOfBounds, "AddLink: operand index %d out of range", operandIndex)
	}

	consNode, ok := consumer.Node.(*Node)
	if !ok || consNode == nil {
		node, err := allocs.Nodes.AllocNode(consumer)
		if err != nil {
			return err
		}
		consNode = node
		// consumer was created by this call, in this forward step, so it
		// belongs after every one of its operands in creation order.
		allocs.appendTape(consNode)
	}

	snap, ok := consNode.snapshots[consumer]
	if !ok {
		s, err := allocs.Nodes.AllocSnapshot()
		if err != nil {
			return err
		}
		snap = s
		consNode.snapshots[consumer] = snap
	}
	snap.Operands[operandIndex] = operand

	link, err := allocs.Nodes.AllocLink()
	if err != nil {
		return err
	}
	link.Consumer = consumer
	link.OperandIndex = operandIndex
	link.Backward = backward
	link.Snapshot = snap

	opNode.Outgoing = append(opNode.Outgoing, link)
	return nil
}
