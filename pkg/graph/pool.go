package graph

import (
	"sync"

	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// NodeAllocator is the graph_node_allocator capability: a pool of
// recyclable *Node, *Link, and *OperandSnapshot values, mirroring the
// same sync.Pool-per-bucket discipline as tensor.Allocator.
type NodeAllocator struct {
	nodes     sync.Pool
	links     sync.Pool
	snapshots sync.Pool
}

// NewNodeAllocator returns a ready-to-use node/link allocator.
func NewNodeAllocator() *NodeAllocator {
	na := &NodeAllocator{}
	na.nodes.New = func() any { return &Node{} }
	na.links.New = func() any { return &Link{} }
	na.snapshots.New = func() any { return &OperandSnapshot{} }
	return na
}

// AllocNode returns a node bound to t and attaches it to t.Node.
func (na *NodeAllocator) AllocNode(t *tensor.Tensor) (*Node, error) {
	if t == nil {
		return nil, Errorf(TensorNull, "AllocNode: nil tensor")
	}
	n := na.nodes.Get().(*Node)
	n.Tensor = t
	n.Outgoing = n.Outgoing[:0]
	if n.snapshots == nil {
		n.snapshots = make(map[*tensor.Tensor]*OperandSnapshot)
	} else {
		clear(n.snapshots)
	}
	t.Node = n
	return n, nil
}

// AllocLink returns a zeroed link record.
func (na *NodeAllocator) AllocLink() (*Link, error) {
	l := na.links.Get().(*Link)
	*l = Link{}
	return l, nil
}

// AllocSnapshot returns a fresh, all-nil operand snapshot.
func (na *NodeAllocator) AllocSnapshot() (*OperandSnapshot, error) {
	s := na.snapshots.Get().(*OperandSnapshot)
	*s = OperandSnapshot{}
	return s, nil
}

// FreeNode releases n back to the pool. Its tensor's Node reference is
// cleared so the tensor reads as untracked afterward.
func (na *NodeAllocator) FreeNode(n *Node) {
	if n == nil {
		return
	}
	if n.Tensor != nil {
		n.Tensor.Node = nil
	}
	n.Tensor = nil
	na.nodes.Put(n)
}

// FreeLink releases l back to the pool.
func (na *NodeAllocator) FreeLink(l *Link) {
	if l == nil {
		return
	}
	na.links.Put(l)
}

// Allocators bundles the tensor allocator and the graph node allocator
// into the single capability object every autograd entry point takes,
// per spec.md §6.
type Allocators struct {
	Tensors *tensor.Allocator
	Nodes   *NodeAllocator

	// tape records every tracked node in creation order. Because the
	// DAG invariant forbids a tensor from appearing as an operand
	// before it is produced, creation order is already a valid
	// topological order — the backward engine walks it in reverse
	// instead of rediscovering order via a DFS over (unavailable)
	// reverse edges.
	tape []*Node
}

// NewAllocators builds a fresh allocator pair.
func NewAllocators() *Allocators {
	return &Allocators{Tensors: tensor.NewAllocator(), Nodes: NewNodeAllocator()}
}

// Alloc returns a tracked tensor of shape: a pooled buffer with a
// freshly attached node. Gradients are allocated lazily on first
// write, so the result's Grad starts nil.
func (a *Allocators) Alloc(shape []int) (*tensor.Tensor, error) {
	t := a.Tensors.Alloc(shape)
	n, err := a.Nodes.AllocNode(t)
	if err != nil {
		a.Tensors.Free(t)
		return nil, err
	}
	a.tape = append(a.tape, n)
	return t, nil
}

// Tape returns every tracked node created through this allocator pair,
// in creation order.
func (a *Allocators) Tape() []*Node { return a.tape }

// appendTape records n as the next entry in creation order.
func (a *Allocators) appendTape(n *Node) { a.tape = append(a.tape, n) }

// ResetTape drops the creation-order record without touching pooled
// tensors or nodes — callers free tensors explicitly (typically at the
// end of a training step) and then call ResetTape to start the next
// step's bookkeeping clean.
func (a *Allocators) ResetTape() { a.tape = a.tape[:0] }

// Free returns a tracked tensor — and its node, and its grad buffer if
// any — to their respective pools.
func (a *Allocators) Free(t *tensor.Tensor) {
	if t == nil {
		return
	}
	if n, ok := t.Node.(*Node); ok && n != nil {
		for _, l := range n.Outgoing {
			a.Nodes.FreeLink(l)
		}
		a.Nodes.FreeNode(n)
	}
	if t.Grad != nil {
		a.Tensors.FreeNoGrad(t.Grad)
		t.Grad = nil
	}
	if t.Aux != nil {
		a.Tensors.FreeNoGrad(t.Aux)
		t.Aux = nil
	}
	a.Tensors.Free(t)
}
