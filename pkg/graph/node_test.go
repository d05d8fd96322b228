package graph

import (
	"testing"

	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

func noopBackward(ctx *Context, gradOut, gradIn *tensor.Tensor) {}

func TestAddLinkMissingOperandNode(t *testing.T) {
	allocs := NewAllocators()
	operand := tensor.Zeros(2)
	consumer := tensor.Zeros(2)

	err := AddLink(operand, consumer, 0, noopBackward, allocs)
	if CodeOf(err) != MissingNode {
		t.Fatalf("AddLink: got %v, want MissingNode", err)
	}
}

func TestAddLinkInvalidIndex(t *testing.T) {
	allocs := NewAllocators()
	operand := tensor.Zeros(2)
	if _, err := Track(operand, allocs); err != nil {
		t.Fatalf("Track: %v", err)
	}
	consumer := tensor.Zeros(2)

	err := AddLink(operand, consumer, MaxOperands, noopBackward, allocs)
	if CodeOf(err) != TensorIndexOutOfBounds {
		t.Fatalf("AddLink: got %v, want TensorIndexOutOfBounds", err)
	}
}

func TestAddLinkSharesSnapshotPerConsumer(t *testing.T) {
	allocs := NewAllocators()
	lhs := tensor.Zeros(2)
	rhs := tensor.Zeros(2)
	if _, err := Track(lhs, allocs); err != nil {
		t.Fatalf("Track lhs: %v", err)
	}
	if _, err := Track(rhs, allocs); err != nil {
		t.Fatalf("Track rhs: %v", err)
	}
	consumer := tensor.Zeros(2)

	if err := AddLink(lhs, consumer, 0, noopBackward, allocs); err != nil {
		t.Fatalf("AddLink lhs: %v", err)
	}
	if err := AddLink(rhs, consumer, 1, noopBackward, allocs); err != nil {
		t.Fatalf("AddLink rhs: %v", err)
	}

	lhsNode := lhs.Node.(*Node)
	rhsNode := rhs.Node.(*Node)
	if lhsNode.Outgoing[0].Snapshot != rhsNode.Outgoing[0].Snapshot {
		t.Fatal("AddLink: expected lhs and rhs links to share one snapshot for the same consumer")
	}
	snap := lhsNode.Outgoing[0].Snapshot
	if snap.Operands[0] != lhs || snap.Operands[1] != rhs {
		t.Fatalf("AddLink: snapshot operands not populated correctly: %+v", snap.Operands)
	}
}

func TestTrackIsIdempotent(t *testing.T) {
	allocs := NewAllocators()
	x := tensor.Zeros(2)

	n1, err := Track(x, allocs)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	n2, err := Track(x, allocs)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if n1 != n2 {
		t.Fatal("Track: expected second call to return the existing node")
	}
	if len(allocs.Tape()) != 1 {
		t.Fatalf("Track: tape has %d entries, want 1", len(allocs.Tape()))
	}
}

func TestAddLinkAppendsNewConsumerToTape(t *testing.T) {
	allocs := NewAllocators()
	operand := tensor.Zeros(2)
	if _, err := Track(operand, allocs); err != nil {
		t.Fatalf("Track: %v", err)
	}
	consumer := tensor.Zeros(2)

	if err := AddLink(operand, consumer, 0, noopBackward, allocs); err != nil {
		t.Fatalf("AddLink: %v", err)
	}

	tape := allocs.Tape()
	if len(tape) != 2 {
		t.Fatalf("Tape: got %d entries, want 2", len(tape))
	}
	if tape[0].Tensor != operand || tape[1].Tensor != consumer {
		t.Fatal("Tape: expected operand before consumer in creation order")
	}
}

func TestRetrackClearsStaleOutgoingAfterTapeReset(t *testing.T) {
	allocs := NewAllocators()
	param := tensor.Zeros(2)
	if _, err := Track(param, allocs); err != nil {
		t.Fatalf("Track: %v", err)
	}

	consumer1 := tensor.Zeros(2)
	if err := AddLink(param, consumer1, 0, noopBackward, allocs); err != nil {
		t.Fatalf("AddLink: %v", err)
	}
	if got := len(param.Node.(*Node).Outgoing); got != 1 {
		t.Fatalf("Outgoing before reset: got %d, want 1", got)
	}

	allocs.ResetTape()
	if _, err := Retrack(param, allocs); err != nil {
		t.Fatalf("Retrack: %v", err)
	}
	if got := len(param.Node.(*Node).Outgoing); got != 0 {
		t.Fatalf("Outgoing after Retrack: got %d, want 0", got)
	}
	if len(allocs.Tape()) != 1 || allocs.Tape()[0].Tensor != param {
		t.Fatal("Retrack: expected param to be the sole, fresh tape entry")
	}

	consumer2 := tensor.Zeros(2)
	if err := AddLink(param, consumer2, 0, noopBackward, allocs); err != nil {
		t.Fatalf("AddLink after retrack: %v", err)
	}
	if got := len(param.Node.(*Node).Outgoing); got != 1 {
		t.Fatalf("Outgoing after fresh AddLink: got %d, want 1", got)
	}
}

func TestRetrackOnUntrackedTensorBehavesLikeTrack(t *testing.T) {
	allocs := NewAllocators()
	x := tensor.Zeros(2)

	n, err := Retrack(x, allocs)
	if err != nil {
		t.Fatalf("Retrack: %v", err)
	}
	if n == nil || !n.Tracked() {
		t.Fatal("Retrack: expected tensor to become tracked")
	}
	if len(allocs.Tape()) != 1 {
		t.Fatalf("Retrack: tape has %d entries, want 1", len(allocs.Tape()))
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(TensorShapeMismatch, "shapes %v and %v differ", []int{2}, []int{3})
	if CodeOf(err) != TensorShapeMismatch {
		t.Fatalf("CodeOf: got %v, want TensorShapeMismatch", CodeOf(err))
	}
	if CodeOf(nil) != 0 {
		t.Fatal("CodeOf(nil): expected zero value")
	}
}
