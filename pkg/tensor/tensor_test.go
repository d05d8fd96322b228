package tensor

import "testing"

func TestZerosOnesShape(t *testing.T) {
	z := Zeros(2, 3)
	if len(z.Data) != 6 {
		t.Fatalf("Zeros(2,3): got %d elements, want 6", len(z.Data))
	}
	for _, v := range z.Data {
		if v != 0 {
			t.Fatalf("Zeros: got non-zero element %v", v)
		}
	}

	o := Ones(3)
	for _, v := range o.Data {
		if v != 1 {
			t.Fatalf("Ones: got %v, want 1", v)
		}
	}
}

func TestStrides(t *testing.T) {
	s := Strides([]int{2, 3, 4})
	want := []int{12, 4, 1}
	for i := range want {
		if s[i] != want[i] {
			t.Fatalf("Strides: got %v, want %v", s, want)
		}
	}
}

func TestAddSubMul(t *testing.T) {
	a := New([]float64{1, 2, 3, 4}, []int{2, 2})
	b := New([]float64{5, 6, 7, 8}, []int{2, 2})

	sum, err := Add(a, b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	wantSum := []float64{6, 8, 10, 12}
	for i, v := range wantSum {
		if sum.Data[i] != v {
			t.Fatalf("Add: got %v, want %v", sum.Data, wantSum)
		}
	}

	diff, err := Sub(b, a)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	wantDiff := []float64{4, 4, 4, 4}
	for i, v := range wantDiff {
		if diff.Data[i] != v {
			t.Fatalf("Sub: got %v, want %v", diff.Data, wantDiff)
		}
	}

	prod, err := Mul(a, b)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	wantProd := []float64{5, 12, 21, 32}
	for i, v := range wantProd {
		if prod.Data[i] != v {
			t.Fatalf("Mul: got %v, want %v", prod.Data, wantProd)
		}
	}
}

func TestAddShapeMismatch(t *testing.T) {
	a := Zeros(2, 2)
	b := Zeros(3)
	if _, err := Add(a, b); err == nil {
		t.Fatal("Add: expected shape mismatch error, got nil")
	}
}

func TestAddInPlaceAccumulates(t *testing.T) {
	acc := Zeros(3)
	delta := New([]float64{1, 2, 3}, []int{3})

	if err := AddInPlace(acc, delta); err != nil {
		t.Fatalf("AddInPlace: %v", err)
	}
	if err := AddInPlace(acc, delta); err != nil {
		t.Fatalf("AddInPlace: %v", err)
	}

	want := []float64{2, 4, 6}
	for i, v := range want {
		if acc.Data[i] != v {
			t.Fatalf("AddInPlace: got %v, want %v", acc.Data, want)
		}
	}
}

func TestTranspose(t *testing.T) {
	a := New([]float64{1, 2, 3, 4, 5, 6}, []int{2, 3})
	at, err := Transpose(a)
	if err != nil {
		t.Fatalf("Transpose: %v", err)
	}
	if !ShapesEqual(at.Shape, []int{3, 2}) {
		t.Fatalf("Transpose: got shape %v, want [3 2]", at.Shape)
	}
	want := []float64{1, 4, 2, 5, 3, 6}
	for i, v := range want {
		if at.Data[i] != v {
			t.Fatalf("Transpose: got %v, want %v", at.Data, want)
		}
	}
}

func TestAllocatorReusesBuffer(t *testing.T) {
	a := NewAllocator()
	t1 := a.AllocNoGrad([]int{4})
	t1.Data[0] = 42
	a.FreeNoGrad(t1)

	t2 := a.AllocNoGradZero([]int{4})
	if t2.Data[0] != 0 {
		t.Fatalf("AllocNoGradZero: got dirty buffer %v, want zeroed", t2.Data)
	}
}
