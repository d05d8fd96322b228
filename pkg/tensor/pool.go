package tensor

import "sync"

// Allocator is the tensor_allocator capability from the autograd
// spec: a pool of recyclable float64 buffers keyed by element count,
// backed by a sync.Pool per size bucket (grounded on the teacher
// library's own TensorPool). It never splits nor fragments a slot: a
// Get either returns a recycled buffer resized to fit, or a fresh one.
//
// Allocator is not itself safe for concurrent forward/backward over
// one shared graph — see the concurrency model in SPEC_FULL.md §5.
type Allocator struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

// NewAllocator returns an empty allocator; size buckets are created
// lazily on first use.
func NewAllocator() *Allocator {
	return &Allocator{pools: make(map[int]*sync.Pool)}
}

func (a *Allocator) poolFor(size int) *sync.Pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[size]
	if !ok {
		p = &sync.Pool{New: func() any {
			return make([]float64, size)
		}}
		a.pools[size] = p
	}
	return p
}

func (a *Allocator) getBuffer(size int) []float64 {
	buf := a.poolFor(size).Get().([]float64)
	if len(buf) != size {
		// Cached slot predates a shape that needed more capacity than
		// it was created with; grow by reallocating rather than
		// attempting to resize in place.
		buf = make([]float64, size)
	}
	return buf
}

// Alloc returns an untracked tensor of shape with a freshly zeroed
// buffer. Node attachment (making the result tracked) happens one
// layer up in graph.Allocators.Alloc, since the Node type lives in
// package graph and tensor must not import it.
func (a *Allocator) Alloc(shape []int) *Tensor {
	buf := a.getBuffer(ElemCount(shape))
	for i := range buf {
		buf[i] = 0
	}
	return &Tensor{Data: buf, Shape: append([]int{}, shape...), Strides: Strides(shape)}
}

// AllocNoGrad returns an untracked scratch tensor. Its buffer may
// contain stale data from a prior user of the pool slot; callers must
// fully overwrite it (every kernel in this library does).
func (a *Allocator) AllocNoGrad(shape []int) *Tensor {
	buf := a.getBuffer(ElemCount(shape))
	return &Tensor{Data: buf, Shape: append([]int{}, shape...), Strides: Strides(shape)}
}

// AllocNoGradZero is AllocNoGrad plus a zeroing pass, for gradient
// accumulators that are built up with +=.
func (a *Allocator) AllocNoGradZero(shape []int) *Tensor {
	t := a.AllocNoGrad(shape)
	for i := range t.Data {
		t.Data[i] = 0
	}
	return t
}

// Free returns a tracked tensor's buffer to the pool. The tensor's
// node, if any, is not released here — the graph owns that lifetime.
func (a *Allocator) Free(t *Tensor) {
	a.release(t)
}

// FreeNoGrad returns an untracked scratch tensor's buffer to the pool.
func (a *Allocator) FreeNoGrad(t *Tensor) {
	a.release(t)
}

func (a *Allocator) release(t *Tensor) {
	if t == nil || t.Data == nil {
		return
	}
	a.poolFor(len(t.Data)).Put(t.Data)
}
