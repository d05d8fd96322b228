// Package dataloader turns dense tensors (or CSV files) into shuffled,
// batched training examples for the optimization loop in pkg/train.
package dataloader

import "github.com/solstice-ml/tensorgrad/pkg/tensor"

// Dataset is an indexable collection of (features, target) examples.
type Dataset interface {
	// Get returns the feature tensor and target tensor for the example
	// at index, each with its leading sample dimension stripped.
	Get(index int) (features, target *tensor.Tensor)

	// Len returns the number of examples in the dataset.
	Len() int
}

// SimpleDataset is an in-memory Dataset backed by two tensors whose
// leading dimension is the sample count.
type SimpleDataset struct {
	features   *tensor.Tensor
	targets    *tensor.Tensor
	numSamples int
}

// NewSimpleDataset wraps features and targets as a Dataset. Both must
// share the same leading (sample-count) dimension.
func NewSimpleDataset(features, targets *tensor.Tensor) *SimpleDataset {
	if len(features.Shape) == 0 || len(targets.Shape) == 0 {
		panic("dataloader: features and targets must be at least 1D")
	}
	if features.Shape[0] != targets.Shape[0] {
		panic("dataloader: features and targets must have the same sample count")
	}
	return &SimpleDataset{
		features:   features,
		targets:    targets,
		numSamples: features.Shape[0],
	}
}

// Get returns a fresh, copied sample slice from the underlying tensors.
func (ds *SimpleDataset) Get(index int) (*tensor.Tensor, *tensor.Tensor) {
	if index < 0 || index >= ds.numSamples {
		panic("dataloader: index out of bounds")
	}
	return extractSample(ds.features, index), extractSample(ds.targets, index)
}

// Len returns the number of samples in the dataset.
func (ds *SimpleDataset) Len() int { return ds.numSamples }

// extractSample copies out the sub-tensor at t.Shape[0]'s index-th
// position, dropping that leading dimension. A 1-D t yields a
// one-element tensor of shape [1].
func extractSample(t *tensor.Tensor, index int) *tensor.Tensor {
	if len(t.Shape) == 1 {
		return tensor.New([]float64{t.Data[index]}, []int{1})
	}

	sampleShape := append([]int{}, t.Shape[1:]...)
	sampleSize := tensor.ElemCount(sampleShape)

	start := index * sampleSize
	data := make([]float64, sampleSize)
	copy(data, t.Data[start:start+sampleSize])

	return tensor.New(data, sampleShape)
}
