package dataloader

import (
	"math/rand"

	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// Batch is one mini-batch of training examples, its leading dimension
// the batch size.
type Batch struct {
	Features *tensor.Tensor
	Targets  *tensor.Tensor
}

// DataLoader iterates a Dataset in shuffled, batched order.
type DataLoader struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	dropLast  bool
	rng       *rand.Rand

	indices    []int
	currentIdx int
}

// DataLoaderConfig configures a DataLoader.
type DataLoaderConfig struct {
	BatchSize int
	Shuffle   bool
	DropLast  bool
	Seed      int64
}

// NewDataLoader builds a DataLoader over dataset with the given config.
func NewDataLoader(dataset Dataset, config DataLoaderConfig) *DataLoader {
	if config.BatchSize <= 0 {
		panic("dataloader: batch size must be positive")
	}
	if config.BatchSize > dataset.Len() {
		panic("dataloader: batch size cannot exceed dataset size")
	}

	indices := make([]int, dataset.Len())
	for i := range indices {
		indices[i] = i
	}

	dl := &DataLoader{
		dataset:   dataset,
		batchSize: config.BatchSize,
		shuffle:   config.Shuffle,
		dropLast:  config.DropLast,
		rng:       rand.New(rand.NewSource(config.Seed)),
		indices:   indices,
	}
	if dl.shuffle {
		dl.shuffleIndices()
	}
	return dl
}

func (dl *DataLoader) shuffleIndices() {
	for i := len(dl.indices) - 1; i > 0; i-- {
		j := dl.rng.Intn(i + 1)
		dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
	}
}

// Reset rewinds the iterator to the start of a new epoch, reshuffling
// if configured to.
func (dl *DataLoader) Reset() {
	dl.currentIdx = 0
	if dl.shuffle {
		dl.shuffleIndices()
	}
}

// HasNext reports whether another batch is available this epoch.
func (dl *DataLoader) HasNext() bool {
	remaining := len(dl.indices) - dl.currentIdx
	if dl.dropLast {
		return remaining >= dl.batchSize
	}
	return remaining > 0
}

// Next returns the next batch. Panics if HasNext is false.
func (dl *DataLoader) Next() *Batch {
	if !dl.HasNext() {
		panic("dataloader: no more batches this epoch, call Reset")
	}

	remaining := len(dl.indices) - dl.currentIdx
	size := dl.batchSize
	if remaining < size {
		size = remaining
	}

	batchIndices := dl.indices[dl.currentIdx : dl.currentIdx+size]
	dl.currentIdx += size
	return dl.collectBatch(batchIndices)
}

func (dl *DataLoader) collectBatch(indices []int) *Batch {
	firstFeature, firstTarget := dl.dataset.Get(indices[0])

	featureShape := append([]int{len(indices)}, firstFeature.Shape...)
	targetShape := append([]int{len(indices)}, firstTarget.Shape...)

	featureData := make([]float64, tensor.ElemCount(featureShape))
	targetData := make([]float64, tensor.ElemCount(targetShape))

	sampleFeatureSize := tensor.ElemCount(firstFeature.Shape)
	sampleTargetSize := tensor.ElemCount(firstTarget.Shape)

	for i, idx := range indices {
		feature, target := dl.dataset.Get(idx)
		copy(featureData[i*sampleFeatureSize:(i+1)*sampleFeatureSize], feature.Data)
		copy(targetData[i*sampleTargetSize:(i+1)*sampleTargetSize], target.Data)
	}

	return &Batch{
		Features: tensor.New(featureData, featureShape),
		Targets:  tensor.New(targetData, targetShape),
	}
}

// Len returns the number of batches in one epoch.
func (dl *DataLoader) Len() int {
	total := dl.dataset.Len()
	if dl.dropLast {
		return total / dl.batchSize
	}
	return (total + dl.batchSize - 1) / dl.batchSize
}

// BatchSize returns the configured batch size.
func (dl *DataLoader) BatchSize() int { return dl.batchSize }
