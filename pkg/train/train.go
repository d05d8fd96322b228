package train

import (
	"fmt"

	"github.com/solstice-ml/tensorgrad/pkg/autograd"
	"github.com/solstice-ml/tensorgrad/pkg/dataloader"
	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/layers"
	"github.com/solstice-ml/tensorgrad/pkg/optimizers"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// LossFunc computes a scalar, gradient-tracked loss from a model's
// prediction and the batch target — the signature shared by
// ops.MSE and ops.SoftmaxCrossEntropy.
type LossFunc func(pred, target *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error)

// Trainer drives the epoch/batch loop: forward, loss, backward,
// optimizer step, with callbacks firing at every stage boundary.
type Trainer struct {
	model   layers.Layer
	allocs  *graph.Allocators
	loader  *dataloader.DataLoader
	opt     optimizers.Optimizer
	lossFn  LossFunc

	callbacks *CallbackList
	context   *TrainingContext
}

// NewTrainer wires a model, its allocator pair, a data loader, an
// optimizer, and a loss function into a Trainer that will run for
// epochs epochs when Fit is called.
func NewTrainer(
	model layers.Layer,
	allocs *graph.Allocators,
	loader *dataloader.DataLoader,
	opt optimizers.Optimizer,
	lossFn LossFunc,
	callbacks *CallbackList,
	epochs int,
) *Trainer {
	if callbacks == nil {
		callbacks = NewCallbackList()
	}
	return &Trainer{
		model:     model,
		allocs:    allocs,
		loader:    loader,
		opt:       opt,
		lossFn:    lossFn,
		callbacks: callbacks,
		context:   NewTrainingContext(model, epochs),
	}
}

// Fit runs the training loop to completion (or until a callback sets
// ctx.StopTraining), returning the first error raised by a batch step
// or a callback.
func (t *Trainer) Fit() error {
	if err := t.callbacks.OnTrainBegin(t.context); err != nil {
		return err
	}

	for epoch := 0; epoch < t.context.NumEpochs; epoch++ {
		t.context.Epoch = epoch
		t.context.Batch = 0

		if err := t.callbacks.OnEpochBegin(t.context); err != nil {
			return err
		}

		t.loader.Reset()
		t.context.NumBatches = t.loader.Len()

		for t.loader.HasNext() {
			batch := t.loader.Next()

			if err := t.callbacks.OnBatchBegin(t.context); err != nil {
				return err
			}

			lossVal, err := t.processBatch(batch)
			if err != nil {
				return fmt.Errorf("train: epoch %d batch %d: %w", epoch, t.context.Batch, err)
			}

			t.context.Metrics = map[string]float64{"loss": lossVal}
			t.context.Batch++

			if err := t.callbacks.OnBatchEnd(t.context); err != nil {
				return err
			}
		}

		t.context.History.Append(t.context.Epoch, t.context.Metrics)
		if err := t.callbacks.OnEpochEnd(t.context); err != nil {
			return err
		}
		if t.context.StopTraining {
			break
		}
	}

	return t.callbacks.OnTrainEnd(t.context)
}

// processBatch runs one forward/backward/optimizer step over batch
// and returns the scalar loss value.
func (t *Trainer) processBatch(batch *dataloader.Batch) (float64, error) {
	if err := t.model.Retrack(t.allocs); err != nil {
		return 0, err
	}
	autograd.ZeroGrad(t.model.Params())

	pred, err := t.model.Forward(batch.Features, t.allocs)
	if err != nil {
		return 0, err
	}

	loss, err := t.lossFn(pred, batch.Targets, t.allocs)
	if err != nil {
		return 0, err
	}

	if err := autograd.Backward(loss, t.allocs); err != nil {
		return 0, err
	}

	t.opt.Step(t.model.Params())
	lossVal := loss.Data[0]

	// Return this step's non-parameter output tensors to the pool
	// before dropping the tape, per the allocator pair's lifecycle:
	// the caller releases what it produced, ResetTape only forgets
	// bookkeeping. Parameters are never freed here — they persist
	// across steps via Retrack.
	t.allocs.Free(loss)
	t.allocs.Free(pred)

	t.allocs.ResetTape()
	return lossVal, nil
}

// Context exposes the Trainer's live TrainingContext, e.g. so a caller
// can inspect t.context.History after Fit returns.
func (t *Trainer) Context() *TrainingContext { return t.context }
