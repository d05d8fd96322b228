// Package train drives the epoch/batch optimization loop over a
// layers.Layer model, with an Observer-pattern callback system for
// progress reporting, metrics logging, and checkpointing.
package train

// Callback hooks into the training loop's key moments. An error from
// any hook aborts CallbackList's dispatch, and Trainer.Fit returns
// that error, ending training. StopTraining is the way to stop early
// without an error.
type Callback interface {
	OnTrainBegin(ctx *TrainingContext) error
	OnTrainEnd(ctx *TrainingContext) error
	OnEpochBegin(ctx *TrainingContext) error
	OnEpochEnd(ctx *TrainingContext) error
	OnBatchBegin(ctx *TrainingContext) error
	OnBatchEnd(ctx *TrainingContext) error
}

// BaseCallback is a no-op Callback; embed it to implement only the
// hooks a concrete callback cares about.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(ctx *TrainingContext) error { return nil }
func (BaseCallback) OnTrainEnd(ctx *TrainingContext) error   { return nil }
func (BaseCallback) OnEpochBegin(ctx *TrainingContext) error { return nil }
func (BaseCallback) OnEpochEnd(ctx *TrainingContext) error   { return nil }
func (BaseCallback) OnBatchBegin(ctx *TrainingContext) error { return nil }
func (BaseCallback) OnBatchEnd(ctx *TrainingContext) error   { return nil }

// CallbackList fans every hook out to a fixed set of callbacks, in
// registration order.
type CallbackList struct {
	callbacks []Callback
}

// NewCallbackList returns a CallbackList running callbacks in order.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{callbacks: callbacks}
}

// Add appends callback, to run after every callback already present.
func (cl *CallbackList) Add(callback Callback) {
	cl.callbacks = append(cl.callbacks, callback)
}

// Len returns the number of registered callbacks.
func (cl *CallbackList) Len() int { return len(cl.callbacks) }

func (cl *CallbackList) OnTrainBegin(ctx *TrainingContext) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnTrainBegin(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (cl *CallbackList) OnTrainEnd(ctx *TrainingContext) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnTrainEnd(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (cl *CallbackList) OnEpochBegin(ctx *TrainingContext) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnEpochBegin(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (cl *CallbackList) OnEpochEnd(ctx *TrainingContext) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnEpochEnd(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (cl *CallbackList) OnBatchBegin(ctx *TrainingContext) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnBatchBegin(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (cl *CallbackList) OnBatchEnd(ctx *TrainingContext) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnBatchEnd(ctx); err != nil {
			return err
		}
	}
	return nil
}
