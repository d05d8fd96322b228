package train

import (
	"fmt"
	"math"
	"sync"

	"github.com/solstice-ml/tensorgrad/pkg/layers"
)

// TrainingContext carries the current state of a training run into
// every callback: progress counters, the running metrics map, their
// full history, and the model itself.
type TrainingContext struct {
	Epoch      int
	NumEpochs  int
	Batch      int
	NumBatches int

	Metrics map[string]float64
	History *MetricsHistory

	Model layers.Layer

	// StopTraining, once set true by a callback (e.g. early stopping),
	// ends the training loop after the current epoch completes.
	StopTraining bool
}

// NewTrainingContext returns a context for a run of numEpochs epochs
// over model.
func NewTrainingContext(model layers.Layer, numEpochs int) *TrainingContext {
	return &TrainingContext{
		NumEpochs: numEpochs,
		Model:     model,
		Metrics:   make(map[string]float64),
		History:   NewMetricsHistory(),
	}
}

// MetricsHistory records every epoch's metrics, safe for concurrent
// read access from callbacks running alongside the training loop.
type MetricsHistory struct {
	mu      sync.RWMutex
	Epochs  []int
	Metrics map[string][]float64
}

// NewMetricsHistory returns an empty history.
func NewMetricsHistory() *MetricsHistory {
	return &MetricsHistory{
		Epochs:  make([]int, 0),
		Metrics: make(map[string][]float64),
	}
}

// Append records one epoch's metric snapshot.
func (h *MetricsHistory) Append(epoch int, metrics map[string]float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Epochs = append(h.Epochs, epoch)
	for name, value := range metrics {
		h.Metrics[name] = append(h.Metrics[name], value)
	}
}

// Get returns a copy of every recorded value for metricName, or nil if
// it was never recorded.
func (h *MetricsHistory) Get(metricName string) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	values, ok := h.Metrics[metricName]
	if !ok {
		return nil
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}

// GetLast returns the most recently recorded value for metricName, or
// 0 if it was never recorded.
func (h *MetricsHistory) GetLast(metricName string) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	values, ok := h.Metrics[metricName]
	if !ok || len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// Best returns the epoch and value of the best recorded metricName,
// under mode "min" or "max". Returns (-1, 0) if never recorded.
func (h *MetricsHistory) Best(metricName, mode string) (int, float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	values, ok := h.Metrics[metricName]
	if !ok || len(values) == 0 {
		return -1, 0
	}

	bestIdx := 0
	for i := 1; i < len(values); i++ {
		if mode == "min" && values[i] < values[bestIdx] {
			bestIdx = i
		} else if mode == "max" && values[i] > values[bestIdx] {
			bestIdx = i
		}
	}
	if bestIdx < len(h.Epochs) {
		return h.Epochs[bestIdx], values[bestIdx]
	}
	return bestIdx, values[bestIdx]
}

// Len returns the number of epochs recorded.
func (h *MetricsHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Epochs)
}

// HasMetric reports whether metricName has ever been recorded.
func (h *MetricsHistory) HasMetric(metricName string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.Metrics[metricName]
	return ok
}

// IsImproved reports whether the latest value of metricName is better
// than the best of everything recorded before it, by at least
// minDelta. A metric with fewer than two recordings always counts as
// improved.
func (h *MetricsHistory) IsImproved(metricName, mode string, minDelta float64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	values, ok := h.Metrics[metricName]
	if !ok || len(values) < 2 {
		return true
	}
	current := values[len(values)-1]

	var bestPrevious float64
	if mode == "min" {
		bestPrevious = math.Inf(1)
		for _, v := range values[:len(values)-1] {
			if v < bestPrevious {
				bestPrevious = v
			}
		}
		return current < bestPrevious-minDelta
	}
	bestPrevious = math.Inf(-1)
	for _, v := range values[:len(values)-1] {
		if v > bestPrevious {
			bestPrevious = v
		}
	}
	return current > bestPrevious+minDelta
}

// String renders the most recent epoch's metrics.
func (h *MetricsHistory) String() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.Epochs) == 0 {
		return "MetricsHistory{empty}"
	}
	result := fmt.Sprintf("MetricsHistory{epoch: %d", h.Epochs[len(h.Epochs)-1])
	for name, values := range h.Metrics {
		if len(values) > 0 {
			result += fmt.Sprintf(", %s: %.4f", name, values[len(values)-1])
		}
	}
	return result + "}"
}
