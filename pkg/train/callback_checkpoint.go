package train

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// ModelCheckpoint saves the model's parameters during training: every
// saveFreq epochs, or only on improvement of a monitored metric, per
// saveBest.
type ModelCheckpoint struct {
	BaseCallback

	path     string // may contain "{epoch}"
	monitor  string
	mode     string // "min" or "max"
	saveFreq int    // 0 = only on improvement
	saveBest bool
	verbose  bool

	bestValue float64
	bestEpoch int
}

// NewModelCheckpoint returns a ModelCheckpoint writing to path
// (substituting "{epoch}" with the zero-padded epoch number),
// monitoring the named metric under mode ("min"/"max").
func NewModelCheckpoint(path, monitor, mode string, saveFreq int, saveBest, verbose bool) *ModelCheckpoint {
	best := math.Inf(1)
	if mode == "max" {
		best = math.Inf(-1)
	}
	return &ModelCheckpoint{
		path: path, monitor: monitor, mode: mode,
		saveFreq: saveFreq, saveBest: saveBest, verbose: verbose,
		bestValue: best, bestEpoch: -1,
	}
}

func (mc *ModelCheckpoint) OnEpochEnd(ctx *TrainingContext) error {
	current, ok := ctx.Metrics[mc.monitor]
	if !ok {
		if mc.verbose {
			fmt.Printf("ModelCheckpoint: metric %q not found in context.Metrics\n", mc.monitor)
		}
		return nil
	}

	improved := false
	if mc.mode == "min" && current < mc.bestValue {
		mc.bestValue, mc.bestEpoch, improved = current, ctx.Epoch, true
	} else if mc.mode == "max" && current > mc.bestValue {
		mc.bestValue, mc.bestEpoch, improved = current, ctx.Epoch, true
	}

	shouldSave := improved
	if !mc.saveBest && mc.saveFreq > 0 {
		shouldSave = (ctx.Epoch+1)%mc.saveFreq == 0
	}
	if !shouldSave {
		return nil
	}

	savePath := mc.formatPath(ctx.Epoch)
	if err := SaveCheckpoint(ctx.Model.Params(), savePath); err != nil {
		return fmt.Errorf("ModelCheckpoint: save: %w", err)
	}
	if mc.verbose {
		if improved {
			fmt.Printf("Epoch %05d: %s improved to %.5f, saving model to %s\n",
				ctx.Epoch+1, mc.monitor, current, savePath)
		} else {
			fmt.Printf("Epoch %05d: saving model to %s\n", ctx.Epoch+1, savePath)
		}
	}
	return nil
}

// formatPath substitutes "{epoch}" (3-digit, 1-based) into the
// configured path.
func (mc *ModelCheckpoint) formatPath(epoch int) string {
	path := mc.path
	if strings.Contains(path, "{epoch}") {
		path = strings.ReplaceAll(path, "{epoch}", fmt.Sprintf("%03d", epoch+1))
	}
	return filepath.Clean(path)
}

// GetBestEpoch returns the epoch with the best monitored value so far,
// or -1 if none has been recorded.
func (mc *ModelCheckpoint) GetBestEpoch() int { return mc.bestEpoch }

// GetBestValue returns the best monitored value recorded so far.
func (mc *ModelCheckpoint) GetBestValue() float64 { return mc.bestValue }
