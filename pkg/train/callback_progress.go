package train

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProgressBar prints epoch/batch progress to stdout, with a live bar
// while batches are running and a one-line summary at epoch end.
type ProgressBar struct {
	BaseCallback

	showEpoch bool
	showBatch bool

	epochStart time.Time
	lastUpdate time.Time
	barWidth   int
}

// NewProgressBar returns a ProgressBar. showEpoch controls the
// per-epoch summary line; showBatch additionally prints a live,
// redrawn progress bar as batches complete.
func NewProgressBar(showEpoch, showBatch bool) *ProgressBar {
	return &ProgressBar{showEpoch: showEpoch, showBatch: showBatch, barWidth: 30}
}

// SetBarWidth overrides the bar's character width (1-100).
func (pb *ProgressBar) SetBarWidth(width int) {
	if width > 0 && width <= 100 {
		pb.barWidth = width
	}
}

func (pb *ProgressBar) OnEpochBegin(ctx *TrainingContext) error {
	pb.epochStart = time.Now()
	pb.lastUpdate = pb.epochStart
	if pb.showEpoch && !pb.showBatch {
		fmt.Printf("Epoch %d/%d\n", ctx.Epoch+1, ctx.NumEpochs)
	}
	return nil
}

func (pb *ProgressBar) OnEpochEnd(ctx *TrainingContext) error {
	if !pb.showEpoch {
		return nil
	}
	if pb.showBatch {
		fmt.Println()
	}
	elapsed := time.Since(pb.epochStart)
	fmt.Printf("Epoch %d/%d completed in %s - %s\n",
		ctx.Epoch+1, ctx.NumEpochs, formatDuration(elapsed), formatMetrics(ctx.Metrics))
	return nil
}

func (pb *ProgressBar) OnBatchEnd(ctx *TrainingContext) error {
	if !pb.showBatch {
		return nil
	}

	now := time.Now()
	last := ctx.Batch+1 >= ctx.NumBatches
	if now.Sub(pb.lastUpdate) < 100*time.Millisecond && !last {
		return nil
	}
	pb.lastUpdate = now

	progress := float64(ctx.Batch+1) / float64(ctx.NumBatches)
	filled := int(progress * float64(pb.barWidth))
	bar := strings.Repeat("#", filled) + strings.Repeat("-", pb.barWidth-filled)

	elapsed := time.Since(pb.epochStart)
	rate := float64(ctx.Batch+1) / elapsed.Seconds()
	var remaining time.Duration
	if rate > 0 {
		remaining = time.Duration(float64(ctx.NumBatches-(ctx.Batch+1))/rate) * time.Second
	}

	fmt.Printf("\rEpoch %d/%d: %3.0f%% |%s| %d/%d [%s<%s, %.2fbatch/s] %s",
		ctx.Epoch+1, ctx.NumEpochs, progress*100, bar, ctx.Batch+1, ctx.NumBatches,
		formatDuration(elapsed), formatDuration(remaining), rate, formatMetrics(ctx.Metrics))
	return nil
}

// formatMetrics renders metrics as "loss: 0.4521 - accuracy: 0.8234",
// sorted by name for a stable column order.
func formatMetrics(metrics map[string]float64) string {
	if len(metrics) == 0 {
		return ""
	}
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %.4f", name, metrics[name]))
	}
	return strings.Join(parts, " - ")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
