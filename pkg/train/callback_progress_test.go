package train

import "testing"

func TestProgressBarRunsWithoutError(t *testing.T) {
	pb := NewProgressBar(true, true)
	pb.SetBarWidth(10)

	ctx := &TrainingContext{NumEpochs: 2, NumBatches: 3, Metrics: map[string]float64{"loss": 1.0}}

	if err := pb.OnEpochBegin(ctx); err != nil {
		t.Fatalf("OnEpochBegin: %v", err)
	}
	for b := 0; b < ctx.NumBatches; b++ {
		ctx.Batch = b
		if err := pb.OnBatchEnd(ctx); err != nil {
			t.Fatalf("OnBatchEnd: %v", err)
		}
	}
	if err := pb.OnEpochEnd(ctx); err != nil {
		t.Fatalf("OnEpochEnd: %v", err)
	}
}

func TestProgressBarSetBarWidthIgnoresOutOfRange(t *testing.T) {
	pb := NewProgressBar(false, false)
	pb.SetBarWidth(30)
	pb.SetBarWidth(0)
	pb.SetBarWidth(500)
	if pb.barWidth != 30 {
		t.Fatalf("expected barWidth to stay 30, got %d", pb.barWidth)
	}
}

func TestFormatMetricsSortsByName(t *testing.T) {
	got := formatMetrics(map[string]float64{"accuracy": 0.9, "loss": 0.1})
	want := "accuracy: 0.9000 - loss: 0.1000"
	if got != want {
		t.Fatalf("formatMetrics: got %q, want %q", got, want)
	}
}
