package train

import "testing"

func TestMetricsHistoryBestMin(t *testing.T) {
	h := NewMetricsHistory()
	h.Append(0, map[string]float64{"loss": 0.8})
	h.Append(1, map[string]float64{"loss": 0.3})
	h.Append(2, map[string]float64{"loss": 0.5})

	epoch, value := h.Best("loss", "min")
	if epoch != 1 || value != 0.3 {
		t.Fatalf("Best: got (%d, %v), want (1, 0.3)", epoch, value)
	}
}

func TestMetricsHistoryIsImproved(t *testing.T) {
	h := NewMetricsHistory()
	h.Append(0, map[string]float64{"loss": 0.8})
	if !h.IsImproved("loss", "min", 0) {
		t.Fatal("first recording should always count as improved")
	}

	h.Append(1, map[string]float64{"loss": 0.5})
	if !h.IsImproved("loss", "min", 0) {
		t.Fatal("0.5 < 0.8 should be an improvement")
	}

	h.Append(2, map[string]float64{"loss": 0.6})
	if h.IsImproved("loss", "min", 0) {
		t.Fatal("0.6 > best-so-far 0.5 should not be an improvement")
	}
}

func TestMetricsHistoryGetMissing(t *testing.T) {
	h := NewMetricsHistory()
	if h.Get("nope") != nil {
		t.Fatal("expected nil for unrecorded metric")
	}
	if h.GetLast("nope") != 0 {
		t.Fatal("expected 0 for unrecorded metric")
	}
	if epoch, _ := h.Best("nope", "min"); epoch != -1 {
		t.Fatalf("expected -1 epoch for unrecorded metric, got %d", epoch)
	}
}

func TestCallbackListPropagatesError(t *testing.T) {
	cl := NewCallbackList(&erroringCallback{})
	if err := cl.OnEpochEnd(&TrainingContext{}); err == nil {
		t.Fatal("expected error to propagate from callback")
	}
}

type erroringCallback struct{ BaseCallback }

func (erroringCallback) OnEpochEnd(ctx *TrainingContext) error {
	return errEpochFailed
}

var errEpochFailed = errFixture("epoch failed")

type errFixture string

func (e errFixture) Error() string { return string(e) }
