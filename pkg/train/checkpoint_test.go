package train

import (
	"path/filepath"
	"testing"

	"github.com/solstice-ml/tensorgrad/pkg/graph"
	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

func TestSaveLoadCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.ckpt")

	params := []*tensor.Tensor{
		tensor.New([]float64{1, 2, 3, 4}, []int{2, 2}),
		tensor.New([]float64{0.5, -0.5}, []int{2}),
	}
	if err := SaveCheckpoint(params, path); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	loaded := []*tensor.Tensor{
		tensor.Zeros(2, 2),
		tensor.Zeros(2),
	}
	if err := LoadCheckpoint(loaded, path); err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}

	for i, want := range params {
		for j, v := range want.Data {
			if loaded[i].Data[j] != v {
				t.Fatalf("param %d[%d]: got %v, want %v", i, j, loaded[i].Data[j], v)
			}
		}
	}
}

func TestLoadCheckpointShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.ckpt")

	if err := SaveCheckpoint([]*tensor.Tensor{tensor.Zeros(2, 2)}, path); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if err := LoadCheckpoint([]*tensor.Tensor{tensor.Zeros(3, 3)}, path); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestLoadCheckpointCountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.ckpt")

	if err := SaveCheckpoint([]*tensor.Tensor{tensor.Zeros(2), tensor.Zeros(2)}, path); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if err := LoadCheckpoint([]*tensor.Tensor{tensor.Zeros(2)}, path); err == nil {
		t.Fatal("expected param count mismatch error")
	}
}

func TestModelCheckpointSavesOnImprovement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "best.ckpt")

	mc := NewModelCheckpoint(path, "loss", "min", 0, true, false)
	ctx := &TrainingContext{Metrics: map[string]float64{"loss": 0.5}, Model: stubModel{}}

	if err := mc.OnEpochEnd(ctx); err != nil {
		t.Fatalf("OnEpochEnd: %v", err)
	}
	if err := LoadCheckpoint(stubModel{}.Params(), path); err != nil {
		t.Fatalf("expected checkpoint file to exist after improvement: %v", err)
	}

	ctx.Epoch = 1
	ctx.Metrics["loss"] = 0.9 // worse, should not overwrite
	if err := mc.OnEpochEnd(ctx); err != nil {
		t.Fatalf("OnEpochEnd: %v", err)
	}
	if mc.GetBestEpoch() != 0 {
		t.Fatalf("expected best epoch to remain 0, got %d", mc.GetBestEpoch())
	}
}

type stubModel struct{}

func (stubModel) Forward(x *tensor.Tensor, allocs *graph.Allocators) (*tensor.Tensor, error) {
	return x, nil
}
func (stubModel) Params() []*tensor.Tensor                       { return []*tensor.Tensor{tensor.Zeros(2)} }
func (stubModel) Retrack(allocs *graph.Allocators) error          { return nil }
