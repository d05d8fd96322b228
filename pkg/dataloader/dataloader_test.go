package dataloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

func makeDataset(n, dim int) *SimpleDataset {
	features := make([]float64, n*dim)
	targets := make([]float64, n)
	for i := range features {
		features[i] = float64(i)
	}
	for i := range targets {
		targets[i] = float64(i)
	}
	return NewSimpleDataset(tensor.New(features, []int{n, dim}), tensor.New(targets, []int{n}))
}

func TestSimpleDatasetGet(t *testing.T) {
	ds := makeDataset(4, 3)
	f, tg := ds.Get(1)
	want := []float64{3, 4, 5}
	for i, v := range want {
		if f.Data[i] != v {
			t.Fatalf("feature mismatch at %d: got %v want %v", i, f.Data, want)
		}
	}
	if tg.Data[0] != 1 {
		t.Fatalf("target mismatch: got %v", tg.Data)
	}
}

func TestSimpleDatasetGetOutOfBounds(t *testing.T) {
	ds := makeDataset(2, 2)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for out-of-bounds Get")
		}
	}()
	ds.Get(5)
}

func TestDataLoaderCoversAllSamplesNoDrop(t *testing.T) {
	ds := makeDataset(10, 2)
	dl := NewDataLoader(ds, DataLoaderConfig{BatchSize: 3, Shuffle: false})

	seen := map[int]bool{}
	for dl.HasNext() {
		b := dl.Next()
		n := b.Features.Shape[0]
		for i := 0; i < n; i++ {
			seen[int(b.Targets.Data[i])] = true
		}
	}
	if len(seen) != 10 {
		t.Fatalf("expected all 10 samples covered, got %d", len(seen))
	}
	if dl.Len() != 4 {
		t.Fatalf("Len(): got %d, want 4", dl.Len())
	}
}

func TestDataLoaderDropLast(t *testing.T) {
	ds := makeDataset(10, 2)
	dl := NewDataLoader(ds, DataLoaderConfig{BatchSize: 3, DropLast: true})

	count := 0
	for dl.HasNext() {
		b := dl.Next()
		if b.Features.Shape[0] != 3 {
			t.Fatalf("expected full batch of 3, got %d", b.Features.Shape[0])
		}
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 full batches, got %d", count)
	}
	if dl.Len() != 3 {
		t.Fatalf("Len(): got %d, want 3", dl.Len())
	}
}

func TestDataLoaderShuffleIsDeterministicPerSeed(t *testing.T) {
	ds := makeDataset(20, 1)
	dl1 := NewDataLoader(ds, DataLoaderConfig{BatchSize: 20, Shuffle: true, Seed: 7})
	dl2 := NewDataLoader(ds, DataLoaderConfig{BatchSize: 20, Shuffle: true, Seed: 7})

	b1 := dl1.Next()
	b2 := dl2.Next()
	for i := range b1.Targets.Data {
		if b1.Targets.Data[i] != b2.Targets.Data[i] {
			t.Fatalf("same seed produced different order at %d", i)
		}
	}
}

func TestDataLoaderResetReshuffles(t *testing.T) {
	ds := makeDataset(50, 1)
	dl := NewDataLoader(ds, DataLoaderConfig{BatchSize: 50, Shuffle: true, Seed: 1})
	first := dl.Next()
	dl.Reset()
	second := dl.Next()

	identical := true
	for i := range first.Targets.Data {
		if first.Targets.Data[i] != second.Targets.Data[i] {
			identical = false
			break
		}
	}
	if identical {
		t.Fatal("expected reshuffled order after Reset")
	}
}

func TestDataLoaderNextPanicsWhenExhausted(t *testing.T) {
	ds := makeDataset(2, 1)
	dl := NewDataLoader(ds, DataLoaderConfig{BatchSize: 2})
	dl.Next()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on exhausted Next()")
		}
	}()
	dl.Next()
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xor.csv")
	body := "x1,x2,y\n0,0,0\n0,1,1\n1,0,1\n1,1,0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	features, targets, err := LoadCSV(path, []int{2})
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if features.Shape[0] != 4 || features.Shape[1] != 2 {
		t.Fatalf("unexpected feature shape: %v", features.Shape)
	}
	if targets.Shape[0] != 4 || targets.Shape[1] != 1 {
		t.Fatalf("unexpected target shape: %v", targets.Shape)
	}
	wantTargets := []float64{0, 1, 1, 0}
	for i, v := range wantTargets {
		if targets.Data[i] != v {
			t.Fatalf("target %d: got %v, want %v", i, targets.Data[i], v)
		}
	}
}

func TestLoadCSVNoHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nohdr.csv")
	body := "0,0,0\n1,1,2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	features, _, err := LoadCSV(path, []int{2})
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if features.Shape[0] != 2 {
		t.Fatalf("expected both rows treated as data, got %d rows", features.Shape[0])
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, _, err := LoadCSV("/nonexistent.csv", []int{0}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
