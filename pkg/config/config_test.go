package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPassesValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default(): unexpected Validate error: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	body := `
model:
  name: xor-net
  input_size: 2
  output_size: 1
  hidden_sizes: [8, 4]
data:
  path: ./data/xor.csv
  batch_size: 4
  shuffle: true
training:
  lr: 0.05
  epochs: 200
  loss: mse
  optimizer: sgd
  momentum: 0.9
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadApp(path)
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}
	if cfg.Model.Name != "xor-net" || len(cfg.Model.HiddenSizes) != 2 {
		t.Fatalf("unexpected model config: %+v", cfg.Model)
	}
	if cfg.Training.Optimizer != "sgd" || cfg.Training.Epochs != 200 {
		t.Fatalf("unexpected training config: %+v", cfg.Training)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	body := `{"model":{"name":"j","input_size":3,"output_size":2},"data":{"path":"d","batch_size":8},"training":{"lr":0.01,"epochs":5,"loss":"softmax_cross_entropy","optimizer":"adam"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadApp(path)
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}
	if cfg.Model.InputSize != 3 || cfg.Training.Loss != "softmax_cross_entropy" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []func(*AppConfig){
		func(c *AppConfig) { c.Model.InputSize = 0 },
		func(c *AppConfig) { c.Data.BatchSize = 0 },
		func(c *AppConfig) { c.Training.Epochs = 0 },
		func(c *AppConfig) { c.Training.LR = 0 },
		func(c *AppConfig) { c.Data.Path = "" },
		func(c *AppConfig) { c.Training.Loss = "huber" },
		func(c *AppConfig) { c.Training.Optimizer = "rmsprop" },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected Validate error, got nil", i)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TENSORGRAD_LR", "0.25")
	t.Setenv("TENSORGRAD_EPOCHS", "42")
	t.Setenv("TENSORGRAD_DATA_PATH", "/tmp/custom")

	cfg, err := LoadApp("")
	if err != nil {
		t.Fatalf("LoadApp: %v", err)
	}
	if cfg.Training.LR != 0.25 {
		t.Fatalf("env override LR: got %v", cfg.Training.LR)
	}
	if cfg.Training.Epochs != 42 {
		t.Fatalf("env override Epochs: got %v", cfg.Training.Epochs)
	}
	if cfg.Data.Path != "/tmp/custom" {
		t.Fatalf("env override Data.Path: got %v", cfg.Data.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadApp("/nonexistent/path.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
