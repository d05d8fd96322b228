// Package config loads and validates the settings a training run
// needs: model shape, data source, and optimization hyperparameters.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig collects every setting a training run needs.
type AppConfig struct {
	Model      ModelConfig    `json:"model" yaml:"model"`
	Data       DataConfig     `json:"data" yaml:"data"`
	Training   TrainingConfig `json:"training" yaml:"training"`
	Checkpoint string         `json:"checkpoint" yaml:"checkpoint"`
}

// ModelConfig describes the network's shape.
type ModelConfig struct {
	Name        string `json:"name" yaml:"name"`
	InputSize   int    `json:"input_size" yaml:"input_size"`
	OutputSize  int    `json:"output_size" yaml:"output_size"`
	HiddenSizes []int  `json:"hidden_sizes" yaml:"hidden_sizes"`
}

// DataConfig describes where training examples come from and how the
// DataLoader should present them.
type DataConfig struct {
	Path      string `json:"path" yaml:"path"`
	BatchSize int    `json:"batch_size" yaml:"batch_size"`
	Shuffle   bool   `json:"shuffle" yaml:"shuffle"`
	DropLast  bool   `json:"drop_last" yaml:"drop_last"`
	Seed      int64  `json:"seed" yaml:"seed"`
}

// TrainingConfig controls the optimization loop.
type TrainingConfig struct {
	LR        float64 `json:"lr" yaml:"lr"`
	Epochs    int     `json:"epochs" yaml:"epochs"`
	Seed      int64   `json:"seed" yaml:"seed"`
	Loss      string  `json:"loss" yaml:"loss"`             // "mse" | "softmax_cross_entropy"
	Optimizer string  `json:"optimizer" yaml:"optimizer"`   // "sgd" | "adam"
	Momentum  float64 `json:"momentum" yaml:"momentum"`     // SGD only
}

// Default returns a configuration with safe defaults, suitable as a
// base that LoadApp overlays a file and environment onto.
func Default() AppConfig {
	return AppConfig{
		Model: ModelConfig{
			Name:        "mlp",
			InputSize:   2,
			OutputSize:  1,
			HiddenSizes: []int{8},
		},
		Data: DataConfig{
			Path:      "./data",
			BatchSize: 32,
			Shuffle:   true,
			DropLast:  false,
			Seed:      42,
		},
		Training: TrainingConfig{
			LR:        0.01,
			Epochs:    10,
			Seed:      42,
			Loss:      "mse",
			Optimizer: "adam",
			Momentum:  0.9,
		},
		Checkpoint: "./checkpoints/model.ckpt",
	}
}

// Load reads path and unmarshals it into out. JSON (.json) and YAML
// (.yaml, .yml) are both supported; an unrecognized extension tries
// JSON first, then YAML.
func Load(path string, out any) error {
	if path == "" {
		return errors.New("config: empty path")
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(bs, out); err != nil {
			return fmt.Errorf("config: json unmarshal: %w", err)
		}
		return nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(bs, out); err != nil {
			return fmt.Errorf("config: yaml unmarshal: %w", err)
		}
		return nil
	default:
		if err := json.Unmarshal(bs, out); err == nil {
			return nil
		}
		if err := yaml.Unmarshal(bs, out); err == nil {
			return nil
		}
		return fmt.Errorf("config: unsupported format (tried json and yaml)")
	}
}

// LoadApp loads an AppConfig from path (or Default() if path is
// empty), applies environment overrides, and validates the result.
func LoadApp(path string) (AppConfig, error) {
	cfg := Default()

	if path != "" {
		if err := Load(path, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for internally-consistent values,
// filling in one cross-field fallback along the way (Training.Seed
// from Data.Seed when unset).
func (c *AppConfig) Validate() error {
	if c.Model.InputSize <= 0 {
		return errors.New("config: model.input_size must be > 0")
	}
	if c.Model.OutputSize <= 0 {
		return errors.New("config: model.output_size must be > 0")
	}
	if c.Data.BatchSize <= 0 {
		return errors.New("config: data.batch_size must be > 0")
	}
	if c.Training.Epochs <= 0 {
		return errors.New("config: training.epochs must be > 0")
	}
	if c.Training.LR <= 0 {
		return errors.New("config: training.lr must be > 0")
	}
	if strings.TrimSpace(c.Data.Path) == "" {
		return errors.New("config: data.path must be set")
	}

	switch c.Training.Loss {
	case "mse", "softmax_cross_entropy":
	default:
		return fmt.Errorf("config: unsupported training.loss: %s", c.Training.Loss)
	}

	switch c.Training.Optimizer {
	case "sgd", "adam":
	default:
		return fmt.Errorf("config: unsupported training.optimizer: %s", c.Training.Optimizer)
	}

	if c.Training.Seed == 0 && c.Data.Seed != 0 {
		c.Training.Seed = c.Data.Seed
	}
	return nil
}

// applyEnvOverrides lets a handful of environment variables override
// file-provided settings, for container deployments that inject
// hyperparameters without a config file rewrite.
func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("TENSORGRAD_CHECKPOINT"); v != "" {
		c.Checkpoint = v
	}
	if v := os.Getenv("TENSORGRAD_DATA_PATH"); v != "" {
		c.Data.Path = v
	}
	if v := os.Getenv("TENSORGRAD_LR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Training.LR = f
		}
	}
	if v := os.Getenv("TENSORGRAD_EPOCHS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Training.Epochs = i
		}
	}
	if v := os.Getenv("TENSORGRAD_BATCH_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Data.BatchSize = i
		}
	}
	if v := os.Getenv("TENSORGRAD_SEED"); v != "" {
		if s, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Training.Seed = s
			c.Data.Seed = s
		}
	}
	if v := os.Getenv("TENSORGRAD_LOSS"); v != "" {
		c.Training.Loss = v
	}
}
