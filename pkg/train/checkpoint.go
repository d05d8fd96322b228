package train

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// checkpointParam is one serialized parameter tensor.
type checkpointParam struct {
	Shape []int     `yaml:"shape"`
	Data  []float64 `yaml:"data"`
}

// checkpointFile is the on-disk YAML representation of a parameter
// list, written in the order the model's Params() returns them.
type checkpointFile struct {
	Version int               `yaml:"version"`
	Params  []checkpointParam `yaml:"params"`
}

// SaveCheckpoint writes params to path as YAML, via a temp file plus
// rename for an atomic replace on the same filesystem.
func SaveCheckpoint(params []*tensor.Tensor, path string) error {
	cf := checkpointFile{Version: 1, Params: make([]checkpointParam, len(params))}
	for i, p := range params {
		if p == nil {
			return fmt.Errorf("checkpoint: param %d is nil", i)
		}
		cf.Params[i] = checkpointParam{
			Shape: append([]int(nil), p.Shape...),
			Data:  append([]float64(nil), p.Data...),
		}
	}

	bs, err := yaml.Marshal(cf)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("checkpoint: mkdir: %w", err)
		}
	}
	tmp := filepath.Join(dir, ".tmp_"+filepath.Base(path))
	if err := os.WriteFile(tmp, bs, 0o644); err != nil {
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("checkpoint: rename: %w", err)
	}
	return nil
}

// LoadCheckpoint reads path and copies its parameter values into
// params, in order. The checkpoint's parameter count and every shape
// must match params exactly.
func LoadCheckpoint(params []*tensor.Tensor, path string) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("checkpoint: read %s: %w", path, err)
	}

	var cf checkpointFile
	if err := yaml.Unmarshal(bs, &cf); err != nil {
		return fmt.Errorf("checkpoint: unmarshal: %w", err)
	}
	if len(cf.Params) != len(params) {
		return fmt.Errorf("checkpoint: param count mismatch: file=%d model=%d", len(cf.Params), len(params))
	}

	for i, cp := range cf.Params {
		target := params[i]
		if len(cp.Shape) != len(target.Shape) {
			return fmt.Errorf("checkpoint: param %d shape rank mismatch: file=%v model=%v", i, cp.Shape, target.Shape)
		}
		for k := range cp.Shape {
			if cp.Shape[k] != target.Shape[k] {
				return fmt.Errorf("checkpoint: param %d shape mismatch: file=%v model=%v", i, cp.Shape, target.Shape)
			}
		}
		if len(cp.Data) != len(target.Data) {
			return fmt.Errorf("checkpoint: param %d data length mismatch: file=%d model=%d", i, len(cp.Data), len(target.Data))
		}
		copy(target.Data, cp.Data)
	}
	return nil
}
