package train

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// TrainState is the small, JSON-serialized run summary saved alongside
// a checkpoint directory — enough to resume progress reporting (not
// the parameters themselves, which live in the checkpoint file).
type TrainState struct {
	CurrentEpoch int     `json:"current_epoch"`
	BestMetric   float64 `json:"best_metric"`
	AverageLoss  float64 `json:"average_loss"`
}

// SaveTrainState writes state as ".state.json" inside checkpointDir.
func SaveTrainState(state *TrainState, checkpointDir string) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(checkpointDir, ".state.json"), data, 0o644)
}

// LoadTrainState reads ".state.json" from checkpointDir. Returns
// (nil, nil) if the file does not exist yet.
func LoadTrainState(checkpointDir string) (*TrainState, error) {
	data, err := os.ReadFile(filepath.Join(checkpointDir, ".state.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state TrainState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
