package dataloader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/solstice-ml/tensorgrad/pkg/tensor"
)

// LoadCSV reads a CSV file of numeric rows into a features tensor and
// a targets tensor. targetCols names the (0-indexed) columns that make
// up the target; every other column becomes a feature. The first row
// is treated as a header only if it fails to parse as numbers.
func LoadCSV(path string, targetCols []int) (features, targets *tensor.Tensor, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dataloader: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]float64
	numCols := -1
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("dataloader: read %s: %w", path, err)
		}

		row, ok := parseRow(record)
		isFirst := first
		first = false
		if !ok {
			if isFirst {
				continue // header row
			}
			return nil, nil, fmt.Errorf("dataloader: non-numeric row in %s: %v", path, record)
		}
		if numCols == -1 {
			numCols = len(row)
		} else if len(row) != numCols {
			return nil, nil, fmt.Errorf("dataloader: ragged row in %s: want %d columns, got %d", path, numCols, len(row))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("dataloader: no data rows in %s", path)
	}

	isTarget := make(map[int]bool, len(targetCols))
	for _, c := range targetCols {
		isTarget[c] = true
	}

	featureCols := 0
	for c := 0; c < numCols; c++ {
		if !isTarget[c] {
			featureCols++
		}
	}
	if featureCols == 0 || len(targetCols) == 0 {
		return nil, nil, fmt.Errorf("dataloader: targetCols must leave at least one feature column")
	}

	featureData := make([]float64, 0, len(rows)*featureCols)
	targetData := make([]float64, 0, len(rows)*len(targetCols))
	for _, row := range rows {
		for c := 0; c < numCols; c++ {
			if !isTarget[c] {
				featureData = append(featureData, row[c])
			}
		}
		for _, c := range targetCols {
			targetData = append(targetData, row[c])
		}
	}

	features = tensor.New(featureData, []int{len(rows), featureCols})
	targets = tensor.New(targetData, []int{len(rows), len(targetCols)})
	return features, targets, nil
}

func parseRow(record []string) ([]float64, bool) {
	row := make([]float64, len(record))
	for i, field := range record {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, false
		}
		row[i] = v
	}
	return row, true
}
