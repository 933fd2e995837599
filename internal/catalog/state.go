package catalog

import (
	"encoding/json"
	"os"
	"time"

	"PriceLens/internal/model"
)

// LoadState reads the catalog state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.CatalogState, error) {
	state := &model.CatalogState{LastMedians: map[string]float64{}}
	if filePath == "" {
		return state, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	if state.LastMedians == nil {
		state.LastMedians = map[string]float64{}
	}
	return state, nil
}

// SaveState writes the catalog state to a JSON file. An empty path keeps state in memory only.
func SaveState(filePath string, state *model.CatalogState) error {
	state.UpdatedAt = time.Now()
	if filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
