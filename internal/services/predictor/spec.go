package predictor

import "fmt"

// Layer describes one layer of the recurrent forecaster.
type Layer struct {
	Kind            string `json:"kind"`
	Units           int    `json:"units"`
	ReturnSequences bool   `json:"return_sequences,omitempty"`
}

// ModelSpec is the architecture the model service is expected to serve:
// stacked LSTM layers over a (window_size, 1) input and a dense head with one
// unit per forecast step, compiled with adam and mean squared error.
type ModelSpec struct {
	Name       string  `json:"name"`
	WindowSize int     `json:"window_size"`
	Horizon    int     `json:"horizon"`
	Layers     []Layer `json:"layers"`
	Optimizer  string  `json:"optimizer"`
	Loss       string  `json:"loss"`
	Seed       int64   `json:"seed"`
}

// NewModelSpec builds the stacked LSTM spec. Every LSTM layer except the last
// returns sequences.
func NewModelSpec(name string, windowSize, horizon int, units []int, seed int64) (ModelSpec, error) {
	if windowSize <= 0 || horizon <= 0 {
		return ModelSpec{}, fmt.Errorf("model spec: window size and horizon must be positive, got %d and %d", windowSize, horizon)
	}
	if len(units) == 0 {
		units = []int{64, 64}
	}
	layers := make([]Layer, 0, len(units)+1)
	for i, u := range units {
		if u <= 0 {
			return ModelSpec{}, fmt.Errorf("model spec: layer %d units must be positive, got %d", i, u)
		}
		layers = append(layers, Layer{Kind: "lstm", Units: u, ReturnSequences: i < len(units)-1})
	}
	layers = append(layers, Layer{Kind: "dense", Units: horizon})

	return ModelSpec{
		Name:       name,
		WindowSize: windowSize,
		Horizon:    horizon,
		Layers:     layers,
		Optimizer:  "adam",
		Loss:       "mse",
		Seed:       seed,
	}, nil
}

// InputShape is the per-request tensor shape (batch, window_size, features).
func (s ModelSpec) InputShape() [3]int { return [3]int{1, s.WindowSize, 1} }
