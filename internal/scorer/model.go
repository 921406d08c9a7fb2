// Package scorer implements the churn scorer (C4): feature vectorization,
// gradient-boosted prediction, the dynamic cart-abandonment boost,
// explanation (attribution-based with a rule-based fallback), and risk
// segmentation, per §4.4.
package scorer

import (
	"os"

	"github.com/pkg/errors"
)

// ErrModelMissing is the fatal startup error raised when no model artifact
// can be loaded from any candidate path. Per §7, this is ModelMissing: a
// fatal operator error, never a per-request error.
var ErrModelMissing = errors.New("scorer: no model artifact could be loaded")

// Model is the persisted gradient-boosted binary classifier's prediction
// surface. A concrete implementation wraps whatever serialization format
// the offline training build produced; this module only consumes the
// interface, per §1's Non-goal excluding model training.
type Model interface {
	// PredictProba returns the positive-class (churn) probability for a
	// single feature vector.
	PredictProba(vector []float64) (float64, error)
}

// LoadModel tries each candidate path in order and returns the first
// successfully loaded model. Mirrors "first successful load wins" from
// §4.4. The concrete decode format is left to newFn so tests can supply a
// fake loader.
func LoadModel(candidatePaths []string, newFn func(path string) (Model, error)) (Model, string, error) {
	for _, path := range candidatePaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		model, err := newFn(path)
		if err != nil {
			continue
		}
		return model, path, nil
	}
	return nil, "", ErrModelMissing
}
