package runtime

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/scorer"
	"github.com/quickmart/churnguard/internal/vectorizer"
)

// jsonLogisticModel is the concrete scorer.Model this service loads at
// startup: a weight vector plus bias, JSON-serialized, scored with a plain
// sigmoid. No pack repo ships an ML inference runtime (ONNX, TF Lite) to
// bind to, and scorer.Model is deliberately an injected interface for
// exactly this reason (see DESIGN.md's C4 entry); this is the simplest
// artifact format that satisfies it without introducing an unjustified
// dependency.
type jsonLogisticModel struct {
	Bias    float64   `json:"bias"`
	Weights []float64 `json:"weights"`
}

func newJSONLogisticModel(path string) (scorer.Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "runtime: read model artifact %s", path)
	}
	var m jsonLogisticModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "runtime: decode model artifact %s", path)
	}
	if len(m.Weights) != vectorizer.NumSlots {
		return nil, errors.Errorf("runtime: model artifact %s has %d weights, want %d", path, len(m.Weights), vectorizer.NumSlots)
	}
	return &m, nil
}

// PredictProba implements scorer.Model with a plain logistic regression
// scoring pass over the fixed-length vectorizer output.
func (m *jsonLogisticModel) PredictProba(vector []float64) (float64, error) {
	if len(vector) != len(m.Weights) {
		return 0, errors.Errorf("runtime: vector length %d does not match model weight length %d", len(vector), len(m.Weights))
	}
	z := m.Bias
	for i, w := range m.Weights {
		z += w * vector[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}
