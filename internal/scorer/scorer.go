package scorer

import (
	"math"

	"github.com/pkg/errors"

	"github.com/quickmart/churnguard/internal/vectorizer"
)

// RiskSegment is the four-level bucketization of churn probability.
type RiskSegment string

const (
	SegmentLow      RiskSegment = "low"
	SegmentMedium   RiskSegment = "medium"
	SegmentHigh     RiskSegment = "high"
	SegmentCritical RiskSegment = "critical"
)

// maxProbability is the hard cap applied after the dynamic boost, per §4.4
// step 3 and the testable property in §8.
const maxProbability = 0.95

// Prediction is the result of PredictChurn.
type Prediction struct {
	ChurnProbability  float64
	RiskSegment       RiskSegment
	ChurnReasons      []string
	FeatureImportance map[string]float64
	ConfidenceScore   float64
}

// Scorer is the churn scorer (C4). It is constructed once at startup with
// an immutable model artifact and a chosen Explainer strategy, then held on
// the Runtime — never a package-level singleton.
type Scorer struct {
	model     Model
	explainer Explainer
}

// New builds a Scorer. model must be non-nil; per §4.4's failure semantics,
// constructing a Scorer without a loaded model is a startup-time error, not
// deferred to the first request.
func New(model Model, explainer Explainer) (*Scorer, error) {
	if model == nil {
		return nil, ErrModelMissing
	}
	return &Scorer{model: model, explainer: explainer}, nil
}

// PredictChurn runs the full churn-scoring algorithm from §4.4: vectorize,
// query the model, apply the dynamic abandon-count boost, segment, explain,
// and compute a confidence score.
func (s *Scorer) PredictChurn(features map[string]any) (*Prediction, error) {
	vector := vectorizer.Vectorize(features)

	p, err := s.model.PredictProba(vector)
	if err != nil {
		return nil, errors.Wrap(err, "scorer: model prediction failed")
	}

	p = applyAbandonBoost(p, asFloat(features["abandon_count"]))

	segment := segmentFor(p)
	reasons := s.explainer.Explain(features, vector)
	confidence := confidenceFor(p)

	return &Prediction{
		ChurnProbability: p,
		RiskSegment:      segment,
		ChurnReasons:     reasons,
		ConfidenceScore:  confidence,
	}, nil
}

// applyAbandonBoost adds the dynamic short-term boost described in §4.4
// step 3 and caps the result at maxProbability. The boost law is weakly
// monotone in abandonCount (the testable property in §8): 0 at n=0, +0.10
// at n=1, +0.15 at n=2, +0.20 at n>=3.
func applyAbandonBoost(p, abandonCount float64) float64 {
	var boost float64
	switch {
	case abandonCount >= 3:
		boost = 0.20
	case abandonCount == 2:
		boost = 0.15
	case abandonCount == 1:
		boost = 0.10
	}
	return math.Min(p+boost, maxProbability)
}

// segmentFor buckets a probability into the four-level risk segment, per
// the segment boundary law in §8.
func segmentFor(p float64) RiskSegment {
	switch {
	case p >= 0.8:
		return SegmentCritical
	case p >= 0.6:
		return SegmentHigh
	case p >= 0.4:
		return SegmentMedium
	default:
		return SegmentLow
	}
}

// confidenceFor computes min(0.95, max(0.6, |p-0.5|*2)), per §4.4 step 6.
func confidenceFor(p float64) float64 {
	c := math.Abs(p-0.5) * 2
	if c < 0.6 {
		c = 0.6
	}
	if c > 0.95 {
		c = 0.95
	}
	return c
}
