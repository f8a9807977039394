package domain

import (
	"math"

	"github.com/cardiopredict/web/pkg/utils"
)

// RiskTier is a display classification of the positive-class probability.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierElevated RiskTier = "elevated"
	TierHigh     RiskTier = "high"
)

// Fixed display thresholds on the 0-100 score. They are a presentation
// policy and never override the backend's own prediction.
const (
	ElevatedThreshold = 50.0
	HighThreshold     = 75.0
)

// RiskAssessment is the presentation-ready view of a PredictionResult.
type RiskAssessment struct {
	Score float64  `json:"score"`
	Tier  RiskTier `json:"tier"`
}

// Risky reports whether the tier warrants the warning palette.
func (r RiskAssessment) Risky() bool {
	return r.Tier != TierLow
}

// DeriveRiskTier maps probability[1] to a 0-100 score and a tier. A missing
// or short probability sequence yields a zero, low-tier score.
func DeriveRiskTier(result PredictionResult) RiskAssessment {
	score := 0.0
	if len(result.Probability) > 1 {
		score = result.Probability[1] * 100
	}
	if math.IsNaN(score) {
		score = 0
	}
	score = utils.Clamp(score, 0, 100)

	tier := TierLow
	switch {
	case score > HighThreshold:
		tier = TierHigh
	case score > ElevatedThreshold:
		tier = TierElevated
	}
	return RiskAssessment{Score: score, Tier: tier}
}
