package recon

import (
	"math"

	"github.com/sells-group/recon-cli/internal/model"
)

// HighConfidenceThreshold is the exclusive lower bound of the high tier.
// Exactly 0.8 is low.
const HighConfidenceThreshold = 0.8

// Classify maps an extraction confidence to a display tier. A nil or NaN
// confidence is absent, not low. Tiers only drive emphasis; they never feed
// verdicts or judgments.
func Classify(confidence *float64) model.Tier {
	if confidence == nil || math.IsNaN(*confidence) {
		return model.TierAbsent
	}
	if *confidence > HighConfidenceThreshold {
		return model.TierHigh
	}
	return model.TierLow
}
