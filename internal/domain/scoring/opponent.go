package scoring

import (
	"math/rand"

	"github.com/okian/rainstream/internal/domain/model"
)

// Opponent decides which merged detections the simulated player
// claims in one tick. Implementations must not mutate the slice.
type Opponent interface {
	// Sample returns the indices of the detections claimed this tick.
	// rate is the per-detection claim probability for the current
	// difficulty.
	Sample(rng *rand.Rand, merged []model.MergedDetection, rate float64) []int
}

// RateOpponent claims each detection independently with the given
// probability, weighted toward high-confidence detections the way a
// real detector would be.
type RateOpponent struct{}

// NewRateOpponent creates the default probabilistic opponent.
func NewRateOpponent() *RateOpponent {
	return &RateOpponent{}
}

// Sample draws one Bernoulli trial per detection. Confidence scales
// the effective rate so low-confidence candidates are claimed less
// often.
func (o *RateOpponent) Sample(rng *rand.Rand, merged []model.MergedDetection, rate float64) []int {
	if rate <= 0 || len(merged) == 0 {
		return nil
	}
	var claims []int
	for i, m := range merged {
		p := rate * m.Confidence
		if p > rate {
			p = rate
		}
		if rng.Float64() < p {
			claims = append(claims, i)
		}
	}
	return claims
}

// FixedOpponent claims every detection or none, depending on ClaimAll.
// Used where deterministic opponent behavior is needed.
type FixedOpponent struct {
	ClaimAll bool
}

// Sample returns every index when ClaimAll is set, nil otherwise.
func (o *FixedOpponent) Sample(_ *rand.Rand, merged []model.MergedDetection, _ float64) []int {
	if !o.ClaimAll {
		return nil
	}
	claims := make([]int, len(merged))
	for i := range merged {
		claims[i] = i
	}
	return claims
}
