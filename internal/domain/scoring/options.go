package scoring

import (
	"math/rand"
	"time"

	"github.com/okian/rainstream/internal/domain/model"
	"github.com/okian/rainstream/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMatchRadius sets the click-to-detection match radius in pixels.
func WithMatchRadius(radius float64) Option {
	return func(e *Engine) {
		if radius > 0 {
			e.radius = radius
		}
	}
}

// WithMatchWindow sets how far a click timestamp may drift from the
// tick time and still count.
func WithMatchWindow(window time.Duration) Option {
	return func(e *Engine) {
		if window > 0 {
			e.matchWindow = window
		}
	}
}

// WithRoundDuration sets the wall-clock length of a round.
func WithRoundDuration(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.duration = d
		}
	}
}

// WithDifficulty sets the starting difficulty for the first round.
func WithDifficulty(d model.Difficulty) Option {
	return func(e *Engine) {
		switch d {
		case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
			e.startDifficulty = d
		}
	}
}

// WithRates overrides the opponent detection rate per difficulty.
// Unknown keys are ignored; values are clamped to [0, 1].
func WithRates(rates map[model.Difficulty]float64) Option {
	return func(e *Engine) {
		for d, r := range rates {
			if _, known := e.rates[d]; !known {
				continue
			}
			if r < 0 {
				r = 0
			}
			if r > 1 {
				r = 1
			}
			e.rates[d] = r
		}
	}
}

// WithAdaptThresholds sets the accuracy cutoffs for promoting and
// demoting difficulty between rounds.
func WithAdaptThresholds(promoteAt, demoteAt float64) Option {
	return func(e *Engine) {
		if demoteAt >= 0 && promoteAt <= 1 && demoteAt <= promoteAt {
			e.promoteAt = promoteAt
			e.demoteAt = demoteAt
		}
	}
}

// WithOpponent swaps the opponent sampling strategy.
func WithOpponent(o Opponent) Option {
	return func(e *Engine) {
		if o != nil {
			e.opponent = o
		}
	}
}

// WithRand sets the random source used for opponent sampling.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithPlayer sets the identity attached to persisted round records.
func WithPlayer(usernameHash, deviceType string) Option {
	return func(e *Engine) {
		if usernameHash != "" {
			e.usernameHash = usernameHash
		}
		if deviceType != "" {
			e.deviceType = deviceType
		}
	}
}

// WithClock overrides the wall clock, for deterministic round timing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
