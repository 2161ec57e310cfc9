// Package scoring owns the round state machine: it compares human
// clicks and a simulated opponent against the merged ground truth,
// accumulates score and accuracy, and adapts opponent difficulty
// between rounds.
//
// RoundState is the only mutable value in the pipeline and it is owned
// exclusively by this engine. The engine is driven from the single
// tick goroutine; it is not safe for concurrent use.
package scoring

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rainstream/internal/domain/model"
	"github.com/okian/rainstream/pkg/logger"
	"github.com/okian/rainstream/pkg/metrics"
)

// Default scoring configuration constants.
const (
	defaultRoundDuration = 30 * time.Second
	defaultMatchWindow   = 500 * time.Millisecond
	defaultMatchRadius   = 30.0
	defaultBaseHitPoints = 10
	defaultComboBonus    = 5
	defaultCollabBonus   = 5
	defaultPromoteAt     = 0.75
	defaultDemoteAt      = 0.40
	defaultScoringSeed   = 42
	aiPointsPerHit       = 10
)

// defaultRates is the opponent detection-rate curve per difficulty.
func defaultRates() map[model.Difficulty]float64 {
	return map[model.Difficulty]float64{
		model.DifficultyEasy:   0.45,
		model.DifficultyMedium: 0.75,
		model.DifficultyHard:   0.95,
	}
}

// Phase of the round state machine.
type Phase string

// Round phases.
const (
	PhaseNotStarted Phase = "not_started"
	PhaseRunning    Phase = "running"
	PhaseEnded      Phase = "ended"
)

// RoundState tracks one play session. Score is monotonically
// non-decreasing within a round; misses reset the combo and lower
// accuracy but never subtract points.
type RoundState struct {
	RoundID         string
	StartTime       time.Time
	DurationSeconds int

	Score    int
	Combo    int
	ComboMax int

	HumanHits   int
	HumanMisses int
	Accuracy    float64 // hits / (hits + misses)
	HumanScore  float64

	AIHits  int
	AIScore float64

	Difficulty         model.Difficulty
	CollaborationCount int
}

// Store receives the final round record. Implemented by the
// persistence collaborator; the engine hands over a plain record and
// performs no hashing or storage itself.
type Store interface {
	SaveRound(ctx context.Context, rec model.RoundRecord) error
}

// Engine drives the scoring state machine.
type Engine struct {
	state RoundState
	phase Phase

	radius      float64
	matchWindow time.Duration
	duration    time.Duration

	startDifficulty model.Difficulty
	rates           map[model.Difficulty]float64
	promoteAt       float64
	demoteAt        float64

	baseHitPoints int
	comboBonus    int
	collabBonus   int

	opponent Opponent
	rng      *rand.Rand
	store    Store

	usernameHash string
	deviceType   string

	lastAccuracy float64
	hasHistory   bool

	logger logger.Logger
	now    func() time.Time
}

// NewEngine creates a scoring engine writing completed rounds to store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		phase:           PhaseNotStarted,
		radius:          defaultMatchRadius,
		matchWindow:     defaultMatchWindow,
		duration:        defaultRoundDuration,
		startDifficulty: model.DifficultyMedium,
		rates:           defaultRates(),
		promoteAt:       defaultPromoteAt,
		demoteAt:        defaultDemoteAt,
		baseHitPoints:   defaultBaseHitPoints,
		comboBonus:      defaultComboBonus,
		collabBonus:     defaultCollabBonus,
		opponent:        NewRateOpponent(),
		rng:             rand.New(rand.NewSource(defaultScoringSeed)), //nolint:gosec // deterministic opponent sampling, not crypto
		store:           store,
		usernameHash:    "anonymous",
		deviceType:      "desktop",
		logger:          logger.Get().Named("scoring"),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Phase returns the current round phase.
func (e *Engine) Phase() Phase { return e.phase }

// State returns a copy of the current round state.
func (e *Engine) State() RoundState { return e.state }

// StartRound transitions NotStarted/Ended -> Running. Difficulty
// adapts from the previous completed round's accuracy before the new
// round begins.
func (e *Engine) StartRound(ctx context.Context) error {
	if e.phase == PhaseRunning {
		return ErrRoundRunning
	}

	difficulty := e.startDifficulty
	if e.hasHistory {
		difficulty = e.adaptDifficulty(e.state.Difficulty)
	}

	e.state = RoundState{
		RoundID:         uuid.NewString(),
		StartTime:       e.now(),
		DurationSeconds: int(e.duration / time.Second),
		Difficulty:      difficulty,
	}
	e.phase = PhaseRunning

	metrics.UpdateRoundScore(0)
	metrics.UpdateDifficulty(difficulty.Level())
	e.logger.Info(ctx, "round started",
		logger.String("roundID", e.state.RoundID),
		logger.String("difficulty", string(difficulty)),
	)
	return nil
}

// Tick scores one frame: the opponent samples the merged ground
// truth, then each click is matched against it. Ends the round once
// the configured duration has elapsed.
func (e *Engine) Tick(ctx context.Context, tickTime time.Time, merged []model.MergedDetection, clicks []model.ClickEvent) error {
	if e.phase != PhaseRunning {
		return ErrRoundNotRunning
	}

	rate := e.rates[e.state.Difficulty]
	aiClaims := e.opponent.Sample(e.rng, merged, rate)
	claimed := make(map[int]struct{}, len(aiClaims))
	for _, idx := range aiClaims {
		if idx >= 0 && idx < len(merged) {
			claimed[idx] = struct{}{}
		}
	}
	e.state.AIHits += len(claimed)
	e.state.AIScore += float64(len(claimed) * aiPointsPerHit)

	tickMs := tickTime.UnixMilli()
	windowMs := e.matchWindow.Milliseconds()

	for _, click := range clicks {
		if delta := tickMs - click.TimestampMs; delta < -windowMs || delta > windowMs {
			e.miss(ctx, click)
			continue
		}
		idx, ok := nearestWithin(click, merged, e.radius)
		if !ok {
			e.miss(ctx, click)
			continue
		}
		e.hit(ctx, idx, claimed)
	}

	e.state.Accuracy = accuracy(e.state.HumanHits, e.state.HumanMisses)
	metrics.UpdateRoundScore(e.state.Score)

	if tickTime.Sub(e.state.StartTime) >= e.duration {
		return e.finish(ctx)
	}
	return nil
}

// hit applies one matched click: combo scoring plus a collaboration
// bonus when the opponent claimed the same detection this window.
func (e *Engine) hit(ctx context.Context, idx int, claimed map[int]struct{}) {
	e.state.HumanHits++
	e.state.Combo++
	if e.state.Combo > e.state.ComboMax {
		e.state.ComboMax = e.state.Combo
	}

	points := e.baseHitPoints + e.comboBonus*(e.state.Combo-1)
	if _, both := claimed[idx]; both {
		points += e.collabBonus
		e.state.CollaborationCount++
		metrics.RecordCollaboration()
	}
	e.state.Score += points
	e.state.HumanScore += float64(points)
	metrics.RecordHit()
}

func (e *Engine) miss(ctx context.Context, click model.ClickEvent) {
	e.state.HumanMisses++
	e.state.Combo = 0
	metrics.RecordMiss()
	e.logger.Debug(ctx, "click missed",
		logger.Float64("x", click.X),
		logger.Float64("y", click.Y),
	)
}

// finish persists the final record and transitions to Ended.
func (e *Engine) finish(ctx context.Context) error {
	rec := model.RoundRecord{
		UsernameHash:   e.usernameHash,
		Points:         e.state.Score,
		AIScore:        e.state.AIScore,
		HumanScore:     e.state.HumanScore,
		Collaborations: e.state.CollaborationCount,
		Timestamp:      e.now(),
		DeviceType:     e.deviceType,
	}

	e.phase = PhaseEnded
	e.lastAccuracy = e.state.Accuracy
	e.hasHistory = true
	metrics.RecordRoundCompleted()

	e.logger.Info(ctx, "round ended",
		logger.String("roundID", e.state.RoundID),
		logger.Int("score", e.state.Score),
		logger.Float64("accuracy", e.state.Accuracy),
		logger.Int("collaborations", e.state.CollaborationCount),
	)

	if e.store == nil {
		return nil
	}
	if err := e.store.SaveRound(ctx, rec); err != nil {
		e.logger.Error(ctx, "round record not persisted", logger.Error(err))
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

// Abort ends the round without persisting anything; in-flight partial
// results are discarded and do not feed difficulty adaptation.
func (e *Engine) Abort(ctx context.Context) {
	if e.phase != PhaseRunning {
		return
	}
	e.phase = PhaseEnded
	e.logger.Info(ctx, "round aborted", logger.String("roundID", e.state.RoundID))
}

// adaptDifficulty promotes or demotes based on the accumulated human
// accuracy of the previous round.
func (e *Engine) adaptDifficulty(current model.Difficulty) model.Difficulty {
	switch {
	case e.lastAccuracy >= e.promoteAt:
		return current.Promote()
	case e.lastAccuracy < e.demoteAt:
		return current.Demote()
	default:
		return current
	}
}

// nearestWithin returns the index of the closest merged detection
// within radius of the click.
func nearestWithin(click model.ClickEvent, merged []model.MergedDetection, radius float64) (int, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, m := range merged {
		dx := m.X - click.X
		dy := m.Y - click.Y
		d := math.Sqrt(dx*dx + dy*dy)
		if d <= radius && d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, best >= 0
}

func accuracy(hits, misses int) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
