// Package service wires the frame pipeline together: frame source,
// detector set, merge engine, classifier, click queue, scoring engine
// and leaderboard store, driven by a single tick loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rainstream/internal/adapters/frames"
	clickqueue "github.com/okian/rainstream/internal/adapters/mq/queue"
	"github.com/okian/rainstream/internal/adapters/repository"
	"github.com/okian/rainstream/internal/config"
	"github.com/okian/rainstream/internal/domain/classify"
	"github.com/okian/rainstream/internal/domain/detect"
	"github.com/okian/rainstream/internal/domain/merge"
	"github.com/okian/rainstream/internal/domain/model"
	"github.com/okian/rainstream/internal/domain/scoring"
	"github.com/okian/rainstream/pkg/logger"
	"github.com/okian/rainstream/pkg/metrics"
)

// Service implements the detection-and-scoring pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	source      frames.Source
	detectors   *detect.Set
	merger      *merge.Engine
	classifier  *classify.Classifier
	clickQueue  clickqueue.Queue
	scorer      *scoring.Engine
	leaderboard repository.Store

	// Configuration
	cfg      *config.Config
	opponent scoring.Opponent

	// State
	started    bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
	busy       atomic.Bool
	frameIndex atomic.Int64
	history    []model.FrameMetrics

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the pipeline configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithSource sets the frame source.
func WithSource(src frames.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithStore sets the leaderboard store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.leaderboard = store
		}
	}
}

// WithOpponent sets the scoring opponent strategy.
func WithOpponent(o scoring.Opponent) Option {
	return func(s *Service) {
		if o != nil {
			s.opponent = o
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the pipeline components and begins ticking.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	cfg := s.cfg
	s.logger.Info(ctx, "starting pipeline...")

	if s.source == nil {
		s.source = frames.NewSyntheticSource(cfg.FrameWidth, cfg.FrameHeight)
		s.logger.Info(ctx, "using synthetic frame source")
	}
	if s.leaderboard == nil {
		s.leaderboard = repository.NewTreapStore()
		s.logger.Info(ctx, "using treap store")
	}

	s.detectors = detect.NewSet(
		[]detect.Detector{
			detect.NewBlobDetector(
				detect.WithBlobSensitivity(cfg.Sensitivity),
				detect.WithBlobArea(cfg.MinArea, cfg.MaxArea),
				detect.WithBlobClusterCap(cfg.MaxClusterRadius),
			),
			detect.NewContourDetector(
				detect.WithGradientThreshold(cfg.GradientThreshold),
				detect.WithMinContourSize(cfg.MinClusterSize),
			),
			detect.NewHoughDetector(
				detect.WithHoughSensitivity(cfg.Sensitivity),
				detect.WithHoughRadii(cfg.HoughRadii),
				detect.WithVoteThreshold(cfg.HoughVoteThreshold),
			),
		},
		detect.WithTimeout(time.Duration(cfg.DetectorTimeoutMS)*time.Millisecond),
	)

	s.merger = merge.New(
		merge.WithRadius(cfg.MergeRadius),
	)

	s.classifier = classify.New(
		classify.WithBucketGrid(cfg.BucketCols, cfg.BucketRows),
		classify.WithCountBands(classify.CountBands{
			IsolatedMax:  cfg.IsolatedMax,
			SparseMax:    cfg.SparseMax,
			ScatteredMax: cfg.ScatteredMax,
			ClusteredMax: cfg.ClusteredMax,
			DenseMax:     cfg.DenseMax,
		}),
		classify.WithClusteringSplit(cfg.LowClustering, cfg.HighClustering),
	)

	s.clickQueue = clickqueue.NewInMemoryQueue(
		clickqueue.WithCapacity(cfg.ClickQueueSize),
	)

	scoringOpts := []scoring.Option{
		scoring.WithMatchRadius(cfg.MergeRadius),
		scoring.WithMatchWindow(time.Duration(cfg.MatchWindowMS) * time.Millisecond),
		scoring.WithRoundDuration(time.Duration(cfg.RoundDurationSec) * time.Second),
		scoring.WithDifficulty(model.Difficulty(cfg.Difficulty)),
		scoring.WithRates(map[model.Difficulty]float64{
			model.DifficultyEasy:   cfg.AIRates["easy"],
			model.DifficultyMedium: cfg.AIRates["medium"],
			model.DifficultyHard:   cfg.AIRates["hard"],
		}),
		scoring.WithAdaptThresholds(cfg.PromoteThreshold, cfg.DemoteThreshold),
		scoring.WithPlayer(cfg.UsernameHash, cfg.DeviceType),
	}
	if s.opponent != nil {
		scoringOpts = append(scoringOpts, scoring.WithOpponent(s.opponent))
	}
	s.scorer = scoring.NewEngine(s.leaderboard, scoringOpts...)

	s.wg.Add(1)
	go s.tickLoop(ctx, time.Duration(cfg.TickIntervalMS)*time.Millisecond)

	s.started = true
	s.logger.Info(ctx, "pipeline started",
		logger.Int("tickIntervalMS", cfg.TickIntervalMS),
		logger.Int("frameWidth", cfg.FrameWidth),
		logger.Int("frameHeight", cfg.FrameHeight),
		logger.String("difficulty", cfg.Difficulty),
	)
	return nil
}

// tickLoop drives Step at the configured cadence. A tick that arrives
// while the previous one is still processing drops its frame instead
// of queueing work.
func (s *Service) tickLoop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.busy.CompareAndSwap(false, true) {
				metrics.RecordFrameDropped()
				continue
			}
			if err := s.Step(ctx); err != nil && !errors.Is(err, ErrNotStarted) {
				s.logger.Error(ctx, "tick failed", logger.Error(err))
			}
			s.busy.Store(false)
		}
	}
}

// Step runs one full pipeline tick: snapshot a frame, detect, merge,
// classify, drain clicks and score. Exported so a single tick can be
// driven directly.
func (s *Service) Step(ctx context.Context) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	start := time.Now()
	defer func() {
		metrics.RecordTickLatency(float64(time.Since(start).Milliseconds()))
	}()

	grid, ok := s.source.Snapshot(ctx)
	if !ok || grid == nil {
		metrics.RecordFrameSkipped()
		return nil
	}

	if s.scorer.Phase() != scoring.PhaseRunning {
		if err := s.scorer.StartRound(ctx); err != nil {
			return fmt.Errorf("start round: %w", err)
		}
		s.mu.Lock()
		s.history = s.history[:0]
		s.mu.Unlock()
	}

	idx := int(s.frameIndex.Add(1) - 1)
	now := time.Now()

	bySource := s.detectors.Run(ctx, grid)
	merged := s.merger.Merge(ctx, bySource)

	counts := make(map[model.Source]int, len(bySource))
	for src, list := range bySource {
		counts[src] = len(list)
	}
	fm := s.classifier.Classify(idx, now.UnixMilli(), counts, merged,
		float64(grid.Width()), float64(grid.Height()))
	metrics.RecordPatternLabel(string(fm.PatternLabel))

	s.mu.Lock()
	s.history = append(s.history, fm)
	s.mu.Unlock()

	clicks := s.clickQueue.Drain(ctx)
	if err := s.scorer.Tick(ctx, now, merged, clicks); err != nil {
		return fmt.Errorf("score tick: %w", err)
	}

	metrics.RecordFrameProcessed()
	return nil
}

// SubmitClick validates and enqueues one player click. Clicks outside
// the frame bounds are rejected.
func (s *Service) SubmitClick(ctx context.Context, x, y float64, timestampMs int64) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	if x < 0 || y < 0 || x >= float64(s.cfg.FrameWidth) || y >= float64(s.cfg.FrameHeight) {
		metrics.RecordClickRejected()
		return fmt.Errorf("%w: (%.1f, %.1f)", ErrClickOutOfBounds, x, y)
	}
	if !s.clickQueue.Enqueue(ctx, clickqueue.Click{X: x, Y: y, TimestampMs: timestampMs}) {
		return ErrQueueFull
	}
	return nil
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// RoundState returns a copy of the current scoring state.
func (s *Service) RoundState() scoring.RoundState {
	return s.scorer.State()
}

// Metrics returns a copy of the FrameMetrics recorded this round.
func (s *Service) Metrics() []model.FrameMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.FrameMetrics, len(s.history))
	copy(out, s.history)
	return out
}

// LatestMetrics returns the most recent frame's metrics, if any.
func (s *Service) LatestMetrics() (model.FrameMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return model.FrameMetrics{}, false
	}
	return s.history[len(s.history)-1], true
}

// TopN returns the top N leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.leaderboard.TopN(ctx, n)
}

// Rank returns the leaderboard entry for a player.
func (s *Service) Rank(ctx context.Context, usernameHash string) (repository.Entry, error) {
	return s.leaderboard.Rank(ctx, usernameHash)
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping pipeline...")

	// Wait for the tick loop without holding the mutex: an in-flight
	// Step locks it to append history.
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()

	if s.scorer != nil {
		s.scorer.Abort(ctx)
	}
	if s.clickQueue != nil {
		_ = s.clickQueue.Close()
	}

	s.logger.Info(ctx, "pipeline stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"frameIndex": s.frameIndex.Load(),
	}
	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.clickQueue.Len(ctx)
		stats["totalPlayers"] = s.leaderboard.Count(ctx)
		stats["phase"] = string(s.scorer.Phase())
	}
	return stats
}
