// Package detect contains the per-frame detection heuristics and the
// runner that executes them.
//
// Each detector is a pure function of the frame snapshot: it holds
// configuration but no per-frame state, so the three detectors can run
// in parallel with a join barrier before the merge engine. A detector
// that fails or overruns its budget contributes an empty result for
// that frame; the pipeline never aborts on a single detector.
package detect

import (
	"context"
	"sync"
	"time"

	"github.com/okian/rainstream/internal/adapters/frames"
	"github.com/okian/rainstream/internal/domain/model"
	"github.com/okian/rainstream/pkg/logger"
	"github.com/okian/rainstream/pkg/metrics"
)

// Default runner configuration constants.
const (
	defaultDetectorTimeout = 50 * time.Millisecond
)

// Detector produces candidate circular features for one frame.
type Detector interface {
	// Source identifies the algorithm for merge support counting.
	Source() model.Source

	// Detect scans the snapshot and returns zero or more detections.
	// Degenerate input (empty or uniform frame) yields an empty list,
	// not an error.
	Detect(ctx context.Context, g *frames.Grid) ([]model.Detection, error)
}

// Set runs a group of detectors in parallel against one snapshot.
type Set struct {
	detectors []Detector
	timeout   time.Duration
	logger    logger.Logger
}

// SetOption applies a configuration option to the Set.
type SetOption func(*Set)

// WithTimeout bounds each detector's per-frame run.
func WithTimeout(timeout time.Duration) SetOption {
	return func(s *Set) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets a custom logger for the Set.
func WithLogger(l logger.Logger) SetOption {
	return func(s *Set) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSet creates a runner over the given detectors.
func NewSet(detectors []Detector, opts ...SetOption) *Set {
	s := &Set{
		detectors: detectors,
		timeout:   defaultDetectorTimeout,
		logger:    logger.Get().Named("detect"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every detector against the snapshot and joins before
// returning. The result always holds one entry per detector source; a
// detector that panicked, errored, or timed out maps to an empty
// slice.
func (s *Set) Run(ctx context.Context, g *frames.Grid) map[model.Source][]model.Detection {
	results := make(map[model.Source][]model.Detection, len(s.detectors))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, d := range s.detectors {
		wg.Add(1)
		go func(d Detector) {
			defer wg.Done()
			dets := s.runOne(ctx, d, g)
			mu.Lock()
			results[d.Source()] = dets
			mu.Unlock()
		}(d)
	}
	wg.Wait()
	return results
}

// runOne executes a single detector with panic recovery and a time
// budget. Failure of any kind degrades to an empty result.
func (s *Set) runOne(ctx context.Context, d Detector, g *frames.Grid) []model.Detection {
	source := string(d.Source())
	start := time.Now()

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resCh := make(chan []model.Detection, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(ctx, "detector panicked",
					logger.String("source", source),
					logger.Any("panic", r),
				)
				metrics.RecordDetectorFailure(source)
				resCh <- nil
			}
		}()
		dets, err := d.Detect(dctx, g)
		if err != nil {
			s.logger.Warn(ctx, "detector failed",
				logger.String("source", source),
				logger.Error(err),
			)
			metrics.RecordDetectorFailure(source)
			resCh <- nil
			return
		}
		resCh <- dets
	}()

	select {
	case dets := <-resCh:
		metrics.RecordDetectLatency(source, float64(time.Since(start).Milliseconds()))
		metrics.RecordDetections(source, len(dets))
		return dets
	case <-dctx.Done():
		s.logger.Warn(ctx, "detector timed out", logger.String("source", source))
		metrics.RecordDetectorFailure(source)
		return nil
	}
}

// clamp01 bounds a value to [0,1]; every confidence leaving this
// package goes through it.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
