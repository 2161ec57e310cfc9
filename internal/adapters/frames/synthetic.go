package frames

import (
	"context"
	"math/rand"
)

// Default synthetic source configuration constants.
const (
	defaultSpawnEvery   = 3
	defaultDropSpeed    = 6.0
	defaultMinDropSize  = 5.0
	defaultMaxDropSize  = 12.0
	defaultSyntheticRNG = 42
)

// drop is one falling bright feature in the synthetic scene.
type drop struct {
	x, y   float64
	speed  float64
	radius float64
}

// SyntheticSource generates deterministic falling-drop frames. It
// stands in for live footage in demos and tests: bright circles on a
// dark background, spawning at the top edge and falling off the
// bottom.
type SyntheticSource struct {
	width      int
	height     int
	rng        *rand.Rand
	drops      []drop
	tick       int
	spawnEvery int
	speed      float64
	minRadius  float64
	maxRadius  float64
}

// SyntheticOption applies a configuration option to the SyntheticSource.
type SyntheticOption func(*SyntheticSource)

// WithSeed sets the random seed so frame sequences are reproducible.
func WithSeed(seed int64) SyntheticOption {
	return func(s *SyntheticSource) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic frames, not crypto
	}
}

// WithSpawnEvery sets how many ticks pass between new drops.
func WithSpawnEvery(n int) SyntheticOption {
	return func(s *SyntheticSource) {
		if n > 0 {
			s.spawnEvery = n
		}
	}
}

// WithDropSpeed sets the per-tick fall distance.
func WithDropSpeed(speed float64) SyntheticOption {
	return func(s *SyntheticSource) {
		if speed > 0 {
			s.speed = speed
		}
	}
}

// WithDropRadius sets the spawn radius range.
func WithDropRadius(minRadius, maxRadius float64) SyntheticOption {
	return func(s *SyntheticSource) {
		if minRadius > 0 && maxRadius >= minRadius {
			s.minRadius = minRadius
			s.maxRadius = maxRadius
		}
	}
}

// NewSyntheticSource creates a synthetic rain source of the given
// frame dimensions.
func NewSyntheticSource(width, height int, opts ...SyntheticOption) *SyntheticSource {
	s := &SyntheticSource{
		width:      width,
		height:     height,
		rng:        rand.New(rand.NewSource(defaultSyntheticRNG)), //nolint:gosec // deterministic frames, not crypto
		spawnEvery: defaultSpawnEvery,
		speed:      defaultDropSpeed,
		minRadius:  defaultMinDropSize,
		maxRadius:  defaultMaxDropSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot advances the scene one tick and renders it. A synthetic
// source never runs out of data.
func (s *SyntheticSource) Snapshot(ctx context.Context) (*Grid, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	default:
	}

	s.tick++
	if s.tick%s.spawnEvery == 0 {
		s.drops = append(s.drops, drop{
			x:      s.minRadius + s.rng.Float64()*(float64(s.width)-2*s.minRadius),
			y:      -s.maxRadius,
			speed:  s.speed,
			radius: s.minRadius + s.rng.Float64()*(s.maxRadius-s.minRadius),
		})
	}

	alive := s.drops[:0]
	for _, d := range s.drops {
		d.y += d.speed
		if d.y-d.radius < float64(s.height) {
			alive = append(alive, d)
		}
	}
	s.drops = alive

	pix := make([]float64, s.width*s.height)
	for _, d := range s.drops {
		renderDisc(pix, s.width, s.height, d)
	}
	return NewGrid(s.width, s.height, pix), true
}

// renderDisc paints a bright disc with a soft rim so the contour
// detector sees a gradient at the boundary.
func renderDisc(pix []float64, width, height int, d drop) {
	x0 := int(d.x - d.radius - 1)
	x1 := int(d.x + d.radius + 1)
	y0 := int(d.y - d.radius - 1)
	y1 := int(d.y + d.radius + 1)
	for y := max(y0, 0); y <= y1 && y < height; y++ {
		for x := max(x0, 0); x <= x1 && x < width; x++ {
			dx := float64(x) - d.x
			dy := float64(y) - d.y
			dist := dx*dx + dy*dy
			r2 := d.radius * d.radius
			if dist > r2 {
				continue
			}
			v := 1.0 - 0.25*(dist/r2)
			if v > pix[y*width+x] {
				pix[y*width+x] = v
			}
		}
	}
}
