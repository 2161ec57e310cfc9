package detect

import (
	"context"
	"math"
	"sync"

	"github.com/okian/rainstream/internal/adapters/frames"
	"github.com/okian/rainstream/internal/domain/model"
)

// Default Hough detector configuration constants.
const (
	defaultVoteThresholdFrac = 0.6
	houghAngleStepDeg        = 10
	houghMaximaWindow        = 5
)

// defaultHoughRadii is the candidate radius set voted on when none is
// configured.
var defaultHoughRadii = []int{6, 10, 14, 18, 24} //nolint:gochecknoglobals // immutable default

// HoughDetector votes qualifying bright pixels into an accumulator
// over candidate circle centers, one accumulator per candidate radius.
// This is the most compute-heavy detector; radius bands are
// independent and run in parallel.
type HoughDetector struct {
	sensitivity   float64
	radii         []int
	voteThreshold float64 // fraction of circumference points required
}

// HoughOption applies a configuration option to the HoughDetector.
type HoughOption func(*HoughDetector)

// WithHoughSensitivity sets the brightness threshold (0-1) a pixel
// must exceed to cast votes.
func WithHoughSensitivity(sensitivity float64) HoughOption {
	return func(d *HoughDetector) {
		d.sensitivity = clamp01(sensitivity)
	}
}

// WithHoughRadii sets the fixed candidate radius set.
func WithHoughRadii(radii []int) HoughOption {
	return func(d *HoughDetector) {
		if len(radii) > 0 {
			d.radii = append([]int(nil), radii...)
		}
	}
}

// WithVoteThreshold sets the fraction of circumference points that
// must vote for a center (0-1).
func WithVoteThreshold(frac float64) HoughOption {
	return func(d *HoughDetector) {
		d.voteThreshold = clamp01(frac)
	}
}

// NewHoughDetector creates a parametric-circle detector.
func NewHoughDetector(opts ...HoughOption) *HoughDetector {
	d := &HoughDetector{
		sensitivity:   defaultSensitivity,
		radii:         defaultHoughRadii,
		voteThreshold: defaultVoteThresholdFrac,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Source identifies this detector.
func (d *HoughDetector) Source() model.Source { return model.SourceHough }

// Detect runs circle voting for every candidate radius. Local maxima
// above the vote threshold become detections; confidence is the
// normalized vote count.
func (d *HoughDetector) Detect(ctx context.Context, g *frames.Grid) ([]model.Detection, error) {
	width, height := g.Width(), g.Height()
	if width == 0 || height == 0 {
		return nil, nil
	}

	// Collect voting pixels once; every radius band reads the same set.
	type point struct{ x, y int }
	var bright []point
	for y := 0; y < height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < width; x++ {
			if g.At(x, y) > d.sensitivity {
				bright = append(bright, point{x, y})
			}
		}
	}
	if len(bright) == 0 {
		return nil, nil
	}

	perRadius := make([][]model.Detection, len(d.radii))
	var wg sync.WaitGroup

	for i, radius := range d.radii {
		wg.Add(1)
		go func(i, radius int) {
			defer wg.Done()

			acc := make([]int, width*height)
			for _, p := range bright {
				for angle := 0; angle < 360; angle += houghAngleStepDeg {
					rad := float64(angle) * math.Pi / 180
					cx := p.x - int(math.Round(float64(radius)*math.Cos(rad)))
					cy := p.y - int(math.Round(float64(radius)*math.Sin(rad)))
					if cx >= 0 && cx < width && cy >= 0 && cy < height {
						acc[cy*width+cx]++
					}
				}
			}

			threshold := int(d.voteThreshold * float64(2*radius))
			if threshold < 1 {
				threshold = 1
			}
			perRadius[i] = collectMaxima(acc, width, height, radius, threshold)
		}(i, radius)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []model.Detection
	for _, dets := range perRadius {
		out = append(out, dets...)
	}
	return out, nil
}

// collectMaxima scans the accumulator for local maxima above the vote
// threshold and converts them to detections.
func collectMaxima(acc []int, width, height, radius, threshold int) []model.Detection {
	var out []model.Detection
	w := houghMaximaWindow

	for y := radius; y < height-radius; y++ {
		for x := radius; x < width-radius; x++ {
			votes := acc[y*width+x]
			if votes < threshold {
				continue
			}
			isMax := true
			for dy := -w; dy <= w && isMax; dy++ {
				for dx := -w; dx <= w && isMax; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					ny, nx := y+dy, x+dx
					if ny >= 0 && ny < height && nx >= 0 && nx < width && acc[ny*width+nx] > votes {
						isMax = false
					}
				}
			}
			if isMax {
				out = append(out, model.Detection{
					X:          float64(x),
					Y:          float64(y),
					Radius:     float64(radius),
					Confidence: clamp01(float64(votes) / float64(2*radius)),
					Source:     model.SourceHough,
				})
			}
		}
	}
	return out
}
