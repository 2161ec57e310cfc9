package detect

import (
	"context"
	"math"

	"github.com/okian/rainstream/internal/adapters/frames"
	"github.com/okian/rainstream/internal/domain/model"
)

// Default contour detector configuration constants.
const (
	defaultGradientThreshold = 0.12
	defaultMinContourSize    = 12
)

// ContourDetector finds brightness-gradient boundaries and fits an
// enclosing circle per boundary group.
type ContourDetector struct {
	gradientThreshold float64
	minClusterSize    int
}

// ContourOption applies a configuration option to the ContourDetector.
type ContourOption func(*ContourDetector)

// WithGradientThreshold sets the edge-magnitude cutoff (0-1).
func WithGradientThreshold(threshold float64) ContourOption {
	return func(d *ContourDetector) {
		d.gradientThreshold = clamp01(threshold)
	}
}

// WithMinContourSize filters sparse or noisy edge groups before a
// detection is emitted.
func WithMinContourSize(size int) ContourOption {
	return func(d *ContourDetector) {
		if size > 0 {
			d.minClusterSize = size
		}
	}
}

// NewContourDetector creates an edge-contour detector.
func NewContourDetector(opts ...ContourOption) *ContourDetector {
	d := &ContourDetector{
		gradientThreshold: defaultGradientThreshold,
		minClusterSize:    defaultMinContourSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Source identifies this detector.
func (d *ContourDetector) Source() model.Source { return model.SourceContour }

// Detect thresholds the finite-difference gradient magnitude into edge
// pixels, groups them 8-connected, and fits an enclosing circle per
// group. Confidence scales with edge density against the fitted
// circle's circumference, clamped to [0,1].
func (d *ContourDetector) Detect(ctx context.Context, g *frames.Grid) ([]model.Detection, error) {
	width, height := g.Width(), g.Height()
	if width < 3 || height < 3 {
		return nil, nil
	}

	edges := make([]bool, width*height)
	for y := 1; y < height-1; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 1; x < width-1; x++ {
			gx := (g.At(x+1, y) - g.At(x-1, y)) / 2
			gy := (g.At(x, y+1) - g.At(x, y-1)) / 2
			if math.Sqrt(gx*gx+gy*gy) > d.gradientThreshold {
				edges[y*width+x] = true
			}
		}
	}

	visited := make([]bool, width*height)
	var out []model.Detection

	for y := 1; y < height-1; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 1; x < width-1; x++ {
			idx := y*width + x
			if !edges[idx] || visited[idx] {
				continue
			}
			det, ok := traceContour(edges, visited, width, height, x, y, d.minClusterSize)
			if ok {
				out = append(out, det)
			}
		}
	}
	return out, nil
}

// traceContour flood-fills one connected edge group and fits its
// enclosing circle.
func traceContour(edges, visited []bool, width, height, sx, sy, minSize int) (model.Detection, bool) {
	type point struct{ x, y int }
	stack := []point{{sx, sy}}
	visited[sy*width+sx] = true

	var points []point
	var sumX, sumY float64

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		points = append(points, p)
		sumX += float64(p.x)
		sumY += float64(p.y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.x+dx, p.y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				nidx := ny*width + nx
				if !edges[nidx] || visited[nidx] {
					continue
				}
				visited[nidx] = true
				stack = append(stack, point{nx, ny})
			}
		}
	}

	if len(points) < minSize {
		return model.Detection{}, false
	}

	cx := sumX / float64(len(points))
	cy := sumY / float64(len(points))

	var maxDistSq float64
	for _, p := range points {
		dx := float64(p.x) - cx
		dy := float64(p.y) - cy
		if distSq := dx*dx + dy*dy; distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	radius := math.Sqrt(maxDistSq)
	if radius < 1 {
		radius = 1
	}

	// An ideal circular boundary traced with a two-pixel-wide gradient
	// band yields about 4*pi*r edge pixels.
	conf := clamp01(float64(len(points)) / (4 * math.Pi * radius))

	return model.Detection{
		X:          cx,
		Y:          cy,
		Radius:     radius,
		Confidence: conf,
		Source:     model.SourceContour,
	}, true
}
