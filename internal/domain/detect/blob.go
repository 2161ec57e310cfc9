package detect

import (
	"context"
	"math"

	"github.com/okian/rainstream/internal/adapters/frames"
	"github.com/okian/rainstream/internal/domain/model"
)

// Default blob detector configuration constants.
const (
	defaultSensitivity = 0.5
	defaultMinArea     = 20
	defaultMaxArea     = 5000
	defaultClusterCap  = 48.0
)

// BlobDetector clusters bright pixels into candidate circles.
// Pixels above the sensitivity threshold are grouped by 8-connected
// flood fill; each cluster inside the area bounds becomes one
// detection.
type BlobDetector struct {
	sensitivity float64
	minArea     int
	maxArea     int
	clusterCap  float64 // max flood-fill distance from the seed pixel
}

// BlobOption applies a configuration option to the BlobDetector.
type BlobOption func(*BlobDetector)

// WithBlobSensitivity sets the brightness threshold (0-1).
func WithBlobSensitivity(sensitivity float64) BlobOption {
	return func(d *BlobDetector) {
		d.sensitivity = clamp01(sensitivity)
	}
}

// WithBlobArea bounds accepted cluster sizes in pixels. Clusters below
// minArea are noise; clusters above maxArea are sheets of glare, not
// drops.
func WithBlobArea(minArea, maxArea int) BlobOption {
	return func(d *BlobDetector) {
		if minArea > 0 && maxArea >= minArea {
			d.minArea = minArea
			d.maxArea = maxArea
		}
	}
}

// WithBlobClusterCap caps flood-fill growth from the seed pixel.
func WithBlobClusterCap(radius float64) BlobOption {
	return func(d *BlobDetector) {
		if radius > 0 {
			d.clusterCap = radius
		}
	}
}

// NewBlobDetector creates an intensity-blob detector.
func NewBlobDetector(opts ...BlobOption) *BlobDetector {
	d := &BlobDetector{
		sensitivity: defaultSensitivity,
		minArea:     defaultMinArea,
		maxArea:     defaultMaxArea,
		clusterCap:  defaultClusterCap,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Source identifies this detector.
func (d *BlobDetector) Source() model.Source { return model.SourceBlob }

// Detect groups bright pixels into clusters and emits one detection
// per cluster. Radius comes from cluster extent, confidence from mean
// brightness above the threshold.
func (d *BlobDetector) Detect(ctx context.Context, g *frames.Grid) ([]model.Detection, error) {
	width, height := g.Width(), g.Height()
	if width == 0 || height == 0 {
		return nil, nil
	}

	visited := make([]bool, width*height)
	var out []model.Detection

	for y := 0; y < height; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < width; x++ {
			idx := y*width + x
			if visited[idx] || g.At(x, y) <= d.sensitivity {
				continue
			}
			det, ok := d.growCluster(g, visited, x, y)
			if ok {
				out = append(out, det)
			}
		}
	}
	return out, nil
}

// growCluster flood-fills the bright region seeded at (sx, sy) and
// reduces it to a detection. Growth stops at the cluster cap so one
// bright sheet cannot swallow the whole frame.
func (d *BlobDetector) growCluster(g *frames.Grid, visited []bool, sx, sy int) (model.Detection, bool) {
	width, height := g.Width(), g.Height()
	capSq := d.clusterCap * d.clusterCap

	type point struct{ x, y int }
	stack := []point{{sx, sy}}
	visited[sy*width+sx] = true

	var sumX, sumY, sumBright float64
	var points []point

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		points = append(points, p)
		sumX += float64(p.x)
		sumY += float64(p.y)
		sumBright += g.At(p.x, p.y)

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
				if visited[nidx] || g.At(nx, ny) <= d.sensitivity {
					continue
				}
				ddx := float64(nx - sx)
				ddy := float64(ny - sy)
				if ddx*ddx+ddy*ddy > capSq {
					continue
				}
				visited[nidx] = true
				stack = append(stack, point{nx, ny})
			}
		}
	}

	area := len(points)
	if area < d.minArea || area > d.maxArea {
		return model.Detection{}, false
	}

	cx := sumX / float64(area)
	cy := sumY / float64(area)

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

	meanBright := sumBright / float64(area)
	conf := clamp01((meanBright - d.sensitivity) / (1 - d.sensitivity + 1e-9))

	return model.Detection{
		X:          cx,
		Y:          cy,
		Radius:     radius,
		Confidence: conf,
		Source:     model.SourceBlob,
	}, true
}
