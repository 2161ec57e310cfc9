// Package frames supplies pixel snapshots to the detection pipeline.
//
// A Grid is a read-only brightness snapshot of one frame. Sources
// produce one Grid per tick; a source that has no data (paused or
// ended input) reports ok=false and the pipeline skips the tick.
package frames

import "context"

// Grid is an immutable 2-D brightness snapshot. Samples are row-major
// float64 values in [0,1].
type Grid struct {
	width  int
	height int
	pix    []float64
}

// NewGrid wraps the given samples. The slice is owned by the Grid
// afterwards; callers must not mutate it. len(pix) must equal
// width*height.
func NewGrid(width, height int, pix []float64) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if len(pix) != width*height {
		p := make([]float64, width*height)
		copy(p, pix)
		pix = p
	}
	return &Grid{width: width, height: height, pix: pix}
}

// Width returns the frame width in samples.
func (g *Grid) Width() int { return g.width }

// Height returns the frame height in samples.
func (g *Grid) Height() int { return g.height }

// At returns the brightness at (x, y), or 0 for out-of-range
// coordinates.
func (g *Grid) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return 0
	}
	return g.pix[y*g.width+x]
}

// Contains reports whether the point lies inside the frame.
func (g *Grid) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x < float64(g.width) && y < float64(g.height)
}

// Source supplies one immutable snapshot per tick.
type Source interface {
	// Snapshot returns the current frame and advances the source.
	// ok=false means no data is available (paused or ended input);
	// the pipeline treats that as a skipped tick, not an error.
	Snapshot(ctx context.Context) (*Grid, bool)
}
