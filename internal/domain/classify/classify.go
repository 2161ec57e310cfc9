// Package classify derives aggregate spatial statistics and a
// categorical pattern label from one frame's merged detections.
//
// The classifier is a pure function of its inputs: no hidden state,
// identical inputs always produce identical FrameMetrics. Threshold
// bands and labels come from configuration, not hardcoded physics.
package classify

import (
	"math"

	"github.com/okian/rainstream/internal/domain/model"
)

// Default classifier configuration constants.
const (
	defaultBucketCols     = 8
	defaultBucketRows     = 6
	defaultHighClustering = 0.6
	defaultLowClustering  = 0.25
)

// CountBands maps merged-count upper bounds to labels, low to high.
// A count below IsolatedMax is ISOLATED, below SparseMax is SPARSE,
// and so on; zero is always EMPTY and anything at or above DenseMax is
// STORM.
type CountBands struct {
	IsolatedMax  int
	SparseMax    int
	ScatteredMax int
	ClusteredMax int
	DenseMax     int
}

// DefaultCountBands returns the stock band boundaries.
func DefaultCountBands() CountBands {
	return CountBands{
		IsolatedMax:  3,
		SparseMax:    10,
		ScatteredMax: 25,
		ClusteredMax: 50,
		DenseMax:     100,
	}
}

// Classifier computes FrameMetrics from a merged detection list.
type Classifier struct {
	bucketCols     int
	bucketRows     int
	bands          CountBands
	highClustering float64
	lowClustering  float64
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithBucketGrid sets the coarse grid used for the entropy measure.
func WithBucketGrid(cols, rows int) Option {
	return func(c *Classifier) {
		if cols > 0 && rows > 0 {
			c.bucketCols = cols
			c.bucketRows = rows
		}
	}
}

// WithCountBands sets the label band boundaries.
func WithCountBands(bands CountBands) Option {
	return func(c *Classifier) {
		if bands.IsolatedMax > 0 &&
			bands.SparseMax >= bands.IsolatedMax &&
			bands.ScatteredMax >= bands.SparseMax &&
			bands.ClusteredMax >= bands.ScatteredMax &&
			bands.DenseMax >= bands.ClusteredMax {
			c.bands = bands
		}
	}
}

// WithClusteringSplit sets the clustering-index thresholds that split
// high-count frames between clustered and scattered labels.
func WithClusteringSplit(low, high float64) Option {
	return func(c *Classifier) {
		if low >= 0 && high <= 1 && low <= high {
			c.lowClustering = low
			c.highClustering = high
		}
	}
}

// New creates a classifier with default bands.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		bucketCols:     defaultBucketCols,
		bucketRows:     defaultBucketRows,
		bands:          DefaultCountBands(),
		highClustering: defaultHighClustering,
		lowClustering:  defaultLowClustering,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify computes the frame metrics for one merged detection list.
// All outputs are finite and clamped to their documented ranges.
func (c *Classifier) Classify(frameIndex int, timestampMs int64, perSource map[model.Source]int, merged []model.MergedDetection, width, height float64) model.FrameMetrics {
	counts := make(map[model.Source]int, len(perSource))
	for src, n := range perSource {
		counts[src] = n
	}

	fm := model.FrameMetrics{
		FrameIndex:      frameIndex,
		TimestampMs:     timestampMs,
		PerSourceCounts: counts,
		MergedCount:     len(merged),
	}

	if len(merged) == 0 {
		fm.PatternLabel = model.PatternEmpty
		return fm
	}

	var sumR float64
	for _, m := range merged {
		sumR += m.Radius
	}
	fm.AvgRadius = sumR / float64(len(merged))

	fm.ClusteringIndex = clusteringIndex(merged, width, height)
	fm.Entropy = bucketEntropy(merged, width, height, c.bucketCols, c.bucketRows)
	fm.PatternLabel = c.label(len(merged), fm.ClusteringIndex)
	return fm
}

// label maps (count, clusteringIndex) onto the configured bands. At
// high counts a strong clustering index promotes the label one band
// and a weak one demotes to SCATTERED.
func (c *Classifier) label(count int, clustering float64) model.PatternLabel {
	var base model.PatternLabel
	switch {
	case count == 0:
		return model.PatternEmpty
	case count < c.bands.IsolatedMax:
		return model.PatternIsolated
	case count < c.bands.SparseMax:
		return model.PatternSparse
	case count < c.bands.ScatteredMax:
		base = model.PatternScattered
	case count < c.bands.ClusteredMax:
		base = model.PatternClustered
	case count < c.bands.DenseMax:
		base = model.PatternDense
	default:
		return model.PatternStorm
	}

	if clustering >= c.highClustering {
		switch base {
		case model.PatternScattered:
			return model.PatternClustered
		case model.PatternClustered:
			return model.PatternDense
		case model.PatternDense:
			return model.PatternStorm
		}
	}
	if clustering < c.lowClustering {
		return model.PatternScattered
	}
	return base
}

// clusteringIndex measures how unevenly detections are distributed:
// the mean nearest-neighbor distance relative to the expectation for a
// uniform random layout, inverted so higher means more clustered.
// Fewer than two detections yield 0.
func clusteringIndex(merged []model.MergedDetection, width, height float64) float64 {
	n := len(merged)
	if n < 2 || width <= 0 || height <= 0 {
		return 0
	}

	var sumNN float64
	for i := range merged {
		best := math.Inf(1)
		for j := range merged {
			if i == j {
				continue
			}
			dx := merged[i].X - merged[j].X
			dy := merged[i].Y - merged[j].Y
			if d := dx*dx + dy*dy; d < best {
				best = d
			}
		}
		sumNN += math.Sqrt(best)
	}
	meanNN := sumNN / float64(n)

	// Expected nearest-neighbor distance for n uniform points.
	expected := 0.5 * math.Sqrt(width*height/float64(n))
	if expected <= 0 {
		return 0
	}

	return clamp01(1 - meanNN/expected)
}

// bucketEntropy is the Shannon entropy of detection counts over a
// coarse bucket grid, normalized by the maximum possible entropy for
// that bucket count. 0 means all detections share a bucket, 1 means a
// perfectly even spread.
func bucketEntropy(merged []model.MergedDetection, width, height float64, cols, rows int) float64 {
	n := len(merged)
	if n == 0 || cols*rows < 2 || width <= 0 || height <= 0 {
		return 0
	}

	counts := make([]int, cols*rows)
	for _, m := range merged {
		bx := int(m.X / width * float64(cols))
		by := int(m.Y / height * float64(rows))
		bx = clampIndex(bx, cols)
		by = clampIndex(by, rows)
		counts[by*cols+bx]++
	}

	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		h -= p * math.Log(p)
	}
	return clamp01(h / math.Log(float64(cols*rows)))
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
