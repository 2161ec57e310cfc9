// Package merge deduplicates the detectors' outputs into one ranked
// candidate list per frame.
//
// Grouping is transitive and order-independent: detections whose
// centers lie within the merge radius share a group, chains of such
// pairs collapse into a single group, and the final grouping does not
// depend on the order detections arrive in. That order invariance is
// the key correctness property of this package. Collapsed centers are
// re-grouped until no two sit within the radius, so merging its own
// output is a no-op.
package merge

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/okian/rainstream/internal/domain/model"
	"github.com/okian/rainstream/pkg/metrics"
)

// Default merge configuration constants.
const (
	defaultMergeRadius    = 30.0
	defaultAgreementBoost = 0.15
)

// Engine merges raw detections into MergedDetections.
type Engine struct {
	radius float64
	boost  float64 // confidence multiplier per extra agreeing source
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRadius sets the center distance within which detections merge.
func WithRadius(radius float64) Option {
	return func(e *Engine) {
		if radius > 0 {
			e.radius = radius
		}
	}
}

// WithAgreementBoost sets the per-source confidence boost applied when
// multiple detectors agree. Combined confidence never exceeds 1.
func WithAgreementBoost(boost float64) Option {
	return func(e *Engine) {
		if boost >= 0 {
			e.boost = boost
		}
	}
}

// New creates a merge engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		radius: defaultMergeRadius,
		boost:  defaultAgreementBoost,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Radius returns the configured merge radius.
func (e *Engine) Radius() float64 { return e.radius }

// Merge collapses the per-source detection lists for one frame into a
// deduplicated list sorted by descending confidence (ties: larger
// support count, then position). A missing or empty source simply
// contributes nothing.
func (e *Engine) Merge(ctx context.Context, bySource map[model.Source][]model.Detection) []model.MergedDetection {
	start := time.Now()
	defer func() {
		metrics.RecordMergeLatency(float64(time.Since(start).Milliseconds()))
	}()

	var all []model.Detection
	for _, src := range model.Sources() {
		all = append(all, bySource[src]...)
	}
	if len(all) == 0 {
		metrics.UpdateMergedCount(0)
		return nil
	}

	// Canonical input order makes the floating-point accumulation
	// below identical for any permutation of the inputs.
	sort.Slice(all, func(i, j int) bool {
		if all[i].X != all[j].X {
			return all[i].X < all[j].X
		}
		if all[i].Y != all[j].Y {
			return all[i].Y < all[j].Y
		}
		return all[i].Source < all[j].Source
	})

	uf := newUnionFind(len(all))
	radiusSq := e.radius * e.radius
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			dx := all[i].X - all[j].X
			dy := all[i].Y - all[j].Y
			if dx*dx+dy*dy <= radiusSq {
				uf.union(i, j)
			}
		}
	}

	// A chained group's centroid can drift to within the radius of
	// another group's centroid even though no raw pair crossed it.
	// Re-group over the collapsed centers until no two remain that
	// close: every output pair ends up farther apart than the radius,
	// and feeding the output back through Merge leaves it unchanged.
	groups := groupsOf(uf, all)
	var merged []model.MergedDetection
	for {
		roots := make([]int, 0, len(groups))
		for root := range groups {
			roots = append(roots, root)
		}
		sort.Ints(roots)

		centers := make(map[int]model.MergedDetection, len(roots))
		for root, members := range groups {
			centers[root] = e.collapse(members)
		}

		changed := false
		for i := 0; i < len(roots); i++ {
			for j := i + 1; j < len(roots); j++ {
				a, b := centers[roots[i]], centers[roots[j]]
				dx := a.X - b.X
				dy := a.Y - b.Y
				if dx*dx+dy*dy <= radiusSq {
					uf.union(roots[i], roots[j])
					changed = true
				}
			}
		}
		if !changed {
			merged = make([]model.MergedDetection, 0, len(roots))
			for _, root := range roots {
				merged = append(merged, centers[root])
			}
			break
		}
		groups = groupsOf(uf, all)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		if merged[i].SupportCount != merged[j].SupportCount {
			return merged[i].SupportCount > merged[j].SupportCount
		}
		if merged[i].X != merged[j].X {
			return merged[i].X < merged[j].X
		}
		return merged[i].Y < merged[j].Y
	})

	metrics.UpdateMergedCount(len(merged))
	return merged
}

// groupsOf rebuilds the member lists per union-find root, members in
// canonical order.
func groupsOf(uf *unionFind, all []model.Detection) map[int][]model.Detection {
	groups := make(map[int][]model.Detection)
	for i, d := range all {
		root := uf.find(i)
		groups[root] = append(groups[root], d)
	}
	return groups
}

// collapse reduces one group to a single merged detection: a
// confidence-weighted average position and radius, a combined
// confidence bounded by 1, and the count of distinct contributing
// sources.
func (e *Engine) collapse(members []model.Detection) model.MergedDetection {
	var sumW, sumX, sumY, sumR, sumWC float64
	sources := make(map[model.Source]struct{}, 3)

	for _, m := range members {
		w := m.Confidence
		if w <= 0 {
			w = 1e-6
		}
		sumW += w
		sumX += w * m.X
		sumY += w * m.Y
		sumR += w * m.Radius
		sumWC += w * m.Confidence
		sources[m.Source] = struct{}{}
	}

	support := len(sources)
	if support < 1 {
		support = 1
	}

	conf := sumWC / sumW
	conf *= 1 + e.boost*float64(support-1)
	conf = math.Min(conf, 1)
	if conf < 0 || math.IsNaN(conf) {
		conf = 0
	}

	return model.MergedDetection{
		X:            sumX / sumW,
		Y:            sumY / sumW,
		Radius:       sumR / sumW,
		Confidence:   conf,
		SupportCount: support,
	}
}

// unionFind is a weighted quick-union with path compression.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}
