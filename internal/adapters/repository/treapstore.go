// Package repository defines the round-record leaderboard store.
package repository

import (
	"context"
	"sync"

	"github.com/okian/rainstream/internal/domain/model"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: points DESC, then usernameHash ASC (deterministic).
// In-order traversal of the treap produces the leaderboard from best
// to worst. Each player keeps exactly one record; by default the
// latest completed round replaces the previous one.

// stored is the value kept per player.
type stored struct {
	points         int
	aiScore        float64
	humanScore     float64
	collaborations int
	deviceType     string
}

// treap node
type node struct {
	id     string
	points int
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aPoints, aID) ranks earlier than (bPoints, bID).
func less(aPoints int, aID string, bPoints int, bID string) bool {
	if aPoints != bPoints {
		return aPoints > bPoints // more points ranks earlier
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// pointsToPriority keeps higher scores near the treap root so TopN
// traversals touch fewer nodes.
func pointsToPriority(points int) uint64 {
	const offset = uint64(1) << 63
	return uint64(int64(points)) + offset
}

func insert(n *node, id string, points int) *node {
	if n == nil {
		return &node{id: id, points: points, prio: pointsToPriority(points), size: 1}
	}
	if less(points, id, n.points, n.id) {
		n.left = insert(n.left, id, points)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, points)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, points int) *node {
	if n == nil {
		return nil
	}
	if points == n.points && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, points)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, points)
		}
	} else if less(points, id, n.points, n.id) {
		n.left = deleteNode(n.left, id, points)
	} else {
		n.right = deleteNode(n.right, id, points)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, records map[string]stored, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, exists := records[n.id]; exists {
			*out = append(*out, Entry{
				UsernameHash:   n.id,
				Points:         rec.points,
				AIScore:        rec.aiScore,
				HumanScore:     rec.humanScore,
				Collaborations: rec.collaborations,
				DeviceType:     rec.deviceType,
			})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

// rankOf returns the 1-based in-order position of (points, id).
func rankOf(n *node, id string, points int) int {
	rank := 1
	for n != nil {
		if points == n.points && id == n.id {
			return rank + nsize(n.left)
		}
		if less(points, id, n.points, n.id) {
			n = n.left
		} else {
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// TreapStore is the in-memory leaderboard.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	byID     map[string]stored
	keepBest bool
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]stored),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveRound upserts the player's record in O(log n) expected time.
func (s *TreapStore) SaveRound(ctx context.Context, rec model.RoundRecord) error {
	if rec.UsernameHash == "" {
		return ErrEmptyPlayer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[rec.UsernameHash]; ok {
		if s.keepBest && rec.Points <= old.points {
			return nil
		}
		s.root = deleteNode(s.root, rec.UsernameHash, old.points)
	}
	s.byID[rec.UsernameHash] = stored{
		points:         rec.Points,
		aiScore:        rec.AIScore,
		humanScore:     rec.HumanScore,
		collaborations: rec.Collaborations,
		deviceType:     rec.DeviceType,
	}
	s.root = insert(s.root, rec.UsernameHash, rec.Points)
	return nil
}

// Rank returns the current rank and entry for a player in O(log n).
func (s *TreapStore) Rank(ctx context.Context, usernameHash string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[usernameHash]
	if !ok {
		return Entry{}, ErrNotFound
	}

	return Entry{
		Rank:           rankOf(s.root, usernameHash, rec.points),
		UsernameHash:   usernameHash,
		Points:         rec.points,
		AIScore:        rec.aiScore,
		HumanScore:     rec.humanScore,
		Collaborations: rec.collaborations,
		DeviceType:     rec.deviceType,
	}, nil
}

// TopN returns the top N entries ordered by points desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, s.byID, &out)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Count returns the total number of players.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
