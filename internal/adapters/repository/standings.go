package repository

import (
	"hash/fnv"
	"math"
)

// standings is a size-augmented treap over (rating desc, id asc), so rank
// and top-N queries run in O(log n) expected time. It is guarded by the
// Registry lock.

// ratingScale keeps six decimal places of a rating.
const ratingScale = 1_000_000

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	switch {
	case math.IsNaN(x):
		return 0
	case x*ratingScale >= math.MaxInt64:
		return ratingFP(math.MaxInt64)
	case x*ratingScale <= math.MinInt64:
		return ratingFP(math.MinInt64)
	}
	return ratingFP(math.Round(x * ratingScale))
}

type node struct {
	id     string
	rating ratingFP
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

// before reports whether (aRating, aID) ranks ahead of (bRating, bID).
func before(aRating ratingFP, aID string, bRating ratingFP, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

// priority hashes the id so tree shape does not depend on insertion order.
func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, r ratingFP) *node {
	if n == nil {
		return &node{id: id, rating: r, prio: priority(id), size: 1}
	}
	if before(r, id, n.rating, n.id) {
		n.left = insert(n.left, id, r)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, r)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, r ratingFP) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.rating == r:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, r)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, r)
		}
	case before(r, id, n.rating, n.id):
		n.left = remove(n.left, id, r)
	default:
		n.right = remove(n.right, id, r)
	}
	fix(n)
	return n
}

// countAbove returns how many entries have a strictly higher rating.
func countAbove(n *node, r ratingFP) int {
	count := 0
	for n != nil {
		if n.rating > r {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTop appends up to limit ids in rank order.
func collectTop(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	collectTop(n.right, limit, out)
}

type standings struct {
	root   *node
	rating map[string]ratingFP
}

func newStandings() *standings {
	return &standings{rating: make(map[string]ratingFP)}
}

// upsert places id at rating r.
func (s *standings) upsert(id string, r float64) {
	fp := toFixedPoint(r)
	if old, ok := s.rating[id]; ok {
		if old == fp {
			return
		}
		s.root = remove(s.root, id, old)
	}
	s.rating[id] = fp
	s.root = insert(s.root, id, fp)
}

// rank is the competition rank of id: one plus the number of strictly
// higher ratings, so equal ratings share a rank.
func (s *standings) rank(id string) (int, bool) {
	fp, ok := s.rating[id]
	if !ok {
		return 0, false
	}
	return countAbove(s.root, fp) + 1, true
}

func (s *standings) top(limit int) []string {
	out := make([]string, 0, min(limit, len(s.rating)))
	collectTop(s.root, limit, &out)
	return out
}

func (s *standings) len() int { return nsize(s.root) }
