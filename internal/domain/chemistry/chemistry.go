// Package chemistry tracks pairwise teammate synergy accumulated from
// recorded games. The table is optional: consumers treat a nil *Table as
// "no chemistry" and get a zero bonus.
package chemistry

import (
	"sort"
	"sync"
)

// Update parameters.
const (
	retention = 0.95
	winBoost  = 5.0
	lossBoost = -2.0
)

// Outcome of a game from one team's point of view.
type Outcome int

// Outcomes.
const (
	Loss Outcome = iota
	Tie
	Win
)

type pair struct{ a, b string }

func key(x, y string) pair {
	if x > y {
		x, y = y, x
	}
	return pair{a: x, b: y}
}

// Entry is one stored pair score.
type Entry struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// Table maps unordered participant pairs to a synergy score.
type Table struct {
	mu     sync.RWMutex
	scores map[pair]float64
}

// New creates an empty table.
func New() *Table {
	return &Table{scores: make(map[pair]float64)}
}

// Score returns the pair score and whether the pair has history.
func (t *Table) Score(a, b string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.scores[key(a, b)]
	return s, ok
}

// Record applies one game's outcome to every teammate pair of ids.
func (t *Table) Record(ids []string, o Outcome) {
	if t == nil {
		return
	}
	boost := 0.0
	switch o {
	case Win:
		boost = winBoost
	case Loss:
		boost = lossBoost
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			k := key(ids[i], ids[j])
			t.scores[k] = t.scores[k]*retention + boost
		}
	}
}

// TeamScore averages the scores of teammate pairs that have history.
func (t *Table) TeamScore(ids []string) float64 {
	if t == nil || len(ids) < 2 {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	sum, n := 0.0, 0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if s, ok := t.scores[key(ids[i], ids[j])]; ok {
				sum += s
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Best returns up to n partners of id ordered by descending score.
func (t *Table) Best(id string, n int) []Entry {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	var out []Entry
	for k, s := range t.scores {
		switch id {
		case k.a:
			out = append(out, Entry{A: id, B: k.b, Score: s})
		case k.b:
			out = append(out, Entry{A: id, B: k.a, Score: s})
		}
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].B < out[j].B
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Forget drops every pair involving id.
func (t *Table) Forget(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.scores {
		if k.a == id || k.b == id {
			delete(t.scores, k)
		}
	}
}

// Entries returns a copy of all pair scores ordered by pair.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	out := make([]Entry, 0, len(t.scores))
	for k, s := range t.scores {
		out = append(out, Entry{A: k.a, B: k.b, Score: s})
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Load replaces the table contents.
func (t *Table) Load(entries []Entry) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scores = make(map[pair]float64, len(entries))
	for _, e := range entries {
		t.scores[key(e.A, e.B)] = e.Score
	}
}
