package schedule

import (
	"math"
	"math/bits"
	"sort"

	"github.com/okian/rally/internal/domain/model"
)

const (
	// exactMatchingLimit is the largest team count solved by bitmask DP.
	exactMatchingLimit = 16
	// repeatPenalty outweighs any quality sum so repeated pairings and
	// repeated byes are used only when unavoidable.
	repeatPenalty = 1e4
)

// OptimalMatchups returns the single round with the highest total predicted
// quality. An odd team count leaves exactly one team on a bye.
func (s *Scheduler) OptimalMatchups(teams []model.Team) (model.Round, error) {
	if err := validate(teams, 1); err != nil {
		return model.Round{}, err
	}
	q := s.matrix(sides(s.predictor, teams))
	sched := s.render(q, []slot{match(q, nil, nil)})
	return sched.Rounds[0], nil
}

// match pairs teams to maximise quality minus a penalty per earlier use of a
// pairing, and per earlier bye of the team left out.
func match(q [][]float64, used map[[2]int]int, satOut map[int]int) slot {
	n := len(q)
	w := make([][]float64, n)
	byeW := make([]float64, n)
	for i := range w {
		w[i] = make([]float64, n)
		for j := range w[i] {
			if i != j {
				w[i][j] = q[i][j] - repeatPenalty*float64(used[ordered(i, j)])
			}
		}
		byeW[i] = -repeatPenalty * float64(satOut[i])
	}
	if n <= exactMatchingLimit {
		return exactMatch(w, byeW)
	}
	return greedyMatch(w, byeW)
}

// exactMatch solves maximum-weight matching by memoised DP over the set of
// unmatched teams, allowing one bye, weighted by byeW, when the count is odd.
func exactMatch(w [][]float64, byeW []float64) slot {
	n := len(w)
	full := 1<<n - 1
	memo := [2]map[int]float64{{}, {}}
	choice := [2]map[int]int{{}, {}}

	var solve func(mask, byes int) float64
	solve = func(mask, byes int) float64 {
		if mask == 0 {
			return 0
		}
		if v, ok := memo[byes][mask]; ok {
			return v
		}
		i := bits.TrailingZeros(uint(mask))
		rest := mask &^ (1 << i)
		best, pick := math.Inf(-1), byeEntry
		if byes > 0 {
			best = byeW[i] + solve(rest, byes-1)
		}
		for r := rest; r != 0; r &= r - 1 {
			j := bits.TrailingZeros(uint(r))
			if v := w[i][j] + solve(rest&^(1<<j), byes); v > best {
				best, pick = v, j
			}
		}
		memo[byes][mask], choice[byes][mask] = best, pick
		return best
	}

	byes := n % 2
	solve(full, byes)

	var sl slot
	for mask := full; mask != 0; {
		i := bits.TrailingZeros(uint(mask))
		j := choice[byes][mask]
		mask &^= 1 << i
		if j == byeEntry {
			sl.byes = append(sl.byes, i)
			byes--
			continue
		}
		mask &^= 1 << j
		sl.pairs = append(sl.pairs, ordered(i, j))
	}
	return sl
}

// greedyMatch benches the team with the heaviest bye weight when the count is
// odd, then takes the heaviest free pairing until every other team plays.
func greedyMatch(w [][]float64, byeW []float64) slot {
	n := len(w)
	taken := make([]bool, n)
	var sl slot
	if n%2 == 1 {
		bye := 0
		for i := 1; i < n; i++ {
			if byeW[i] > byeW[bye] {
				bye = i
			}
		}
		taken[bye] = true
		sl.byes = append(sl.byes, bye)
	}

	type edge struct {
		pr [2]int
		w  float64
	}
	edges := make([]edge, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			edges = append(edges, edge{pr: [2]int{i, j}, w: w[i][j]})
		}
	}
	sort.SliceStable(edges, func(a, b int) bool { return edges[a].w > edges[b].w })

	for _, e := range edges {
		if taken[e.pr[0]] || taken[e.pr[1]] {
			continue
		}
		taken[e.pr[0]], taken[e.pr[1]] = true, true
		sl.pairs = append(sl.pairs, e.pr)
	}
	return sl
}
