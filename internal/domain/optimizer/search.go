package optimizer

import (
	"math"
	"math/rand"
)

// Default annealing schedule.
const (
	defaultStartTemperature = 100.0
	defaultCooling          = 0.995
	defaultFloor            = 0.01
	defaultAnnealSteps      = 5000

	improvementEpsilon = 1e-9
)

// Annealer is a geometric-cooling simulated annealing schedule. A run stops
// at the temperature floor or after MaxSteps, whichever comes first.
type Annealer struct {
	Start    float64
	Cooling  float64
	Floor    float64
	MaxSteps int
}

// DefaultAnnealer returns the default schedule.
func DefaultAnnealer() Annealer {
	return Annealer{
		Start:    defaultStartTemperature,
		Cooling:  defaultCooling,
		Floor:    defaultFloor,
		MaxSteps: defaultAnnealSteps,
	}
}

func (a Annealer) valid() bool {
	return a.Start > a.Floor && a.Floor > 0 && a.Cooling > 0 && a.Cooling < 1 && a.MaxSteps > 0
}

// SearchResult reports the outcome of a local search.
type SearchResult struct {
	Best      Partition
	Score     float64
	Steps     int
	Exhausted bool // stopped by the step cap rather than convergence
}

// Run anneals p under obj by swapping single participants between teams.
// pairs restricts which team pairs may swap; nil allows every pair. The best
// partition seen is returned.
func (a Annealer) Run(p Partition, obj Objective, pairs [][2]int, rng *rand.Rand) SearchResult {
	if pairs == nil {
		pairs = allPairs(len(p))
	}
	cur := p.Clone()
	curScore := obj(cur)
	res := SearchResult{Best: cur.Clone(), Score: curScore}
	if len(pairs) == 0 {
		return res
	}

	temp := a.Start
	for temp > a.Floor {
		if res.Steps >= a.MaxSteps {
			res.Exhausted = true
			break
		}
		res.Steps++
		pr := pairs[rng.Intn(len(pairs))]
		ta, tb := pr[0], pr[1]
		if len(cur[ta]) == 0 || len(cur[tb]) == 0 {
			temp *= a.Cooling
			continue
		}
		i, j := rng.Intn(len(cur[ta])), rng.Intn(len(cur[tb]))
		cur[ta][i], cur[tb][j] = cur[tb][j], cur[ta][i]

		next := obj(cur)
		gain := curScore - next
		if gain >= 0 || rng.Float64() < math.Exp(gain/temp) {
			curScore = next
			if next < res.Score-improvementEpsilon {
				res.Score = next
				res.Best = cur.Clone()
			}
		} else {
			cur[ta][i], cur[tb][j] = cur[tb][j], cur[ta][i]
		}
		temp *= a.Cooling
	}
	return res
}

// HillClimb applies strictly improving swaps until none is left or budget
// swaps have been evaluated.
func HillClimb(p Partition, obj Objective, pairs [][2]int, budget int) SearchResult {
	if pairs == nil {
		pairs = allPairs(len(p))
	}
	cur := p.Clone()
	res := SearchResult{Score: obj(cur)}

	improved := true
search:
	for improved {
		improved = false
		for _, pr := range pairs {
			ta, tb := pr[0], pr[1]
			for i := range cur[ta] {
				for j := range cur[tb] {
					if res.Steps >= budget {
						res.Exhausted = true
						break search
					}
					res.Steps++
					cur[ta][i], cur[tb][j] = cur[tb][j], cur[ta][i]
					if s := obj(cur); s < res.Score-improvementEpsilon {
						res.Score = s
						improved = true
					} else {
						cur[ta][i], cur[tb][j] = cur[tb][j], cur[ta][i]
					}
				}
			}
		}
	}
	res.Best = cur
	return res
}

func allPairs(n int) [][2]int {
	out := make([][2]int, 0, n*(n-1)/2)
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			out = append(out, [2]int{a, b})
		}
	}
	return out
}
