package schedule

import (
	"sort"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/optimizer"
	"github.com/okian/rally/internal/domain/quality"
)

const improvementEpsilon = 1e-9

// Result is a jointly optimised team layout and schedule.
type Result struct {
	Teams      []model.Team
	Schedule   model.Schedule
	Iterations int
}

// Integrate improves teams and schedule together. It alternates participant
// swaps between teams that are scheduled to meet with per-round maximum
// quality rematching, until neither phase improves or the iteration cap is
// reached. It starts from the circle schedule and never adds repeated
// pairings or extra byes for any team beyond what that schedule has.
func (s *Scheduler) Integrate(teams []model.Team, rounds int) (Result, error) {
	if err := validate(teams, rounds); err != nil {
		return Result{}, err
	}
	roster, part := optimizer.FromTeams(teams)
	members := func(idxs []int) []model.Participant {
		out := make([]model.Participant, len(idxs))
		for i, idx := range idxs {
			out[i] = roster[idx]
		}
		return out
	}
	qualityOf := func(p optimizer.Partition) [][]float64 {
		ss := make([]quality.Side, len(p))
		for i, t := range p {
			ss[i] = s.predictor.Summarize(members(t))
		}
		return s.matrix(ss)
	}

	q := qualityOf(part)
	slots := s.cycleSlots(q, len(teams), rounds)
	total := scheduleQuality(q, slots)

	it := 0
	for it < s.iterations {
		it++
		improved := false

		weights := pairWeights(slots)
		pairs := make([][2]int, 0, len(weights))
		for pr := range weights {
			pairs = append(pairs, pr)
		}
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i][0] != pairs[j][0] {
				return pairs[i][0] < pairs[j][0]
			}
			return pairs[i][1] < pairs[j][1]
		})
		obj := func(p optimizer.Partition) float64 {
			qq := qualityOf(p)
			sum := 0.0
			for _, pr := range pairs {
				sum += float64(weights[pr]) * qq[pr[0]][pr[1]]
			}
			return -sum
		}
		if sr := s.annealer.Run(part, obj, pairs, s.rng); -sr.Score > total+improvementEpsilon {
			part, total, improved = sr.Best, -sr.Score, true
			q = qualityOf(part)
		}

		proposal := rematch(q, rounds)
		if repeats(proposal) <= repeats(slots) && maxByes(proposal) <= maxByes(slots) {
			if pq := scheduleQuality(q, proposal); pq > total+improvementEpsilon {
				slots, total, improved = proposal, pq, true
			}
		}
		if !improved {
			break
		}
	}

	return Result{
		Teams:      optimizer.Teams(roster, part, s.predictor),
		Schedule:   s.render(q, slots),
		Iterations: it,
	}, nil
}

// rematch builds rounds one at a time, each a maximum quality matching that
// avoids earlier pairings and earlier byes where it can.
func rematch(q [][]float64, rounds int) []slot {
	used := make(map[[2]int]int)
	satOut := make(map[int]int)
	out := make([]slot, 0, rounds)
	for r := 0; r < rounds; r++ {
		sl := match(q, used, satOut)
		for _, pr := range sl.pairs {
			used[pr]++
		}
		for _, b := range sl.byes {
			satOut[b]++
		}
		out = append(out, sl)
	}
	return out
}

// maxByes is the largest number of rounds any single team sits out.
func maxByes(slots []slot) int {
	counts := make(map[int]int)
	most := 0
	for _, sl := range slots {
		for _, b := range sl.byes {
			counts[b]++
			if counts[b] > most {
				most = counts[b]
			}
		}
	}
	return most
}

func scheduleQuality(q [][]float64, slots []slot) float64 {
	total := 0.0
	for _, sl := range slots {
		total += slotQuality(q, sl)
	}
	return total
}

func pairWeights(slots []slot) map[[2]int]int {
	out := make(map[[2]int]int)
	for _, sl := range slots {
		for _, pr := range sl.pairs {
			out[pr]++
		}
	}
	return out
}

// repeats counts matchups that reuse an earlier pairing.
func repeats(slots []slot) int {
	n := 0
	for _, c := range pairWeights(slots) {
		n += c - 1
	}
	return n
}
