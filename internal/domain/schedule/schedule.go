// Package schedule arranges teams into rounds of matchups.
package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/optimizer"
	"github.com/okian/rally/internal/domain/quality"
)

const (
	defaultIterations = 10
	byeEntry          = -1
)

// Scheduler builds round-robin and quality-driven schedules.
type Scheduler struct {
	predictor  *quality.Predictor
	iterations int
	annealer   optimizer.Annealer
	rng        *rand.Rand
}

// New creates a Scheduler with configuration options.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		predictor:  quality.New(),
		iterations: defaultIterations,
		annealer:   optimizer.DefaultAnnealer(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// slot is one round before rendering: team index pairs plus sitting-out teams.
type slot struct {
	pairs [][2]int
	byes  []int
}

// MaxUniqueRounds is the round-robin length for n teams.
func MaxUniqueRounds(n int) int {
	if n < 2 {
		return 0
	}
	if n%2 == 1 {
		return n
	}
	return n - 1
}

func validate(teams []model.Team, rounds int) error {
	if len(teams) < 2 {
		return fmt.Errorf("%w: need at least 2 teams to schedule, got %d", model.ErrInvalidConfiguration, len(teams))
	}
	if rounds < 1 {
		return fmt.Errorf("%w: rounds must be positive, got %d", model.ErrInvalidConfiguration, rounds)
	}
	return nil
}

// Build schedules rounds with the circle method. Requests beyond the
// round-robin length reuse the highest quality rounds and report them as
// repeated.
func (s *Scheduler) Build(teams []model.Team, rounds int) (model.Schedule, error) {
	if err := validate(teams, rounds); err != nil {
		return model.Schedule{}, err
	}
	q := s.matrix(sides(s.predictor, teams))
	return s.render(q, s.cycleSlots(q, len(teams), rounds)), nil
}

func (s *Scheduler) cycleSlots(q [][]float64, n, rounds int) []slot {
	cycle := circle(n)
	if rounds <= len(cycle) {
		return cycle[:rounds]
	}
	ranked := make([]slot, len(cycle))
	copy(ranked, cycle)
	sort.SliceStable(ranked, func(i, j int) bool {
		return averageQuality(q, ranked[i]) > averageQuality(q, ranked[j])
	})
	out := append([]slot(nil), cycle...)
	for k := 0; len(out) < rounds; k++ {
		out = append(out, ranked[k%len(ranked)])
	}
	return out
}

// circle returns one full round robin. Odd counts gain a virtual bye entry;
// every round keeps entry 0 fixed and rotates the rest by one.
func circle(n int) []slot {
	v := make([]int, n, n+1)
	for i := range v {
		v[i] = i
	}
	if n%2 == 1 {
		v = append(v, byeEntry)
	}
	m := len(v)
	out := make([]slot, 0, m-1)
	for r := 0; r < m-1; r++ {
		var sl slot
		for i := 0; i < m/2; i++ {
			a, b := v[i], v[m-1-i]
			switch {
			case a == byeEntry:
				sl.byes = append(sl.byes, b)
			case b == byeEntry:
				sl.byes = append(sl.byes, a)
			default:
				sl.pairs = append(sl.pairs, ordered(a, b))
			}
		}
		out = append(out, sl)
		rotated := make([]int, 0, m)
		rotated = append(rotated, v[0], v[m-1])
		rotated = append(rotated, v[1:m-1]...)
		v = rotated
	}
	return out
}

// render turns slots into numbered rounds. A round that reuses any earlier
// pairing is flagged as a repeat.
func (s *Scheduler) render(q [][]float64, slots []slot) model.Schedule {
	sched := model.Schedule{
		Rounds:          make([]model.Round, 0, len(slots)),
		MaxUniqueRounds: MaxUniqueRounds(len(q)),
	}
	seen := make(map[[2]int]bool)
	for i, sl := range slots {
		round := model.Round{Number: i + 1, Byes: append([]int(nil), sl.byes...)}
		for _, pr := range sl.pairs {
			if seen[pr] {
				round.Repeat = true
			}
			round.Matchups = append(round.Matchups, model.Matchup{
				Round:   i + 1,
				TeamA:   pr[0],
				TeamB:   pr[1],
				Quality: q[pr[0]][pr[1]],
			})
		}
		for _, pr := range sl.pairs {
			seen[pr] = true
		}
		sort.SliceStable(round.Matchups, func(a, b int) bool {
			return round.Matchups[a].Quality > round.Matchups[b].Quality
		})
		if round.Repeat {
			sched.RepeatedRounds++
		}
		sched.Rounds = append(sched.Rounds, round)
	}
	return sched
}

func (s *Scheduler) matrix(ss []quality.Side) [][]float64 {
	q := make([][]float64, len(ss))
	for i := range q {
		q[i] = make([]float64, len(ss))
	}
	for i := range ss {
		for j := i + 1; j < len(ss); j++ {
			v := s.predictor.Compare(ss[i], ss[j])
			q[i][j], q[j][i] = v, v
		}
	}
	return q
}

func sides(p *quality.Predictor, teams []model.Team) []quality.Side {
	out := make([]quality.Side, len(teams))
	for i, t := range teams {
		out[i] = p.Summarize(t.Members)
	}
	return out
}

func averageQuality(q [][]float64, sl slot) float64 {
	if len(sl.pairs) == 0 {
		return 0
	}
	return slotQuality(q, sl) / float64(len(sl.pairs))
}

func slotQuality(q [][]float64, sl slot) float64 {
	total := 0.0
	for _, pr := range sl.pairs {
		total += q[pr[0]][pr[1]]
	}
	return total
}

func ordered(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
