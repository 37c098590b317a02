// Package optimizer partitions participants into balanced teams of near-equal
// size using randomized snake-draft construction followed by local search.
package optimizer

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/quality"
	"github.com/okian/rally/internal/domain/rating"
)

// Strategy selects how a constructed partition is refined.
type Strategy string

// Supported strategies.
const (
	// StrategySnake keeps the best randomized snake draft without refinement.
	StrategySnake Strategy = "snake"
	// StrategyHillClimb refines with strictly improving swaps.
	StrategyHillClimb Strategy = "hillclimb"
	// StrategyAnneal refines with simulated annealing.
	StrategyAnneal Strategy = "anneal"
)

// Default optimizer configuration constants.
const (
	defaultIterations   = 200
	defaultSwapBudget   = 5000
	defaultPerturbation = 15.0
	minTeams            = 2
)

// Request describes one planning run.
type Request struct {
	Participants []model.Participant
	// TeamSize is the target number of players per team.
	TeamSize int
	// NumTeams forces the team count when non-zero.
	NumTeams int
}

// Result is the best partition found.
type Result struct {
	Teams      []model.Team
	Score      float64
	Iterations int  // constructions plus refinement steps
	Exhausted  bool // refinement budget ran out before convergence
}

// Optimizer builds balanced teams.
type Optimizer struct {
	predictor  *quality.Predictor
	scale      rating.Scale
	iterations int
	swapBudget int
	strategy   Strategy
	epsilon    float64
	annealer   Annealer
	rng        *rand.Rand
}

// New creates an Optimizer with configuration options.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		predictor:  quality.New(),
		scale:      rating.DefaultScale(),
		iterations: defaultIterations,
		swapBudget: defaultSwapBudget,
		strategy:   StrategyHillClimb,
		epsilon:    defaultPerturbation,
		annealer:   DefaultAnnealer(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // not security sensitive
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Rand exposes the optimizer's random source so joint optimizers stay on one
// seeded stream.
func (o *Optimizer) Rand() *rand.Rand { return o.rng }

// Annealer returns the configured annealing schedule.
func (o *Optimizer) Annealer() Annealer { return o.annealer }

// TeamCount validates a request and returns the number of teams to build.
func TeamCount(n, teamSize, numTeams int) (int, error) {
	switch {
	case numTeams < 0 || numTeams == 1:
		return 0, fmt.Errorf("%w: need at least %d teams, got %d", model.ErrInvalidConfiguration, minTeams, numTeams)
	case teamSize < 0 || (numTeams == 0 && teamSize == 0):
		return 0, fmt.Errorf("%w: team size must be positive, got %d", model.ErrInvalidConfiguration, teamSize)
	}
	if teamSize > 0 {
		if need := 2 * (teamSize - 1); n < need {
			return 0, fmt.Errorf("%w: roster has %d participants, teams of %d need at least %d",
				model.ErrInsufficientPlayers, n, teamSize, need)
		}
	}
	if numTeams == 0 {
		numTeams = (n + teamSize - 1) / teamSize
	}
	if numTeams < minTeams || n < numTeams {
		need := max(numTeams, minTeams)
		return 0, fmt.Errorf("%w: roster has %d participants, need at least %d",
			model.ErrInsufficientPlayers, n, need)
	}
	return numTeams, nil
}

// Build partitions the request's participants into balanced teams.
func (o *Optimizer) Build(req Request) (Result, error) {
	roster := req.Participants
	numTeams, err := TeamCount(len(roster), req.TeamSize, req.NumTeams)
	if err != nil {
		return Result{}, err
	}

	bal := newBalance(roster, o.predictor)
	best, bestScore := Partition(nil), 0.0
	for it := 0; it < o.iterations; it++ {
		p := o.snakeDraft(roster, numTeams)
		if s := bal.score(p); best == nil || s < bestScore {
			best, bestScore = p, s
		}
	}

	res := Result{Score: bestScore, Iterations: o.iterations}
	var sr SearchResult
	switch o.strategy {
	case StrategyHillClimb:
		sr = HillClimb(best, bal.score, nil, o.swapBudget)
	case StrategyAnneal:
		sr = o.annealer.Run(best, bal.score, nil, o.rng)
	default:
		sr = SearchResult{Best: best, Score: bestScore}
	}
	res.Score = sr.Score
	res.Iterations += sr.Steps
	res.Exhausted = sr.Exhausted
	res.Teams = Teams(roster, sr.Best, o.predictor)
	return res, nil
}

// Rescore evaluates an existing team layout with the balance objective.
func (o *Optimizer) Rescore(teams []model.Team) float64 {
	roster, p := FromTeams(teams)
	return newBalance(roster, o.predictor).score(p)
}

// snakeDraft shuffles, perturbs and sorts the roster, then deals it out in
// alternating forward and backward order.
func (o *Optimizer) snakeDraft(roster []model.Participant, numTeams int) Partition {
	order := o.rng.Perm(len(roster))
	perturbed := make([]float64, len(roster))
	for _, idx := range order {
		perturbed[idx] = rating.RandomizedRating(roster[idx], o.epsilon, o.rng, o.scale)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return perturbed[order[i]] > perturbed[order[j]]
	})

	p := make(Partition, numTeams)
	for pos, idx := range order {
		round, slot := pos/numTeams, pos%numTeams
		if round%2 == 1 {
			slot = numTeams - 1 - slot
		}
		p[slot] = append(p[slot], idx)
	}
	return p
}

// Teams materialises a partition into teams with aggregate stats. Members are
// listed by descending blended rating.
func Teams(roster []model.Participant, p Partition, predictor *quality.Predictor) []model.Team {
	teams := make([]model.Team, len(p))
	for i, idxs := range p {
		members := make([]model.Participant, len(idxs))
		for k, idx := range idxs {
			members[k] = roster[idx]
		}
		sort.SliceStable(members, func(a, b int) bool {
			return rating.BlendedRating(members[a]) > rating.BlendedRating(members[b])
		})
		avgR, avgS := rating.Average(members)
		teams[i] = model.Team{
			Index:     i,
			Members:   members,
			AvgRating: avgR,
			AvgSigma:  avgS,
			Chemistry: predictor.Chemistry(members),
		}
	}
	return teams
}

// FromTeams flattens teams into a roster and the matching partition.
func FromTeams(teams []model.Team) ([]model.Participant, Partition) {
	var roster []model.Participant
	p := make(Partition, len(teams))
	for i, t := range teams {
		for _, m := range t.Members {
			p[i] = append(p[i], len(roster))
			roster = append(roster, m)
		}
	}
	return roster, p
}
