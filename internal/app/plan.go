package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/optimizer"
	"github.com/okian/rally/internal/domain/schedule"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// PlanRequest asks for teams, and optionally a schedule, for the attending
// participants.
type PlanRequest struct {
	// ParticipantIDs lists who attends. Empty means every registered
	// participant.
	ParticipantIDs []string           `json:"participant_ids"`
	TeamSize       int                `json:"team_size"`
	NumTeams       int                `json:"num_teams"`
	Rounds         int                `json:"rounds"`
	Strategy       optimizer.Strategy `json:"strategy"`
	// Integrated optimises teams and schedule together.
	Integrated bool  `json:"integrated"`
	Seed       int64 `json:"seed"`
}

// Plan is the outcome of a planning run.
type Plan struct {
	Teams []model.Team `json:"teams"`
	// Schedule is set when rounds were requested.
	Schedule *model.Schedule `json:"schedule,omitempty"`
	// Matchups is the best single round, set when no rounds were requested.
	Matchups   *model.Round `json:"matchups,omitempty"`
	Score      float64      `json:"score"`
	Iterations int          `json:"iterations"`
	Exhausted  bool         `json:"exhausted"`
	Seed       int64        `json:"seed"`
}

// Plan balances the attending participants into teams and schedules them.
func (s *Service) Plan(ctx context.Context, req PlanRequest) (Plan, error) {
	if err := s.running(); err != nil {
		return Plan{}, err
	}
	start := time.Now()

	strategy := req.Strategy
	switch strategy {
	case "":
		strategy = s.optimizerStrategy
	case optimizer.StrategySnake, optimizer.StrategyHillClimb, optimizer.StrategyAnneal:
	default:
		return Plan{}, fmt.Errorf("%w: unknown optimizer strategy %q", model.ErrInvalidConfiguration, req.Strategy)
	}
	if req.Rounds < 0 || req.Rounds > s.roundsCap {
		return Plan{}, fmt.Errorf("%w: rounds must be between 0 and %d, got %d",
			model.ErrInvalidConfiguration, s.roundsCap, req.Rounds)
	}
	if req.Integrated && req.Rounds == 0 {
		return Plan{}, fmt.Errorf("%w: integrated planning needs at least one round", model.ErrInvalidConfiguration)
	}
	teamSize := req.TeamSize
	if teamSize == 0 && req.NumTeams == 0 {
		teamSize = s.teamSize
	}
	seed := req.Seed
	if seed == 0 {
		seed = s.seed
	}
	if seed == 0 {
		seed = s.now().UnixNano()
	}

	roster, err := s.attending(ctx, req.ParticipantIDs)
	if err != nil {
		return Plan{}, err
	}

	opt := optimizer.New(
		optimizer.WithPredictor(s.predictor),
		optimizer.WithScale(s.scale),
		optimizer.WithIterations(s.iterations),
		optimizer.WithStrategy(strategy),
		optimizer.WithPerturbation(s.perturbation),
		optimizer.WithSeed(seed),
	)
	res, err := opt.Build(optimizer.Request{Participants: roster, TeamSize: teamSize, NumTeams: req.NumTeams})
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Teams: res.Teams, Score: res.Score, Iterations: res.Iterations, Exhausted: res.Exhausted, Seed: seed}

	sched := schedule.New(
		schedule.WithPredictor(s.predictor),
		schedule.WithIterations(s.integratedIterations),
		schedule.WithAnnealer(opt.Annealer()),
		schedule.WithRand(opt.Rand()),
	)
	switch {
	case req.Integrated:
		joint, err := sched.Integrate(plan.Teams, req.Rounds)
		if err != nil {
			return Plan{}, err
		}
		plan.Teams = joint.Teams
		plan.Schedule = &joint.Schedule
		plan.Score = opt.Rescore(joint.Teams)
		plan.Iterations += joint.Iterations
	case req.Rounds > 0:
		sc, err := sched.Build(plan.Teams, req.Rounds)
		if err != nil {
			return Plan{}, err
		}
		plan.Schedule = &sc
	default:
		round, err := sched.OptimalMatchups(plan.Teams)
		if err != nil {
			return Plan{}, err
		}
		plan.Matchups = &round
	}

	latency := float64(time.Since(start).Nanoseconds()) / 1e6
	metrics.RecordPlan(latency, plan.Iterations, plan.Exhausted)
	s.observeMatchups(plan)
	if plan.Exhausted {
		s.logger.Warn(ctx, "team refinement stopped at its budget",
			logger.Error(model.ErrOptimizationExhausted),
			logger.String("strategy", string(strategy)),
			logger.Int("iterations", plan.Iterations),
		)
	}
	s.logger.Debug(ctx, "plan built",
		logger.Int("participants", len(roster)),
		logger.Int("teams", len(plan.Teams)),
		logger.Float64("score", plan.Score),
		logger.Float64("latencyMs", latency),
	)
	return plan, nil
}

func (s *Service) observeMatchups(p Plan) {
	var rounds []model.Round
	switch {
	case p.Schedule != nil:
		rounds = p.Schedule.Rounds
		metrics.RecordRepeatedRounds(p.Schedule.RepeatedRounds)
	case p.Matchups != nil:
		rounds = []model.Round{*p.Matchups}
	}
	for _, r := range rounds {
		for _, m := range r.Matchups {
			metrics.RecordMatchupQuality(m.Quality)
		}
	}
}

// attending resolves ids in order, or the whole registry by id when empty.
func (s *Service) attending(ctx context.Context, ids []string) ([]model.Participant, error) {
	if len(ids) == 0 {
		return s.registry.List(ctx), nil
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: participant %s listed twice", model.ErrInvalidConfiguration, id)
		}
		seen[id] = struct{}{}
	}
	roster, err := s.registry.Roster(ctx, ids)
	if err != nil {
		return nil, err
	}
	return roster.Resolve(ids)
}
