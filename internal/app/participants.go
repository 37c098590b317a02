package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/chemistry"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

const (
	recentGamesLimit   = 10
	bestTeammatesLimit = 5
)

// Registration describes a new participant. Zero Rating and Sigma take the
// tier or scale defaults.
type Registration struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Tier   string  `json:"tier"`
	Rating float64 `json:"rating"`
	Sigma  float64 `json:"sigma"`
}

// Stats is a participant with derived figures and recent history.
type Stats struct {
	model.Participant
	Rank            int                `json:"rank"`
	WinPercentage   float64            `json:"win_percentage"`
	EffectiveRating float64            `json:"effective_rating"`
	RatingLow       float64            `json:"rating_low"`
	RatingHigh      float64            `json:"rating_high"`
	RecentGames     []model.GameRecord `json:"recent_games"`
	BestTeammates   []chemistry.Entry  `json:"best_teammates,omitempty"`
}

// Adjustment is a manual change to a participant. Nil fields are left as
// they are.
type Adjustment struct {
	Tier   *string  `json:"tier,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
	Sigma  *float64 `json:"sigma,omitempty"`
}

// CreateParticipant registers a participant.
func (s *Service) CreateParticipant(ctx context.Context, reg Registration) (model.Participant, error) {
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return model.Participant{}, fmt.Errorf("%w: participant name is empty", model.ErrInvalidConfiguration)
	}
	tier := ""
	if reg.Tier != "" {
		t, ok := rating.ParseTier(reg.Tier)
		if !ok {
			return model.Participant{}, fmt.Errorf("%w: unknown tier %q", model.ErrInvalidConfiguration, reg.Tier)
		}
		tier = t
	}
	id := reg.ID
	if id == "" {
		id = model.NewParticipantID()
	}

	p := rating.New(id, name, tier, s.scale)
	if reg.Rating != 0 {
		if err := s.checkRating(reg.Rating); err != nil {
			return model.Participant{}, err
		}
		p.Rating = reg.Rating
	}
	if reg.Sigma != 0 {
		if err := s.checkSigma(reg.Sigma); err != nil {
			return model.Participant{}, err
		}
		p.Sigma = reg.Sigma
	}
	if err := s.registry.Create(ctx, p); err != nil {
		return model.Participant{}, err
	}
	s.logger.Info(ctx, "participant registered",
		logger.String("id", p.ID),
		logger.String("tier", p.Tier),
		logger.Float64("rating", p.Rating),
	)
	return p, nil
}

// Participant returns a participant's stats, recent games and best
// teammates.
func (s *Service) Participant(ctx context.Context, id string) (Stats, error) {
	p, err := s.registry.Get(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	st, err := s.registry.Rank(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	low, high := rating.RatingRange(p)
	out := Stats{
		Participant:     p,
		Rank:            st.Rank,
		WinPercentage:   rating.WinPercentage(p),
		EffectiveRating: rating.EffectiveRating(p),
		RatingLow:       low,
		RatingHigh:      high,
		RecentGames:     s.registry.Games(ctx, id, recentGamesLimit),
	}
	s.mu.RLock()
	table := s.chemistry
	s.mu.RUnlock()
	out.BestTeammates = table.Best(id, bestTeammatesLimit)
	return out, nil
}

// AdjustRating applies a manual adjustment.
func (s *Service) AdjustRating(ctx context.Context, id string, adj Adjustment) (model.Participant, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	p, err := s.registry.Get(ctx, id)
	if err != nil {
		return model.Participant{}, err
	}
	switch {
	case adj.Tier == nil:
	case *adj.Tier == "":
		p.Tier = ""
	default:
		t, ok := rating.ParseTier(*adj.Tier)
		if !ok {
			return model.Participant{}, fmt.Errorf("%w: unknown tier %q", model.ErrInvalidConfiguration, *adj.Tier)
		}
		p.Tier = t
	}
	if adj.Rating != nil {
		if err := s.checkRating(*adj.Rating); err != nil {
			return model.Participant{}, err
		}
		p.Rating = *adj.Rating
	}
	if adj.Sigma != nil {
		if err := s.checkSigma(*adj.Sigma); err != nil {
			return model.Participant{}, err
		}
		p.Sigma = *adj.Sigma
	}
	if err := s.registry.SaveAll(ctx, []model.Participant{p}); err != nil {
		return model.Participant{}, err
	}
	s.logger.Info(ctx, "participant adjusted",
		logger.String("id", id),
		logger.String("tier", p.Tier),
		logger.Float64("rating", p.Rating),
		logger.Float64("sigma", p.Sigma),
	)
	return p, nil
}

// ResetStats returns the given participants, or everyone when ids is
// empty, to their starting rating with cleared counters and chemistry.
func (s *Service) ResetStats(ctx context.Context, ids []string) (int, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	roster, err := s.registry.Roster(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	table := s.chemistry
	s.mu.RUnlock()

	reset := make([]model.Participant, 0, len(roster))
	for _, p := range roster {
		fresh := rating.New(p.ID, p.Name, p.Tier, s.scale)
		reset = append(reset, fresh)
		table.Forget(p.ID)
	}
	if err := s.registry.SaveAll(ctx, reset); err != nil {
		return 0, err
	}
	s.logger.Warn(ctx, "participant stats reset", logger.Int("participants", len(reset)))
	return len(reset), nil
}

// ApplyDecay regresses inactive participants toward the mean and returns
// how many changed.
func (s *Service) ApplyDecay(ctx context.Context) (int, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	now := s.now()
	var changed []model.Participant
	for _, p := range s.registry.List(ctx) {
		if d, ok := rating.Decay(p, now, s.scale); ok {
			changed = append(changed, d)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := s.registry.SaveAll(ctx, changed); err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "inactivity decay applied", logger.Int("participants", len(changed)))
	return len(changed), nil
}

// Standings returns the top limit participants by rating.
func (s *Service) Standings(ctx context.Context, limit int) ([]repository.Standing, error) {
	return s.registry.Standings(ctx, limit)
}

// Export writes the registry, and the chemistry table when enabled, as
// JSONL.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	return s.registry.Export(ctx, w, repository.WithChemistry(s.chemistry))
}

// Import loads a JSONL export and marks its games as seen.
func (s *Service) Import(ctx context.Context, r io.Reader) (int, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	n, err := s.registry.Import(ctx, r, repository.WithChemistry(s.chemistry))
	if err != nil {
		metrics.RecordErrorByComponent("registry", "import_error")
		return n, err
	}
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		for _, id := range s.registry.GameIDs(ctx) {
			d.SeenAndRecord(ctx, id)
		}
	}
	return n, nil
}

func (s *Service) checkRating(r float64) error {
	if r < s.scale.Min || r > s.scale.Max {
		return fmt.Errorf("%w: rating %.1f outside [%.0f, %.0f]", model.ErrInvalidConfiguration, r, s.scale.Min, s.scale.Max)
	}
	return nil
}

func (s *Service) checkSigma(sigma float64) error {
	if sigma < s.scale.SigmaFloor || sigma > s.scale.SigmaCeiling {
		return fmt.Errorf("%w: sigma %.1f outside [%.0f, %.0f]",
			model.ErrInvalidConfiguration, sigma, s.scale.SigmaFloor, s.scale.SigmaCeiling)
	}
	return nil
}
