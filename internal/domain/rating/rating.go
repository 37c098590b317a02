// Package rating holds the participant skill model: the canonical rating
// scale and pure functions over a participant's rating and uncertainty.
package rating

import (
	"math"
	"math/rand"

	"github.com/okian/rally/internal/domain/model"
)

// Canonical scale constants.
const (
	DefaultMin          = 0.0
	DefaultMax          = 1000.0
	DefaultMean         = 500.0
	DefaultSigma        = 100.0
	DefaultSigmaFloor   = 10.0
	DefaultSigmaCeiling = 150.0

	confidenceWidth = 2.0 // sigmas on each side of the rating

	// Blending of tier rating and computed rating.
	minTierWeight   = 0.2
	tierWeightDecay = 0.8
	tierWeightGames = 30.0
)

// Scale describes the rating domain.
type Scale struct {
	Min          float64
	Max          float64
	Mean         float64
	DefaultSigma float64
	SigmaFloor   float64
	SigmaCeiling float64
}

// DefaultScale returns the canonical [0, 1000] scale.
func DefaultScale() Scale {
	return Scale{
		Min:          DefaultMin,
		Max:          DefaultMax,
		Mean:         DefaultMean,
		DefaultSigma: DefaultSigma,
		SigmaFloor:   DefaultSigmaFloor,
		SigmaCeiling: DefaultSigmaCeiling,
	}
}

// Clamp limits x to the rating domain.
func (s Scale) Clamp(x float64) float64 {
	return math.Max(s.Min, math.Min(s.Max, x))
}

// ClampSigma limits sigma to [floor, ceiling].
func (s Scale) ClampSigma(sigma float64) float64 {
	return math.Max(s.SigmaFloor, math.Min(s.SigmaCeiling, sigma))
}

// EffectiveRating is the conservative estimate rating - 2*sigma.
func EffectiveRating(p model.Participant) float64 {
	return p.Rating - confidenceWidth*p.Sigma
}

// RatingRange returns the 95%-style confidence band around the rating.
func RatingRange(p model.Participant) (low, high float64) {
	return p.Rating - confidenceWidth*p.Sigma, p.Rating + confidenceWidth*p.Sigma
}

// WinPercentage returns wins / games played, or 0 without games.
func WinPercentage(p model.Participant) float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.GamesPlayed)
}

// TierWeight is the share of the tier rating in the blended rating. It starts
// at 1 and falls linearly to 0.2 after 30 games.
func TierWeight(gamesPlayed int) float64 {
	w := 1.0 - float64(gamesPlayed)*tierWeightDecay/tierWeightGames
	return math.Max(minTierWeight, math.Min(1.0, w))
}

// BlendedRating mixes the tier rating with the computed rating. Participants
// without a tier are rated on their computed rating alone.
func BlendedRating(p model.Participant) float64 {
	base, ok := TierRating(p.Tier)
	if !ok {
		return p.Rating
	}
	w := TierWeight(p.GamesPlayed)
	return w*base + (1-w)*p.Rating
}

// RandomizedRating perturbs the blended rating by uniform noise in
// [-epsilon, +epsilon] and clamps it to the domain.
func RandomizedRating(p model.Participant, epsilon float64, rng *rand.Rand, s Scale) float64 {
	r := BlendedRating(p)
	if epsilon > 0 {
		r += (rng.Float64()*2 - 1) * epsilon
	}
	return s.Clamp(r)
}

// New returns a participant seeded from its tier on the given scale.
func New(id, name, tier string, s Scale) model.Participant {
	r, ok := TierRating(tier)
	if !ok {
		r = s.Mean
		tier = ""
	}
	return model.Participant{
		ID:     id,
		Name:   name,
		Tier:   tier,
		Rating: r,
		Sigma:  s.DefaultSigma,
	}
}

// Average returns the mean blended rating and mean sigma of ps.
func Average(ps []model.Participant) (avgRating, avgSigma float64) {
	if len(ps) == 0 {
		return 0, 0
	}
	for _, p := range ps {
		avgRating += BlendedRating(p)
		avgSigma += p.Sigma
	}
	n := float64(len(ps))
	return avgRating / n, avgSigma / n
}
