// Package quality predicts how competitive a match between two teams will be.
package quality

import (
	"math"

	"github.com/okian/rally/internal/domain/chemistry"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
)

// Default predictor configuration constants.
const (
	// DefaultCloseness is the rating gap that halves the closeness term.
	DefaultCloseness       = 37.5
	DefaultChemistryWeight = 1.0
	confidencePivot        = 100.0
	maxQuality             = 100.0
)

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithCloseness sets the rating gap at which quality halves.
func WithCloseness(gap float64) Option {
	return func(p *Predictor) {
		if gap > 0 {
			p.closeness = gap
		}
	}
}

// WithChemistry enables the chemistry bonus.
func WithChemistry(t *chemistry.Table, weight float64) Option {
	return func(p *Predictor) {
		p.chemistry = t
		if weight >= 0 {
			p.chemistryWeight = weight
		}
	}
}

// Predictor scores hypothetical matches in [0, 100].
type Predictor struct {
	closeness       float64
	chemistry       *chemistry.Table
	chemistryWeight float64
}

// New creates a Predictor with configuration options.
func New(opts ...Option) *Predictor {
	p := &Predictor{
		closeness:       DefaultCloseness,
		chemistryWeight: DefaultChemistryWeight,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Side summarises one team for prediction.
type Side struct {
	Rating float64 // average blended rating, chemistry included
	Sigma  float64 // average sigma
}

// Summarize computes the prediction inputs of a roster.
func (p *Predictor) Summarize(members []model.Participant) Side {
	r, s := rating.Average(members)
	if p.chemistry != nil && p.chemistryWeight > 0 {
		r += p.chemistryWeight * p.chemistry.TeamScore(ids(members))
	}
	return Side{Rating: r, Sigma: s}
}

// Chemistry returns the team chemistry score, 0 without a table.
func (p *Predictor) Chemistry(members []model.Participant) float64 {
	return p.chemistry.TeamScore(ids(members))
}

// Predict returns the quality of a match between a and b. It is symmetric,
// decreases as the rating gap grows and shrinks as uncertainty rises.
func (p *Predictor) Predict(a, b []model.Participant) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return p.Compare(p.Summarize(a), p.Summarize(b))
}

// Compare scores two pre-summarised sides.
func (p *Predictor) Compare(a, b Side) float64 {
	gap := math.Abs(a.Rating - b.Rating)
	closeness := 1 / (1 + gap/p.closeness)
	avgSigma := (a.Sigma + b.Sigma) / 2
	q := maxQuality * closeness * ConfidenceFactor(avgSigma)
	return math.Max(0, math.Min(maxQuality, q))
}

// ConfidenceFactor is 100/(100+sigma).
func ConfidenceFactor(sigma float64) float64 {
	return confidencePivot / (confidencePivot + math.Max(0, sigma))
}

func ids(ps []model.Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
