package update

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// Default trainer parameters.
const (
	defaultLearningRate = 0.1
	defaultEpochs       = 2000
)

// Sample is one training row.
type Sample struct {
	X Features
	Y float64
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithLearningRate sets the gradient descent step size.
func WithLearningRate(lr float64) TrainerOption {
	return func(t *Trainer) {
		if lr > 0 {
			t.learningRate = lr
		}
	}
}

// WithEpochs sets the number of full passes over the samples.
func WithEpochs(n int) TrainerOption {
	return func(t *Trainer) {
		if n > 0 {
			t.epochs = n
		}
	}
}

// WithTarget sets the strategy whose deltas the model learns to reproduce.
func WithTarget(s *Statistical) TrainerOption {
	return func(t *Trainer) {
		if s != nil {
			t.target = s
		}
	}
}

// WithClock overrides the training timestamp source.
func WithClock(now func() time.Time) TrainerOption {
	return func(t *Trainer) {
		if now != nil {
			t.now = now
		}
	}
}

// Trainer fits a LinearModel by batch gradient descent on recorded games.
type Trainer struct {
	learningRate float64
	epochs       int
	target       *Statistical
	now          func() time.Time
}

// NewTrainer creates a Trainer.
func NewTrainer(opts ...TrainerOption) *Trainer {
	t := &Trainer{
		learningRate: defaultLearningRate,
		epochs:       defaultEpochs,
		target:       NewStatistical(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Samples turns game records into training rows. Participants are rebuilt
// from their pre-game snapshots; records missing a snapshot are skipped.
func (t *Trainer) Samples(ctx context.Context, records []model.GameRecord) ([]Sample, error) {
	var out []Sample
	for _, rec := range records {
		g, ok := replay(rec)
		if !ok {
			continue
		}
		deltas, err := t.target.ComputeAdjustments(ctx, g)
		if err != nil {
			return nil, err
		}
		for _, x := range gameFeatures(g) {
			out = append(out, Sample{X: x.features, Y: deltas[x.id]})
		}
	}
	return out, nil
}

// Train fits a model to the records.
func (t *Trainer) Train(ctx context.Context, records []model.GameRecord) (*LinearModel, error) {
	samples, err := t.Samples(ctx, records)
	if err != nil {
		return nil, err
	}
	return t.Fit(ctx, samples)
}

// Fit runs gradient descent over samples.
func (t *Trainer) Fit(ctx context.Context, samples []Sample) (*LinearModel, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no training samples", model.ErrModelUnavailable)
	}
	w := make([]float64, FeatureCount)
	b := 0.0
	n := float64(len(samples))
	for epoch := 0; epoch < t.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var gradW [FeatureCount]float64
		gradB := 0.0
		for _, s := range samples {
			diff := dot(w, s.X) + b - s.Y
			for j := range gradW {
				gradW[j] += diff * s.X[j]
			}
			gradB += diff
		}
		for j := range w {
			w[j] -= t.learningRate * gradW[j] / n
		}
		b -= t.learningRate * gradB / n
	}

	m := &LinearModel{
		Features:  FeatureNames,
		Weights:   w,
		Bias:      b,
		Samples:   len(samples),
		TrainedAt: t.now().UTC(),
	}
	m.Loss = MeanSquaredError(m, samples)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("training diverged: %w", err)
	}
	return m, nil
}

// MeanSquaredError evaluates m on samples.
func MeanSquaredError(m *LinearModel, samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		d := m.Predict(s.X) - s.Y
		sum += d * d
	}
	return sum / float64(len(samples))
}

func dot(w []float64, x Features) float64 {
	s := 0.0
	for i := range w {
		s += w[i] * x[i]
	}
	return s
}

// replay rebuilds the game as it looked before it was applied.
func replay(rec model.GameRecord) (Game, bool) {
	side := func(ids []string) ([]model.Participant, bool) {
		ps := make([]model.Participant, 0, len(ids))
		for _, id := range ids {
			snap, ok := rec.Before[id]
			if !ok {
				return nil, false
			}
			ps = append(ps, model.Participant{
				ID:          id,
				Tier:        snap.Tier,
				Rating:      snap.Rating,
				Sigma:       snap.Sigma,
				GamesPlayed: snap.GamesPlayed,
			})
		}
		return ps, len(ps) > 0
	}
	a, okA := side(rec.Result.TeamA)
	b, okB := side(rec.Result.TeamB)
	if !okA || !okB {
		return Game{}, false
	}
	return Game{Result: rec.Result, TeamA: a, TeamB: b}, true
}
