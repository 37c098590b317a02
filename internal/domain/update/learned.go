package update

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// FeatureCount is the length of a participant feature vector.
const FeatureCount = 6

// Feature normalisation constants.
const (
	ratingNorm = 1000.0
	sigmaNorm  = 100.0
	scoreNorm  = 25.0
)

// FeatureNames documents the vector layout stored with a model.
var FeatureNames = [FeatureCount]string{"rating", "sigma", "team_avg", "opponent_avg", "score_diff", "won"}

// Features is one participant's view of a game.
type Features [FeatureCount]float64

// FeaturesFor builds the vector of p on a team averaging teamAvg against
// oppAvg, with scoreDiff and won taken from that team's side.
func FeaturesFor(p model.Participant, teamAvg, oppAvg float64, scoreDiff int, won float64) Features {
	return Features{
		p.Rating / ratingNorm,
		p.Sigma / sigmaNorm,
		teamAvg / ratingNorm,
		oppAvg / ratingNorm,
		float64(scoreDiff) / scoreNorm,
		won,
	}
}

// LinearModel predicts a rating delta as a weighted sum of features.
type LinearModel struct {
	Features  [FeatureCount]string `json:"features"`
	Weights   []float64            `json:"weights"`
	Bias      float64              `json:"bias"`
	Samples   int                  `json:"samples"`
	Loss      float64              `json:"loss"`
	TrainedAt time.Time            `json:"trained_at"`
}

// Validate reports whether the model can be used for prediction.
func (m *LinearModel) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: no model loaded", model.ErrModelUnavailable)
	}
	if len(m.Weights) != FeatureCount {
		return fmt.Errorf("%w: model has %d weights, want %d", model.ErrModelUnavailable, len(m.Weights), FeatureCount)
	}
	for _, w := range append([]float64{m.Bias}, m.Weights...) {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: model has non-finite parameters", model.ErrModelUnavailable)
		}
	}
	return nil
}

// Predict returns the model output for x.
func (m *LinearModel) Predict(x Features) float64 {
	s := m.Bias
	for i, w := range m.Weights {
		s += w * x[i]
	}
	return s
}

// SaveModel writes m as JSON, replacing path atomically.
func SaveModel(path string, m *LinearModel) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-*.json")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // best effort after rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace model file: %w", err)
	}
	return nil
}

// LoadModel reads and validates a model written by SaveModel.
func LoadModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", model.ErrModelUnavailable, path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Learned predicts deltas with a trained LinearModel. The model can be
// swapped while games are being applied.
type Learned struct {
	mu    sync.RWMutex
	model *LinearModel
}

// NewLearned creates the learned strategy; m may be nil until trained.
func NewLearned(m *LinearModel) *Learned {
	return &Learned{model: m}
}

// Name implements Strategy.
func (l *Learned) Name() string { return StrategyLearned }

// SetModel replaces the active model.
func (l *Learned) SetModel(m *LinearModel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.model = m
}

// Model returns the active model, or nil.
func (l *Learned) Model() *LinearModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.model
}

// ComputeAdjustments implements Strategy. It fails with
// model.ErrModelUnavailable when no valid model is loaded or a prediction is
// not finite.
func (l *Learned) ComputeAdjustments(ctx context.Context, g Game) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := l.Model()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(g.TeamA)+len(g.TeamB))
	for _, x := range gameFeatures(g) {
		d := m.Predict(x.features)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: non-finite prediction for %s", model.ErrModelUnavailable, x.id)
		}
		out[x.id] = d
	}
	return out, nil
}

type participantFeatures struct {
	id       string
	features Features
}

// gameFeatures returns the feature vector of every participant in g.
func gameFeatures(g Game) []participantFeatures {
	avgA, avgB := averages(g)
	actual := actualScore(g.Result)
	diff := g.Result.ScoreA - g.Result.ScoreB

	out := make([]participantFeatures, 0, len(g.TeamA)+len(g.TeamB))
	for _, p := range g.TeamA {
		out = append(out, participantFeatures{p.ID, FeaturesFor(p, avgA, avgB, diff, actual)})
	}
	for _, p := range g.TeamB {
		out = append(out, participantFeatures{p.ID, FeaturesFor(p, avgB, avgA, -diff, 1-actual)})
	}
	return out
}
