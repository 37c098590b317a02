package service

import (
	"context"
	"fmt"

	"github.com/okian/rally/internal/domain/update"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Train fits the learned rating model on the recorded game history,
// installs it and saves it to the model path when one is configured.
func (s *Service) Train(ctx context.Context, opts ...update.TrainerOption) (*update.LinearModel, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	records := s.registry.Games(ctx, "", 0)
	base := []update.TrainerOption{update.WithTarget(s.stat), update.WithClock(s.now)}
	trainer := update.NewTrainer(append(base, opts...)...)

	m, err := trainer.Train(ctx, records)
	if err != nil {
		metrics.RecordErrorByComponent("trainer", "train_error")
		return nil, fmt.Errorf("train rating model: %w", err)
	}
	s.learned.SetModel(m)
	metrics.RecordModelTraining(m.Loss)

	if s.modelPath != "" {
		if err := update.SaveModel(s.modelPath, m); err != nil {
			return m, err
		}
	}
	s.logger.Info(ctx, "rating model trained",
		logger.Int("samples", m.Samples),
		logger.Float64("loss", m.Loss),
		logger.String("path", s.modelPath),
	)
	return m, nil
}
