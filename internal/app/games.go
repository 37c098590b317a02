package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/update"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// RecordGame applies a finished game now and returns the updated
// participants. A game id is applied at most once.
func (s *Service) RecordGame(ctx context.Context, g model.GameResult) (update.Outcome, error) {
	if err := s.running(); err != nil {
		return update.Outcome{}, err
	}
	g, err := s.admit(ctx, g)
	if err != nil {
		return update.Outcome{}, err
	}
	out, err := s.apply(ctx, g)
	if err != nil {
		s.deduper.Unrecord(ctx, g.ID)
		return update.Outcome{}, err
	}
	return out, nil
}

// SubmitGame queues a finished game for the rating worker and returns its
// id. A full queue returns ErrBackpressure.
func (s *Service) SubmitGame(ctx context.Context, g model.GameResult) (string, error) {
	if err := s.running(); err != nil {
		return "", err
	}
	g, err := s.admit(ctx, g)
	if err != nil {
		return "", err
	}
	if err := s.queue.Enqueue(ctx, g); err != nil {
		s.deduper.Unrecord(ctx, g.ID)
		if errors.Is(err, queue.ErrFull) {
			return "", fmt.Errorf("%w: %v", ErrBackpressure, err)
		}
		return "", err
	}
	s.logger.Debug(ctx, "game queued", logger.String("gameID", g.ID))
	return g.ID, nil
}

// ApplyGame is called by the rating worker for queued games.
func (s *Service) ApplyGame(ctx context.Context, g queue.Game) error { //nolint:gocritic // hugeParam: matches worker.Applier
	_, err := s.apply(ctx, g)
	if err != nil {
		s.deduper.Unrecord(ctx, g.ID)
	}
	return err
}

// admit validates g, assigns an id when missing and claims the id.
func (s *Service) admit(ctx context.Context, g model.GameResult) (model.GameResult, error) {
	if err := update.Validate(g); err != nil {
		return g, err
	}
	if g.ID == "" {
		g.ID = model.NewGameID()
	}
	if g.PlayedAt.IsZero() {
		g.PlayedAt = s.now().UTC()
	}
	if s.deduper.SeenAndRecord(ctx, g.ID) || s.registry.HasGame(g.ID) {
		metrics.RecordGameDuplicate()
		s.logger.Debug(ctx, "duplicate game skipped", logger.String("gameID", g.ID))
		return g, fmt.Errorf("%w: %s", model.ErrDuplicateGame, g.ID)
	}
	return g, nil
}

func (s *Service) apply(ctx context.Context, g model.GameResult) (update.Outcome, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if s.registry.HasGame(g.ID) {
		metrics.RecordGameDuplicate()
		return update.Outcome{}, fmt.Errorf("%w: %s", model.ErrDuplicateGame, g.ID)
	}
	ids := make([]string, 0, len(g.TeamA)+len(g.TeamB))
	ids = append(ids, g.TeamA...)
	ids = append(ids, g.TeamB...)
	roster, err := s.registry.Roster(ctx, ids)
	if err != nil {
		return update.Outcome{}, err
	}
	out, err := s.engine.Apply(ctx, g, roster)
	if err != nil {
		metrics.RecordErrorByComponent("engine", "apply_error")
		return update.Outcome{}, err
	}
	if err := s.registry.RecordGame(ctx, out.Record, out.Updated); err != nil {
		metrics.RecordErrorByComponent("registry", "record_error")
		return update.Outcome{}, err
	}
	s.engine.Commit(out)

	metrics.RecordGameRecorded()
	for _, d := range out.Record.Deltas {
		metrics.RecordAdjustment(math.Abs(d))
	}
	s.logger.Info(ctx, "game recorded",
		logger.String("gameID", g.ID),
		logger.Int("scoreA", g.ScoreA),
		logger.Int("scoreB", g.ScoreB),
		logger.Int("participants", len(out.Updated)),
	)
	return out, nil
}

// FeedbackRequest is a manual verdict on a matchup that was not scored.
type FeedbackRequest struct {
	TeamA []string `json:"team_a"`
	TeamB []string `json:"team_b"`
	// Winner is 1 when team A won and -1 when team B won.
	Winner int `json:"winner"`
}

// Feedback applies a manual verdict as a virtual 25-22 game. It is not
// recorded in the game history.
func (s *Service) Feedback(ctx context.Context, req FeedbackRequest) ([]model.Participant, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	ids := make([]string, 0, len(req.TeamA)+len(req.TeamB))
	ids = append(ids, req.TeamA...)
	ids = append(ids, req.TeamB...)
	roster, err := s.registry.Roster(ctx, ids)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Feedback(ctx, req.TeamA, req.TeamB, req.Winner, roster)
	if err != nil {
		return nil, err
	}
	if err := s.registry.SaveAll(ctx, out.Updated); err != nil {
		return nil, err
	}
	for _, d := range out.Record.Deltas {
		metrics.RecordAdjustment(math.Abs(d))
	}
	s.logger.Info(ctx, "feedback applied",
		logger.Int("winner", req.Winner),
		logger.Int("participants", len(out.Updated)),
	)
	return out.Updated, nil
}
