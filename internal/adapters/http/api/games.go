package api

import (
	"net/http"

	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/model"
)

type ackResponse struct {
	Status string `json:"status"`
	GameID string `json:"game_id"`
}

type recordResponse struct {
	GameID       string              `json:"game_id"`
	Participants []model.Participant `json:"participants"`
	Deltas       map[string]float64  `json:"deltas"`
}

// handlePlan handles POST /plan.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	const op = "api.plan"
	var req service.PlanRequest
	if err := decode(r, op, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	plan, err := s.deps.Plan(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// handleSubmitGame handles POST /games. The game is applied asynchronously.
func (s *Server) handleSubmitGame(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_game"
	var g model.GameResult
	if err := decode(r, op, &g); err != nil {
		writeDomainError(w, err)
		return
	}
	id, err := s.deps.SubmitGame(r.Context(), g)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", GameID: id})
}

// handleRecordGame handles POST /games/sync.
func (s *Server) handleRecordGame(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_game"
	var g model.GameResult
	if err := decode(r, op, &g); err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := s.deps.RecordGame(r.Context(), g)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{
		GameID:       out.Record.Result.ID,
		Participants: out.Updated,
		Deltas:       out.Record.Deltas,
	})
}

// handleFeedback handles POST /feedback.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	const op = "api.feedback"
	var req service.FeedbackRequest
	if err := decode(r, op, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	updated, err := s.deps.Feedback(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
