package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/rally/internal/app"
)

// handleCreateParticipant handles POST /participants.
func (s *Server) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_participant"
	var req service.Registration
	if err := decode(r, op, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	p, err := s.deps.CreateParticipant(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleGetParticipant handles GET /participants/{id}.
func (s *Server) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Participant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleAdjustRating handles PUT /participants/{id}/rating.
func (s *Server) handleAdjustRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.adjust_rating"
	var req service.Adjustment
	if err := decode(r, op, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Tier == nil && req.Rating == nil && req.Sigma == nil {
		writeDomainError(w, wrapKind(op, ErrBadRequest, nil))
		return
	}
	p, err := s.deps.AdjustRating(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleStandings handles GET /standings?limit=N.
func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	n := s.maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeDomainError(w, wrapKind(op, ErrBadRequest, err))
			return
		}
		if v > s.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", wrapKind(op, ErrBadRequest, nil))
			return
		}
		n = v
	}
	rows, err := s.deps.Standings(r.Context(), n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
