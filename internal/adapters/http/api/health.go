package api

import "net/http"

type healthResponse struct {
	Status  string `json:"status"`
	Started bool   `json:"started"`
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	started, _ := s.deps.GetStats()["started"].(bool)
	status, code := "ok", http.StatusOK
	if !started {
		status, code = "starting", http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{Status: status, Started: started})
}
