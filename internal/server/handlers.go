package server

import (
	"encoding/json"
	"net/http"
)

const version = "1.0.0"

// handleHealth handles health check requests. The database is probed with a
// quick integrity check so a broken file reports unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": version,
		"service": "distributor",
	}

	if s.db != nil {
		if err := s.db.QuickCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("Health check failed")
			response["status"] = "unhealthy"
			response["error"] = err.Error()
			s.writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
