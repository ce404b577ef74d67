package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/ontology-api/internal/jobs"
)

// handleGetJob returns the current state of a job, including progress,
// partial results and the final result or error.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "Job not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get job")
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}
