package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonathan/ontology-api/internal/jobs"
	"github.com/jonathan/ontology-api/internal/types"
)

// jobAccepted is the 202 body returned when a background job is started.
type jobAccepted struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// loadSchema fetches the cached schema for a database, writing the error
// response itself when the database or schema is missing.
func (s *Server) loadSchema(w http.ResponseWriter, r *http.Request, id string) *types.DatabaseSchema {
	record, err := s.store.GetDatabase(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get database")
		return nil
	}
	if record == nil {
		s.errorResponse(w, http.StatusNotFound, "Database not found")
		return nil
	}
	schema, err := s.store.GetSchema(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get schema")
		return nil
	}
	if schema == nil {
		s.errorResponse(w, http.StatusConflict, "Database has no introspected schema yet")
		return nil
	}
	return schema
}

// handleCluster starts a clustering job and returns its id.
func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	schema := s.loadSchema(w, r, id)
	if schema == nil {
		return
	}

	job := s.jobs.Create(jobs.KindClustering, id, nil)
	s.jobs.Start(job.ID, func(ctx context.Context) (any, error) {
		progress := func(current, total int, message string) {
			_ = s.jobs.UpdateProgress(job.ID, current, total, message)
		}
		clusters, err := s.pipeline.Cluster(ctx, schema, progress)
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveClustering(ctx, id, clusters); err != nil {
			return nil, err
		}
		return types.ClusteringResult{
			DatabaseID: id,
			Clusters:   clusters,
			CreatedAt:  time.Now(),
		}, nil
	})

	s.jsonResponse(w, http.StatusAccepted, jobAccepted{JobID: job.ID, Status: string(job.Status)})
}

// handleSaveClustering stores a user-adjusted clustering.
func (s *Server) handleSaveClustering(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.SaveClusteringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Clustering.Clusters) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "clustering.clusters must not be empty")
		return
	}

	record, err := s.store.GetDatabase(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get database")
		return
	}
	if record == nil {
		s.errorResponse(w, http.StatusNotFound, "Database not found")
		return
	}

	if err := s.store.SaveClustering(r.Context(), id, req.Clustering.Clusters); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save clustering")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handleGetClustering returns the saved clustering of a database.
func (s *Server) handleGetClustering(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.store.GetClustering(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get clustering")
		return
	}
	if result == nil {
		s.errorResponse(w, http.StatusNotFound, "No clustering saved for this database")
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
