package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jonathan/ontology-api/internal/jobs"
	"github.com/jonathan/ontology-api/internal/types"
)

// handleGenerateConcepts starts a job that extracts concepts for every
// cluster in the request, sequentially. Progress is weighted by cluster
// size so a large cluster does not make the bar jump.
func (s *Server) handleGenerateConcepts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.GenerateConceptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	schema := s.loadSchema(w, r, id)
	if schema == nil {
		return
	}

	job := s.jobs.Create(jobs.KindConcepts, id, map[string]any{"clusterCount": len(req.Clusters)})
	s.jobs.Start(job.ID, func(ctx context.Context) (any, error) {
		var totalWeight float64
		weights := make([]float64, len(req.Clusters))
		for i, cluster := range req.Clusters {
			weight := float64(len(cluster.Tables))
			if weight < 1 {
				weight = 1
			}
			weights[i] = weight
			totalWeight += weight
		}

		var all []types.Concept
		var done float64
		for i, cluster := range req.Clusters {
			weight := weights[i]
			progress := func(current, total int, message string) {
				if total <= 0 {
					return
				}
				overall := (done + weight*float64(current)/float64(total)) / totalWeight * 100
				_ = s.jobs.UpdateProgress(job.ID, int(overall), 100, message)
			}

			tables := schema.TablesByName(cluster.Tables)
			concepts, err := s.pipeline.ExtractConcepts(ctx, cluster, tables, all, progress)
			if err != nil {
				return nil, fmt.Errorf("cluster %d: %w", cluster.ClusterID, err)
			}
			all = append(all, concepts...)
			done += weight
			_ = s.jobs.SetPartialResult(job.ID, map[string]any{"concepts": all})
		}

		if err := s.store.SaveOntology(ctx, id, all, nil); err != nil {
			return nil, err
		}
		return map[string]any{"concepts": all}, nil
	})

	s.jsonResponse(w, http.StatusAccepted, jobAccepted{JobID: job.ID, Status: string(job.Status)})
}

// handleClusterConcepts extracts concepts for a single cluster synchronously.
// Used by the UI to refine one cluster without rerunning the whole pipeline.
func (s *Server) handleClusterConcepts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	clusterID, err := strconv.Atoi(r.PathValue("clusterId"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid cluster id")
		return
	}

	var req types.ClusterConceptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	schema := s.loadSchema(w, r, id)
	if schema == nil {
		return
	}
	tables := schema.TablesByName(req.Tables)
	if len(tables) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "None of the requested tables exist in the schema")
		return
	}

	cluster := types.ClusterInfo{ClusterID: clusterID, Tables: req.Tables}
	concepts, err := s.pipeline.ExtractConcepts(r.Context(), cluster, tables, req.ExistingConcepts, nil)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Concept generation failed: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"concepts": concepts})
}

// handleSuggestNames asks the naming slot for human-friendly names for a
// group of tables, synchronously.
func (s *Server) handleSuggestNames(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.SuggestNamesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	schema := s.loadSchema(w, r, id)
	if schema == nil {
		return
	}
	if len(schema.TablesByName(req.Tables)) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "None of the requested tables exist in the schema")
		return
	}

	names, err := s.pipeline.SuggestNames(r.Context(), req.Tables)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Name suggestion failed: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"names": names})
}

// handleGetOntology returns the stored conceptual model of a database.
func (s *Server) handleGetOntology(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()

	record, err := s.store.GetDatabase(ctx, id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get database")
		return
	}
	if record == nil {
		s.errorResponse(w, http.StatusNotFound, "Database not found")
		return
	}

	concepts, relationships, err := s.store.GetOntology(ctx, id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get ontology")
		return
	}
	if concepts == nil {
		concepts = []types.Concept{}
	}
	if relationships == nil {
		relationships = []types.Relationship{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"databaseId":    id,
		"concepts":      concepts,
		"relationships": relationships,
	})
}
