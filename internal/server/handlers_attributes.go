package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jonathan/ontology-api/internal/jobs"
	"github.com/jonathan/ontology-api/internal/types"
)

// handleGenerateAttributes starts a job that enriches the given concepts
// with descriptive attributes drawn from the listed tables.
func (s *Server) handleGenerateAttributes(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req types.GenerateAttributesRequest
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

	job := s.jobs.Create(jobs.KindAttributes, id, map[string]any{"conceptCount": len(req.Concepts)})
	s.jobs.Start(job.ID, func(ctx context.Context) (any, error) {
		progress := func(current, total int, message string) {
			_ = s.jobs.UpdateProgress(job.ID, current, total, message)
		}
		enriched, err := s.pipeline.GenerateAttributes(ctx, req.Concepts, tables, progress)
		if err != nil {
			return nil, err
		}

		_, relationships, err := s.store.GetOntology(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveOntology(ctx, id, enriched, relationships); err != nil {
			return nil, err
		}
		return map[string]any{"concepts": enriched}, nil
	})

	s.jsonResponse(w, http.StatusAccepted, jobAccepted{JobID: job.ID, Status: string(job.Status)})
}
