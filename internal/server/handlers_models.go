package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/jonathan/ontology-api/internal/modelslot"
)

// handleModelStatus returns the status of every model slot.
func (s *Server) handleModelStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"slots":    s.slots.AllInfo(),
		"allReady": s.slots.AllReady(),
	})
}

// handleModelSlotStatus returns the status of a single model slot.
func (s *Server) handleModelSlotStatus(w http.ResponseWriter, r *http.Request) {
	info, err := s.slots.Info(r.PathValue("name"))
	if err != nil {
		var unknown *modelslot.UnknownSlotError
		if errors.As(err, &unknown) {
			s.errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get slot status")
		return
	}
	s.jsonResponse(w, http.StatusOK, info)
}

// handleModelsReady reports whether the base model is loaded. Intended as a
// readiness probe for the generation endpoints.
func (s *Server) handleModelsReady(w http.ResponseWriter, _ *http.Request) {
	ready := s.slots.Ready()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.jsonResponse(w, status, map[string]bool{"ready": ready})
}

// handleLoadBase loads the base model eagerly instead of waiting for the
// first generation request.
func (s *Server) handleLoadBase(w http.ResponseWriter, r *http.Request) {
	if err := s.slots.LoadBase(r.Context()); err != nil {
		log.Printf("[server] load base model: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load base model: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "loaded"})
}

// handleUnloadModels unloads every loaded model. Admin only.
func (s *Server) handleUnloadModels(w http.ResponseWriter, r *http.Request) {
	if err := s.slots.UnloadAll(r.Context()); err != nil {
		log.Printf("[server] unload models: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to unload models: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "unloaded"})
}
