package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jonathan/ontology-api/internal/types"
)

// handleCreateDatabase registers a new database: a metadata record, a
// physical database, the uploaded SQL script and a first introspection.
func (s *Server) handleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	var req types.CreateDatabaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	record, err := s.store.CreateDatabase(ctx, req.Name)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create database record")
		return
	}

	// The record id doubles as the physical database name.
	if err := s.prov.CreateDatabase(ctx, record.ID); err != nil {
		log.Printf("[server] provision %s: %v", record.ID, err)
		_ = s.store.UpdateStatus(ctx, record.ID, "error")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to provision database")
		return
	}

	if req.SQL != "" {
		if err := s.prov.ExecuteSQL(ctx, record.ID, req.SQL); err != nil {
			log.Printf("[server] execute script in %s: %v", record.ID, err)
			_ = s.store.UpdateStatus(ctx, record.ID, "error")
			s.errorResponse(w, http.StatusBadRequest, "SQL script failed: "+err.Error())
			return
		}
	}

	schema, err := s.prov.Schema(ctx, record.ID, record.ID)
	if err != nil {
		log.Printf("[server] introspect %s: %v", record.ID, err)
		_ = s.store.UpdateStatus(ctx, record.ID, "error")
		s.errorResponse(w, http.StatusInternalServerError, "Failed to introspect database")
		return
	}
	if err := s.store.SaveSchema(ctx, record.ID, schema); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save schema")
		return
	}

	record.Status = "ready"
	record.TableCount = schema.TableCount
	s.jsonResponse(w, http.StatusCreated, record)
}

// handleListDatabases returns all registered databases.
func (s *Server) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	databases, err := s.store.ListDatabases(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list databases")
		return
	}
	if databases == nil {
		databases = []types.Database{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"databases": databases})
}

// handleGetDatabase returns one database record.
func (s *Server) handleGetDatabase(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetDatabase(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get database")
		return
	}
	if record == nil {
		s.errorResponse(w, http.StatusNotFound, "Database not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, record)
}

// handleGetSchema returns the cached introspected schema of a database.
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	schema, err := s.store.GetSchema(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get schema")
		return
	}
	if schema == nil {
		s.errorResponse(w, http.StatusNotFound, "Schema not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, schema)
}

// handleDeleteDatabase removes the metadata record and drops the physical
// database. Admin only.
func (s *Server) handleDeleteDatabase(w http.ResponseWriter, r *http.Request) {
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

	if err := s.prov.DropDatabase(ctx, id); err != nil {
		log.Printf("[server] drop %s: %v", id, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to drop database")
		return
	}
	if _, err := s.store.DeleteDatabase(ctx, id); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to delete database record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
