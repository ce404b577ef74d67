// Package server provides the HTTP REST API for the ontology learning
// backend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/ontology-api/internal/config"
	"github.com/jonathan/ontology-api/internal/jobs"
	"github.com/jonathan/ontology-api/internal/metrics"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server

	store    MetadataStore
	prov     Provisioner
	slots    Slots
	jobs     *jobs.Registry
	pipeline Pipeline
	metrics  *metrics.Metrics

	adminKeys  *config.AdminKeyConfig
	jwtService *JWTService

	sweepInterval time.Duration
	jobMaxAge     time.Duration
}

// Config holds server configuration
type Config struct {
	Port          int
	SweepInterval time.Duration
	JobMaxAge     time.Duration
}

// Deps holds the server's collaborators, constructed by the serve command.
type Deps struct {
	Store      MetadataStore
	Provision  Provisioner
	Slots      Slots
	Jobs       *jobs.Registry
	Pipeline   Pipeline
	Metrics    *metrics.Metrics
	AdminKeys  *config.AdminKeyConfig
	JWTService *JWTService
}

// New creates a new server instance
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		store:         deps.Store,
		prov:          deps.Provision,
		slots:         deps.Slots,
		jobs:          deps.Jobs,
		pipeline:      deps.Pipeline,
		metrics:       deps.Metrics,
		adminKeys:     deps.AdminKeys,
		jwtService:    deps.JWTService,
		sweepInterval: cfg.SweepInterval,
		jobMaxAge:     cfg.JobMaxAge,
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Database endpoints
	mux.HandleFunc("POST /databases", s.handleCreateDatabase)
	mux.HandleFunc("GET /databases", s.handleListDatabases)
	mux.HandleFunc("GET /databases/{id}", s.handleGetDatabase)
	mux.HandleFunc("GET /databases/{id}/schema", s.handleGetSchema)
	mux.HandleFunc("DELETE /databases/{id}", s.requireAdmin(s.handleDeleteDatabase))

	// Clustering endpoints
	mux.HandleFunc("POST /databases/{id}/cluster", s.handleCluster)
	mux.HandleFunc("PUT /databases/{id}/cluster", s.handleSaveClustering)
	mux.HandleFunc("GET /databases/{id}/cluster", s.handleGetClustering)

	// Generation endpoints
	mux.HandleFunc("POST /databases/{id}/concepts/generate", s.handleGenerateConcepts)
	mux.HandleFunc("POST /databases/{id}/concepts/cluster/{clusterId}", s.handleClusterConcepts)
	mux.HandleFunc("POST /databases/{id}/attributes/generate", s.handleGenerateAttributes)
	mux.HandleFunc("POST /databases/{id}/relationships/generate", s.handleGenerateRelationships)
	mux.HandleFunc("POST /databases/{id}/names/suggest", s.handleSuggestNames)
	mux.HandleFunc("GET /databases/{id}/ontology", s.handleGetOntology)

	// Job endpoints
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)

	// Model endpoints
	mux.HandleFunc("GET /models/status", s.handleModelStatus)
	mux.HandleFunc("GET /models/status/{name}", s.handleModelSlotStatus)
	mux.HandleFunc("GET /models/ready", s.handleModelsReady)
	mux.HandleFunc("POST /models/load-base", s.handleLoadBase)
	mux.HandleFunc("POST /models/unload", s.requireAdmin(s.handleUnloadModels))

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(s.withMetrics(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for synchronous generation
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the configured HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens for requests and runs the job sweeper until SIGINT or
// SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.sweepInterval > 0 {
		g.Go(func() error {
			s.jobs.StartSweeper(gctx, s.sweepInterval, s.jobMaxAge)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("[server] shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if cerr := s.jobs.Close(10 * time.Second); cerr != nil {
		log.Printf("[server] %v", cerr)
	}
	log.Println("[server] stopped")
	return err
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// statusRecorder captures the response status for the metrics middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withMetrics counts served requests by method, path and status.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.HTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rec.status))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
