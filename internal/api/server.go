// Package api exposes the pipeline over HTTP for lab automation clients.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"phaselock/adapters/postgres"
	"phaselock/domain/core"
	"phaselock/internal"
	"phaselock/internal/pipeline"
)

// Server serves pipeline runs over HTTP. The repository is optional; with
// no database configured, runs execute but are not persisted.
type Server struct {
	orchestrator *pipeline.Orchestrator
	repo         *postgres.RunRepository
	logger       *internal.Logger
}

// NewServer builds a Server. repo may be nil.
func NewServer(orchestrator *pipeline.Orchestrator, repo *postgres.RunRepository, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Server{orchestrator: orchestrator, repo: repo, logger: logger}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/api/runs", s.handleCreateRun)
	r.Get("/api/runs/{id}", s.handleGetRun)
	r.Get("/api/runs", s.handleListRuns)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRunRequest struct {
	ModeCount int `json:"mode_count"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.orchestrator.Run(r.Context(), req.ModeCount)
	if err != nil && result == nil {
		status := http.StatusInternalServerError
		if core.IsTopologyError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	if err != nil {
		// Partial result after a numerical breakdown: still report it.
		s.logger.Warn("api: run %s finished degraded: %v", result.RunID, err)
	}

	if s.repo != nil {
		if err := s.repo.Save(r.Context(), result); err != nil {
			s.logger.Error("api: failed to persist run %s: %v", result.RunID, err)
		}
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusNotImplemented, "persistence is not configured")
		return
	}
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	result, err := s.repo.Get(r.Context(), id)
	if errors.Is(err, core.ErrResultNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusNotImplemented, "persistence is not configured")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	results, err := s.repo.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
