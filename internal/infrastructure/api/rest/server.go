// Package rest is the thin HTTP adapter over the platform facade (spec §6
// "HTTP surface"), grounded on the pack's ServeMux-based server
// (internal/infrastructure/api/rest/server.go).
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"cogflow/internal/platform"
)

// version is stamped into the /health response.
const version = "1.0.0"

// Server is the HTTP adapter; it holds no business logic of its own, only
// request/response translation over *platform.Platform.
type Server struct {
	platform *platform.Platform
	mux      *http.ServeMux
	logger   *slog.Logger
	started  time.Time
}

// NewServer builds a Server with its routes wired.
func NewServer(p *platform.Platform, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		platform: p,
		mux:      http.NewServeMux(),
		logger:   logger,
		started:  time.Now().UTC(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler, logging every request before
// dispatching (grounded on the pack's server.ServeHTTP).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("request received", "method", r.Method, "path", r.URL.Path)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("POST /api/validate", s.handleValidate)
	s.mux.HandleFunc("POST /api/validate/file", s.handleValidateFile)
	s.mux.HandleFunc("POST /api/compile", s.handleCompile)
	s.mux.HandleFunc("GET /api/forms", s.handleListForms)
	s.mux.HandleFunc("GET /api/forms/{id}/graph", s.handleFormGraph)
	s.mux.HandleFunc("POST /api/execute/{id}", s.handleExecuteByID)
	s.mux.HandleFunc("POST /api/execute", s.handleExecute)
	s.mux.HandleFunc("POST /api/simulate/{id}", s.handleSimulate)
	s.mux.HandleFunc("GET /api/forms/{id}/executions", s.handleExecutions)
	s.mux.HandleFunc("DELETE /api/forms/{id}/executions", s.handleClearExecutions)
	s.mux.HandleFunc("POST /api/forms/template", s.handleTemplate)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/report", s.handleReport)
	s.mux.HandleFunc("POST /api/export/executions", s.handleExportExecutions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   version,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.platform.Stats()
	writeOK(w, map[string]any{
		"loaded_forms":          stats.LoadedForms,
		"total_executions":      stats.TotalExecutions,
		"successful_executions": stats.SuccessfulExecutions,
		"failed_executions":     stats.FailedExecutions,
		"avg_execution_ms":      stats.AvgExecutionMs,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
