package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"cogflow/internal/domain"
	cogerrors "cogflow/internal/domain/errors"
	"cogflow/internal/platform"
	"cogflow/internal/scheduler"
)

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var doc domain.Document
	if !decodeJSON(w, r, &doc) {
		return
	}
	writeOK(w, s.platform.Validate(&doc))
}

func (s *Server) handleValidateFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read uploaded file")
		return
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		writeOK(w, domain.NewValidationResult([]cogerrors.Issue{
			cogerrors.NewError(cogerrors.KindSchema, fmt.Sprintf("cannot parse document: %s", err)),
		}))
		return
	}
	writeOK(w, s.platform.Validate(&doc))
}

type compileRequest struct {
	Form             domain.Document        `json:"form"`
	OptimizationMode domain.OptimizationMode `json:"optimization_mode"`
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	validation, graph, err := s.platform.Compile(&req.Form, req.OptimizationMode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, map[string]any{"graph": graph, "validation": validation})
}

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.platform.CachedGraphIDs())
}

func (s *Server) handleFormGraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	graph, ok := s.platform.CachedGraph(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no cached graph for id %q", id))
		return
	}
	writeOK(w, graph)
}

type executeRequest struct {
	Form   *domain.Document      `json:"form,omitempty"`
	Inputs map[string]any         `json:"inputs,omitempty"`
	Config *executeConfigOverride `json:"config,omitempty"`
}

type executeConfigOverride struct {
	Mode          domain.ExecutionMode `json:"mode,omitempty"`
	MaxIterations int                  `json:"max_iterations,omitempty"`
	TimeoutMs     int                  `json:"timeout_ms,omitempty"`
}

func (o *executeConfigOverride) toOverrides() scheduler.Overrides {
	if o == nil {
		return scheduler.Overrides{}
	}
	return scheduler.Overrides{Mode: o.Mode, MaxIterations: o.MaxIterations, TimeoutMs: o.TimeoutMs}
}

func (s *Server) handleExecuteByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req executeRequest
	if !decodeJSONOptional(w, r, &req) {
		return
	}
	result, err := s.platform.Execute(r.Context(), id, req.Inputs, req.Config.toOverrides())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeExecutionResult(w, result)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Form == nil {
		writeError(w, http.StatusBadRequest, "form is required")
		return
	}
	validation, graph, err := s.platform.Compile(req.Form, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !validation.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "validation failed", "validation": validation})
		return
	}
	result, err := s.platform.Execute(r.Context(), graph.Metadata.ID, req.Inputs, req.Config.toOverrides())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeExecutionResult(w, result)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req executeRequest
	if !decodeJSONOptional(w, r, &req) {
		return
	}
	result, err := s.platform.Simulate(r.Context(), id, req.Inputs, req.Config.toOverrides())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeExecutionResult(w, result)
}

// writeExecutionResult wraps an ExecutionResult in the standard envelope,
// reflecting the run's actual outcome in the envelope's "success" field
// instead of always reporting true: a timed-out, iteration-capped, or
// node-evaluation-failed run must read as success=false end to end (spec
// §6 execute/simulate routes, spec lines 99/117/149/188).
func writeExecutionResult(w http.ResponseWriter, result *domain.ExecutionResult) {
	writeJSON(w, http.StatusOK, map[string]any{"success": result.Success, "data": result})
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeOK(w, s.platform.History(id))
}

func (s *Server) handleClearExecutions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.platform.ClearHistory(id)
	writeOK(w, map[string]any{"message": fmt.Sprintf("history cleared for %q", id)})
}

type templateRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Author string `json:"author,omitempty"`
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeOK(w, platform.Template(req.ID, req.Name, req.Author))
}

type formRequest struct {
	Form domain.Document `json:"form"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	analysis, _, err := s.platform.Analyze(&req.Form)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, analysis)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, err := s.platform.Report(&req.Form)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, map[string]any{"report": report, "format": "text"})
}

type exportRequest struct {
	FormID string                `json:"formId"`
	Format platform.ExportFormat `json:"format"`
}

func (s *Server) handleExportExecutions(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	data, err := s.platform.ExportHistory(req.FormID, req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := "application/json"
	switch req.Format {
	case platform.ExportCSV:
		contentType = "text/csv"
	case platform.ExportSummary:
		contentType = "text/markdown"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.FormID+"-executions."+string(req.Format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return false
	}
	return true
}

// decodeJSONOptional tolerates an empty body (execute/simulate routes may
// be called with no request payload at all).
func decodeJSONOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return decodeJSON(w, r, dst)
}
