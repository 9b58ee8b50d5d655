package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogflow/internal/domain"
	"cogflow/internal/expreval"
	"cogflow/internal/nodeeval"
	"cogflow/internal/platform"
)

func testServer() *Server {
	p := platform.New(nodeeval.New(expreval.New(), nil))
	return NewServer(p, nil)
}

func sampleDocument(id string) domain.Document {
	return domain.Document{
		Metadata: domain.Metadata{ID: id, Name: "Sample", Version: "1.0.0", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z"},
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeConcept, Label: "A", Data: domain.NodeData{Value: 3.0}},
			{ID: "b", Type: domain.NodeConcept, Label: "B"},
		},
		Relations: []domain.Relation{
			{ID: "r1", Type: domain.RelationInfluences, Source: "a", Target: "b"},
		},
	}
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.ContentLength = int64(reader.Len())
	} else {
		req.ContentLength = 0
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleHealthReportsOK(t *testing.T) {
	s := testServer()
	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, version, body["version"])
}

func TestHandleValidateRejectsEmptyDocument(t *testing.T) {
	s := testServer()
	rec := doRequest(t, s, http.MethodPost, "/api/validate", domain.Document{})
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["valid"])
}

func TestHandleValidateRejectsMalformedBody(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodPost, "/api/validate", bytes.NewReader([]byte("{not json")))
	req.ContentLength = 9
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestHandleCompileThenExecuteByID(t *testing.T) {
	s := testServer()
	doc := sampleDocument("http-doc-1")

	compileRec := doRequest(t, s, http.MethodPost, "/api/compile", compileRequest{Form: doc})
	require.Equal(t, http.StatusOK, compileRec.Code)
	compileBody := decodeBody(t, compileRec)
	require.Equal(t, true, compileBody["success"])

	listRec := doRequest(t, s, http.MethodGet, "/api/forms", nil)
	require.Equal(t, http.StatusOK, listRec.Code)
	listBody := decodeBody(t, listRec)
	ids := listBody["data"].([]any)
	assert.Contains(t, ids, "http-doc-1")

	execRec := doRequest(t, s, http.MethodPost, "/api/execute/http-doc-1", executeRequest{
		Config: &executeConfigOverride{Mode: domain.ModeSequential, MaxIterations: 50, TimeoutMs: 5000},
	})
	require.Equal(t, http.StatusOK, execRec.Code)
	execBody := decodeBody(t, execRec)
	result := execBody["data"].(map[string]any)
	assert.Equal(t, float64(3), result["final_values"].(map[string]any)["b"])
}

func TestHandleExecuteByIDMissingFormReturnsNotFound(t *testing.T) {
	s := testServer()
	rec := doRequest(t, s, http.MethodPost, "/api/execute/does-not-exist", executeRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleFormGraphMissingReturnsNotFound(t *testing.T) {
	s := testServer()
	rec := doRequest(t, s, http.MethodGet, "/api/forms/does-not-exist/graph", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTemplateReturnsFilledDefaults(t *testing.T) {
	s := testServer()
	rec := doRequest(t, s, http.MethodPost, "/api/forms/template", templateRequest{ID: "t1", Name: "Template"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	metadata := data["metadata"].(map[string]any)
	assert.Equal(t, "t1", metadata["id"])
}

func TestHandleStatsReflectsLoadedForms(t *testing.T) {
	s := testServer()
	doRequest(t, s, http.MethodPost, "/api/compile", compileRequest{Form: sampleDocument("http-doc-2")})

	rec := doRequest(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["loaded_forms"])
}

func TestHandleExportExecutionsSetsContentType(t *testing.T) {
	s := testServer()
	doc := sampleDocument("http-doc-3")
	doRequest(t, s, http.MethodPost, "/api/compile", compileRequest{Form: doc})
	doRequest(t, s, http.MethodPost, "/api/execute/http-doc-3", executeRequest{
		Config: &executeConfigOverride{Mode: domain.ModeSequential, MaxIterations: 50, TimeoutMs: 5000},
	})

	rec := doRequest(t, s, http.MethodPost, "/api/export/executions", exportRequest{FormID: "http-doc-3", Format: platform.ExportCSV})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "key,mode,iterations")
}
