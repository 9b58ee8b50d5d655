package platform

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogflow/internal/domain"
	"cogflow/internal/expreval"
	"cogflow/internal/nodeeval"
	"cogflow/internal/scheduler"
)

func sampleDoc(id string) domain.Document {
	return domain.Document{
		Metadata: domain.Metadata{ID: id, Name: "Sample", Version: "1.0.0", CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z"},
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeConcept, Label: "A", Data: domain.NodeData{Value: 4.0}},
			{ID: "b", Type: domain.NodeConcept, Label: "B"},
		},
		Relations: []domain.Relation{
			{ID: "r1", Type: domain.RelationInfluences, Source: "a", Target: "b"},
		},
	}
}

func newTestPlatform() *Platform {
	return New(nodeeval.New(expreval.New(), nil))
}

func TestPlatformValidateRejectsBadDocument(t *testing.T) {
	p := newTestPlatform()
	result := p.Validate(&domain.Document{})
	assert.False(t, result.Valid)
}

// graphShape projects the parts of a compiled graph that must be
// reproducible across identical Compile calls, sidestepping domain.Graph's
// unexported dense-array storage when diffing with go-cmp.
type graphShape struct {
	Nodes       []domain.Node
	Relations   []domain.Relation
	Forward     map[string][]string
	Reverse     map[string][]string
	EntryPoints []string
	ExitPoints  []string
	Complexity  domain.Complexity
}

func shapeOf(g *domain.Graph) graphShape {
	return graphShape{
		Nodes:       g.Nodes(),
		Relations:   g.Relations(),
		Forward:     g.Forward,
		Reverse:     g.Reverse,
		EntryPoints: g.EntryPoints,
		ExitPoints:  g.ExitPoints,
		Complexity:  g.Compilation.Complexity,
	}
}

func TestPlatformCompileCachesGraph(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-1")

	validation, graph, err := p.Compile(&doc, "")
	require.NoError(t, err)
	require.True(t, validation.Valid)
	require.NotNil(t, graph)

	cached, ok := p.CachedGraph("doc-1")
	require.True(t, ok)
	assert.Contains(t, p.CachedGraphIDs(), "doc-1")

	diff := cmp.Diff(shapeOf(graph), shapeOf(cached))
	assert.Empty(t, diff, "cached graph must be exactly what Compile returned")
}

func TestPlatformCompileIsDeterministicAcrossRuns(t *testing.T) {
	p := newTestPlatform()
	doc1 := sampleDoc("doc-a")
	doc2 := sampleDoc("doc-a")

	_, g1, err := p.Compile(&doc1, "")
	require.NoError(t, err)
	_, g2, err := p.Compile(&doc2, "")
	require.NoError(t, err)

	diff := cmp.Diff(shapeOf(g1), shapeOf(g2))
	assert.Empty(t, diff, "compiling the same document twice must produce structurally identical graphs")
}

func TestPlatformExecuteRunsCachedGraph(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-2")
	_, _, err := p.Compile(&doc, "")
	require.NoError(t, err)

	result, err := p.Execute(context.Background(), "doc-2", nil, scheduler.Overrides{Mode: domain.ModeSequential, MaxIterations: 50, TimeoutMs: 5000})
	require.NoError(t, err)
	require.Nil(t, result.Error)
	assert.Equal(t, 4.0, result.FinalValues["b"])

	history := p.History("doc-2")
	require.Len(t, history, 1)
	assert.Equal(t, result.Iterations, history[0].Result.Iterations)
}

func TestPlatformExecuteUnknownIDErrors(t *testing.T) {
	p := newTestPlatform()
	_, err := p.Execute(context.Background(), "missing", nil, scheduler.Overrides{})
	assert.Error(t, err)
}

func TestPlatformSimulateDoesNotAffectHistory(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-3")
	_, _, err := p.Compile(&doc, "")
	require.NoError(t, err)

	_, err = p.Simulate(context.Background(), "doc-3", nil, scheduler.Overrides{Mode: domain.ModeSequential, MaxIterations: 50, TimeoutMs: 5000})
	require.NoError(t, err)
	assert.Empty(t, p.History("doc-3"))
}

func TestPlatformClearHistoryByIDAndGlobally(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-4")
	_, _, err := p.Compile(&doc, "")
	require.NoError(t, err)

	overrides := scheduler.Overrides{Mode: domain.ModeSequential, MaxIterations: 50, TimeoutMs: 5000}
	_, err = p.Execute(context.Background(), "doc-4", nil, overrides)
	require.NoError(t, err)
	require.Len(t, p.History("doc-4"), 1)

	p.ClearHistory("doc-4")
	assert.Empty(t, p.History("doc-4"))

	_, err = p.Execute(context.Background(), "doc-4", nil, overrides)
	require.NoError(t, err)
	p.ClearHistory("")
	assert.Empty(t, p.History("doc-4"))
}

func TestPlatformBatchExecuteSkipsUnknownIDs(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-5")
	_, _, err := p.Compile(&doc, "")
	require.NoError(t, err)

	overrides := scheduler.Overrides{Mode: domain.ModeSequential, MaxIterations: 50, TimeoutMs: 5000}
	results := p.BatchExecute(context.Background(), []BatchExecuteRequest{
		{ID: "doc-5"},
		{ID: "does-not-exist"},
	}, overrides)

	require.Len(t, results, 2)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
}

func TestPlatformStatsAggregatesHistory(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-6")
	_, _, err := p.Compile(&doc, "")
	require.NoError(t, err)

	overrides := scheduler.Overrides{Mode: domain.ModeSequential, MaxIterations: 50, TimeoutMs: 5000}
	_, err = p.Execute(context.Background(), "doc-6", nil, overrides)
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, 1, stats.LoadedForms)
	assert.Equal(t, 1, stats.TotalExecutions)
	assert.Equal(t, 1, stats.SuccessfulExecutions)
}

func TestPlatformAnalyzeBucketsComplexity(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-7")
	analysis, validation, err := p.Analyze(&doc)
	require.NoError(t, err)
	require.True(t, validation.Valid)
	assert.Equal(t, ComplexityLow, analysis.Bucket)
	assert.Len(t, analysis.Issues, 2)
}

func TestPlatformReportIncludesValidationAndComplexity(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-8")
	report, err := p.Report(&doc)
	require.NoError(t, err)
	assert.Contains(t, report, "Validation: PASS")
	assert.Contains(t, report, "Complexity: low")
}

func TestPlatformExportHistoryFormats(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-9")
	_, _, err := p.Compile(&doc, "")
	require.NoError(t, err)
	overrides := scheduler.Overrides{Mode: domain.ModeSequential, MaxIterations: 50, TimeoutMs: 5000}
	_, err = p.Execute(context.Background(), "doc-9", nil, overrides)
	require.NoError(t, err)

	jsonOut, err := p.ExportHistory("doc-9", ExportJSON)
	require.NoError(t, err)
	var decoded []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(jsonOut, &decoded))
	assert.Len(t, decoded, 1)

	csvOut, err := p.ExportHistory("doc-9", ExportCSV)
	require.NoError(t, err)
	assert.Contains(t, string(csvOut), "key,mode,iterations,converged,duration_ms,error")

	summaryOut, err := p.ExportHistory("doc-9", ExportSummary)
	require.NoError(t, err)
	assert.Contains(t, string(summaryOut), "# Execution history: doc-9")

	_, err = p.ExportHistory("doc-9", "xml")
	assert.Error(t, err)
}

func TestPlatformLoadReadsValidatesAndCompiles(t *testing.T) {
	p := newTestPlatform()
	doc := sampleDoc("doc-10")
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	result, err := p.Load(path)
	require.NoError(t, err)
	require.True(t, result.Validation.Valid)
	require.NotNil(t, result.Graph)
	assert.Equal(t, "doc-10", result.Graph.Metadata.ID)
}

func TestPlatformLoadReportsMalformedJSON(t *testing.T) {
	p := newTestPlatform()
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	result, err := p.Load(path)
	require.NoError(t, err)
	assert.False(t, result.Validation.Valid)
	assert.Nil(t, result.Graph)
}

func TestTemplateFillsDefaults(t *testing.T) {
	doc := Template("tmpl-1", "Template", "author")
	assert.Equal(t, "tmpl-1", doc.Metadata.ID)
	assert.Equal(t, "1.0.0", doc.Metadata.Version)
	assert.NotEmpty(t, doc.Metadata.CreatedAt)
	assert.Empty(t, doc.Nodes)
}
