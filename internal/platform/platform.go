// Package platform implements the facade (C6): a single entry point over
// the validator, compiler, scheduler, and the graph/history caches (spec
// §4.6), grounded on the pack's root-level facade pattern
// (mbflow.go / factory.go) that wires a validator+executor+store behind one
// public type.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cogflow/internal/compiler"
	"cogflow/internal/domain"
	cogerrors "cogflow/internal/domain/errors"
	"cogflow/internal/infrastructure/storage"
	"cogflow/internal/nodeeval"
	"cogflow/internal/notifier"
	"cogflow/internal/scheduler"
	"cogflow/internal/validator"
)

// Platform is the facade described by spec §4.6 "Contract".
type Platform struct {
	validator *validator.Validator
	compiler  *compiler.Compiler
	scheduler *scheduler.Scheduler
	store     *storage.Store
}

// New wires a Platform from its component parts. eval carries the custom
// node evaluator registry the caller built (spec §4.5 "Custom", §9 "no
// global registry").
func New(eval *nodeeval.Evaluator) *Platform {
	return &Platform{
		validator: validator.New(),
		compiler:  compiler.New(),
		scheduler: scheduler.New(eval),
		store:     storage.New(),
	}
}

// WithNotifier attaches a scheduler lifecycle-event sink (SPEC_FULL §4.8)
// and returns p for chaining at construction time.
func (p *Platform) WithNotifier(n notifier.Notifier) *Platform {
	p.scheduler.WithNotifier(n)
	return p
}

// LoadResult is returned by Load: the validation outcome plus, when valid,
// the compiled and cached graph (spec §4.6 "Load a document from a path").
type LoadResult struct {
	Validation domain.ValidationResult
	Graph      *domain.Graph
}

// Load reads path as a JSON document, validates it, compiles it on success,
// and caches the result (spec §4.6 "Load").
func (p *Platform) Load(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("read document: %w", err)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		result := domain.NewValidationResult([]cogerrors.Issue{
			cogerrors.NewError(cogerrors.KindSchema, fmt.Sprintf("cannot parse document: %s", err)).WithPath(path),
		})
		return LoadResult{Validation: result}, nil
	}

	validation := p.validator.Validate(&doc)
	if !validation.Valid {
		return LoadResult{Validation: validation}, nil
	}

	graph, err := p.compiler.Compile(&doc)
	if err != nil {
		return LoadResult{}, fmt.Errorf("compile document: %w", err)
	}
	p.store.SaveGraph(graph)

	return LoadResult{Validation: validation, Graph: graph}, nil
}

// Validate validates a document object directly (spec §4.6 "validate a
// document object directly").
func (p *Platform) Validate(doc *domain.Document) domain.ValidationResult {
	return p.validator.Validate(doc)
}

// ValidateFiles batch-validates a list of paths (spec §4.6 "batch-validate
// a list of paths").
func (p *Platform) ValidateFiles(paths []string) map[string]domain.ValidationResult {
	out := make(map[string]domain.ValidationResult, len(paths))
	for _, path := range paths {
		out[path] = p.validator.ValidateFile(path)
	}
	return out
}

// Compile validates then compiles doc, applying an optional optimization
// mode, and caches the result (spec §4.6 "compile with optimization mode").
func (p *Platform) Compile(doc *domain.Document, mode domain.OptimizationMode) (domain.ValidationResult, *domain.Graph, error) {
	validation := p.validator.Validate(doc)
	if !validation.Valid {
		return validation, nil, nil
	}
	graph, err := p.compiler.Compile(doc)
	if err != nil {
		return validation, nil, err
	}
	if mode != "" {
		graph = p.compiler.Optimize(graph, mode)
	}
	p.store.SaveGraph(graph)
	return validation, graph, nil
}

// CachedGraph fetches a cached graph by document id (spec §4.6 "fetch a
// cached graph").
func (p *Platform) CachedGraph(id string) (*domain.Graph, bool) {
	return p.store.Graph(id)
}

// CachedGraphIDs lists every cached document id (spec §4.6 "list cached
// ids").
func (p *Platform) CachedGraphIDs() []string {
	return p.store.GraphIDs()
}

// SaveGraphJSON serializes a cached graph as JSON (spec §4.6 "save a
// compiled graph as JSON", §6 "Graph serialization").
func (p *Platform) SaveGraphJSON(id, path string) error {
	graph, ok := p.store.Graph(id)
	if !ok {
		return fmt.Errorf("no cached graph for id %q", id)
	}
	data, err := json.MarshalIndent(graphView(graph), "", "  ")
	if err != nil {
		return fmt.Errorf("serialize graph: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// graphView renders a Graph as a JSON-object-keyed structure: maps as
// objects keyed by id rather than the internal dense-array representation
// (spec §6 "Graph serialization").
func graphView(g *domain.Graph) map[string]any {
	nodesByID := make(map[string]domain.Node, len(g.Nodes()))
	for _, n := range g.Nodes() {
		nodesByID[n.ID] = n
	}
	relationsByID := make(map[string]domain.Relation, len(g.Relations()))
	for _, r := range g.Relations() {
		relationsByID[r.ID] = r
	}
	return map[string]any{
		"metadata":     g.Metadata,
		"nodes":        nodesByID,
		"relations":    relationsByID,
		"forward":      g.Forward,
		"reverse":      g.Reverse,
		"entry_points": g.EntryPoints,
		"exit_points":  g.ExitPoints,
		"execution":    g.Execution,
		"compilation":  g.Compilation,
		"optimization": g.Optimization,
	}
}

// Template creates a new empty document with defaults filled (spec §4.6
// "create a template document").
func Template(id, name, author string) domain.Document {
	now := time.Now().UTC().Format(time.RFC3339)
	return domain.Document{
		Metadata: domain.Metadata{
			ID:        id,
			Name:      name,
			Version:   "1.0.0",
			CreatedAt: now,
			UpdatedAt: now,
			Author:    author,
		},
		Nodes:     []domain.Node{},
		Relations: []domain.Relation{},
	}
}

// Execute runs a loaded document's cached graph with inputs (spec §4.6
// "execute a loaded document id with inputs").
func (p *Platform) Execute(ctx context.Context, id string, inputs map[string]any, overrides scheduler.Overrides) (*domain.ExecutionResult, error) {
	graph, ok := p.store.Graph(id)
	if !ok {
		return nil, fmt.Errorf("no cached graph for id %q", id)
	}
	result := p.scheduler.Execute(ctx, graph, inputs, overrides)
	p.store.RecordExecution(id, *result)
	return result, nil
}

// ExecuteFile loads and executes a document directly from file (spec §4.6
// "execute directly from file").
func (p *Platform) ExecuteFile(ctx context.Context, path string, inputs map[string]any, overrides scheduler.Overrides) (domain.ValidationResult, *domain.ExecutionResult, error) {
	loaded, err := p.Load(path)
	if err != nil {
		return domain.ValidationResult{}, nil, err
	}
	if loaded.Graph == nil {
		return loaded.Validation, nil, nil
	}
	result, err := p.Execute(ctx, loaded.Graph.Metadata.ID, inputs, overrides)
	return loaded.Validation, result, err
}

// Simulate executes against a deep copy of the cached graph, leaving the
// cache intact (spec §4.6 "simulate").
func (p *Platform) Simulate(ctx context.Context, id string, inputs map[string]any, overrides scheduler.Overrides) (*domain.ExecutionResult, error) {
	graph, ok := p.store.Graph(id)
	if !ok {
		return nil, fmt.Errorf("no cached graph for id %q", id)
	}
	return p.scheduler.Simulate(ctx, graph, inputs, overrides)
}

// History enumerates execution history for an id (spec §4.6 "enumerate
// execution history for an id").
func (p *Platform) History(id string) []domain.HistoryEntry {
	return p.store.History(id)
}

// ClearHistory clears history by id, or in full when id is empty (spec
// §4.6 "clear history by id or in full").
func (p *Platform) ClearHistory(id string) {
	if id == "" {
		p.store.ClearAllHistory()
		return
	}
	p.store.ClearHistory(id)
}

// BatchExecuteRequest pairs a document id with its run inputs (spec §4.6
// "batch-execute").
type BatchExecuteRequest struct {
	ID     string
	Inputs map[string]any
}

// BatchExecute runs each request in order, collecting every result; a
// missing graph yields a nil result slot rather than aborting the batch.
func (p *Platform) BatchExecute(ctx context.Context, requests []BatchExecuteRequest, overrides scheduler.Overrides) []*domain.ExecutionResult {
	results := make([]*domain.ExecutionResult, len(requests))
	for i, req := range requests {
		result, err := p.Execute(ctx, req.ID, req.Inputs, overrides)
		if err != nil {
			continue
		}
		results[i] = result
	}
	return results
}

// Stats returns the aggregate cache/history stats for the `/api/stats`
// route (spec §6).
func (p *Platform) Stats() storage.Stats {
	return p.store.ComputeStats()
}
