// Package storage holds the in-memory caches backing the platform facade
// (C6): compiled graphs keyed by document id, and execution results keyed
// by `{document-id}_{start-timestamp}` (spec §4.6, §9 "Graph storage"),
// grounded on the pack's sync.RWMutex-protected MemoryStore
// (internal/infrastructure/storage/memory.go).
package storage

import (
	"fmt"
	"sort"
	"sync"

	"cogflow/internal/domain"
)

// Store is a thread-safe, single-writer-discipline cache of compiled
// graphs and execution history (spec §4.6 "Contract").
type Store struct {
	mu      sync.RWMutex
	graphs  map[string]*domain.Graph
	history map[string][]domain.HistoryEntry
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		graphs:  make(map[string]*domain.Graph),
		history: make(map[string][]domain.HistoryEntry),
	}
}

// SaveGraph caches a compiled graph under its document id, replacing any
// prior entry (spec §3 "Compiled graph" lifecycle: "replaced on reload").
func (s *Store) SaveGraph(g *domain.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.Metadata.ID] = g
}

// Graph fetches a cached graph by id.
func (s *Store) Graph(id string) (*domain.Graph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[id]
	return g, ok
}

// GraphIDs lists every cached document id, sorted for determinism.
func (s *Store) GraphIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.graphs))
	for id := range s.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClearGraph drops a single cached graph.
func (s *Store) ClearGraph(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graphs, id)
}

// ClearAllGraphs drops every cached graph.
func (s *Store) ClearAllGraphs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs = make(map[string]*domain.Graph)
}

// RecordExecution appends an execution result to a document's history under
// the `{document-id}_{start-timestamp}` key (spec §3 "Execution state"
// lifecycle).
func (s *Store) RecordExecution(documentID string, result domain.ExecutionResult) string {
	key := fmt.Sprintf("%s_%d", documentID, result.StartedAt.UnixNano())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[documentID] = append(s.history[documentID], domain.HistoryEntry{Key: key, Result: result})
	return key
}

// History lists every recorded execution for a document id, oldest first.
func (s *Store) History(documentID string) []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[documentID]
	out := make([]domain.HistoryEntry, len(entries))
	copy(out, entries)
	return out
}

// ClearHistory drops a single document's execution history.
func (s *Store) ClearHistory(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, documentID)
}

// ClearAllHistory drops every document's execution history.
func (s *Store) ClearAllHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(map[string][]domain.HistoryEntry)
}

// Stats summarizes cache and history state for the `/api/stats` HTTP route
// (spec §6 "GET /api/stats").
type Stats struct {
	LoadedForms          int
	TotalExecutions      int
	SuccessfulExecutions int
	FailedExecutions     int
	AvgExecutionMs       float64
}

// ComputeStats aggregates the current cache/history state.
func (s *Store) ComputeStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{LoadedForms: len(s.graphs)}
	var totalMs int64
	for _, entries := range s.history {
		for _, e := range entries {
			stats.TotalExecutions++
			if e.Result.Success {
				stats.SuccessfulExecutions++
			} else {
				stats.FailedExecutions++
			}
			totalMs += e.Result.DurationMs
		}
	}
	if stats.TotalExecutions > 0 {
		stats.AvgExecutionMs = float64(totalMs) / float64(stats.TotalExecutions)
	}
	return stats
}
