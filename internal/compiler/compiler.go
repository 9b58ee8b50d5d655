// Package compiler lowers a validated Document into an execution-ready
// Graph (C3): defaults, adjacency, entry/exit inference, complexity, and
// optimization passes (spec §4.3), grounded on the pack's forward/reverse
// adjacency and BFS/DFS helpers in internal/application/executor/graph.go.
package compiler

import (
	"encoding/json"
	"sort"
	"time"

	"cogflow/internal/domain"
)

const (
	defaultMaxIterations = 1000
	defaultTimeoutMs     = 30000
)

// Compiler lowers documents to compiled graphs and applies optimization
// passes.
type Compiler struct{}

// New constructs a Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile implements spec §4.3 "Compile": deep-copy, defaults, adjacency,
// entry/exit inference, complexity, compilation metadata.
func (c *Compiler) Compile(doc *domain.Document) (*domain.Graph, error) {
	clone, err := deepCopy(doc)
	if err != nil {
		return nil, err
	}

	applyNodeDefaults(clone.Nodes)
	applyRelationDefaults(clone.Relations)

	g := domain.NewGraph()
	g.Metadata = clone.Metadata
	g.SetNodes(clone.Nodes)
	g.SetRelations(clone.Relations)

	buildAdjacency(g)

	exec := domain.ExecutionConfig{}
	if clone.Execution != nil {
		exec = *clone.Execution
	}
	if len(exec.EntryPoints) == 0 {
		exec.EntryPoints = inferEntryPoints(g)
	}
	if len(exec.ExitPoints) == 0 {
		exec.ExitPoints = inferExitPoints(g)
	}
	if exec.MaxIterations <= 0 {
		exec.MaxIterations = defaultMaxIterations
	}
	if exec.TimeoutMs <= 0 {
		exec.TimeoutMs = defaultTimeoutMs
	}
	if exec.Mode == "" {
		exec.Mode = domain.ModeAdaptive
	}
	g.Execution = exec

	g.EntryPoints = exec.EntryPoints
	g.ExitPoints = exec.ExitPoints

	g.Compilation = domain.Compilation{
		Timestamp:     timestamp(),
		NodeCount:     len(g.Nodes()),
		RelationCount: len(g.Relations()),
		Complexity:    computeComplexity(g),
	}

	return g, nil
}

// timestamp returns the current UTC wall-clock time recorded by the
// compiler.
func timestamp() time.Time {
	return time.Now().UTC()
}

func deepCopy(doc *domain.Document) (*domain.Document, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var clone domain.Document
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}

// applyNodeDefaults defaults confidence/weight to 1.0 and state to active
// in place (spec §4.3 "Compile" defaults).
func applyNodeDefaults(nodes []domain.Node) {
	one := 1.0
	for i := range nodes {
		if nodes[i].Data.Confidence == nil {
			c := one
			nodes[i].Data.Confidence = &c
		}
		if nodes[i].Data.Weight == nil {
			w := one
			nodes[i].Data.Weight = &w
		}
		if nodes[i].Data.State == "" {
			nodes[i].Data.State = domain.StateActive
		}
	}
}

// applyRelationDefaults defaults strength to 1.0 and bidirectional to false.
func applyRelationDefaults(relations []domain.Relation) {
	one := 1.0
	for i := range relations {
		if relations[i].Strength == nil {
			s := one
			relations[i].Strength = &s
		}
		if relations[i].Bidirectional == nil {
			b := false
			relations[i].Bidirectional = &b
		}
	}
}

// buildAdjacency builds forward/reverse adjacency, including the reverse
// direction for bidirectional relations in both structures (spec §4.3).
func buildAdjacency(g *domain.Graph) {
	for _, n := range g.Nodes() {
		if _, ok := g.Forward[n.ID]; !ok {
			g.Forward[n.ID] = nil
		}
		if _, ok := g.Reverse[n.ID]; !ok {
			g.Reverse[n.ID] = nil
		}
	}
	for _, r := range g.Relations() {
		g.Forward[r.Source] = append(g.Forward[r.Source], r.Target)
		g.Reverse[r.Target] = append(g.Reverse[r.Target], r.Source)
		if r.IsBidirectional() {
			g.Forward[r.Target] = append(g.Forward[r.Target], r.Source)
			g.Reverse[r.Source] = append(g.Reverse[r.Source], r.Target)
		}
	}
}

// inferEntryPoints implements spec §4.3: nodes with no incoming edges, OR
// type=event, OR state=active; falls back to the first node.
func inferEntryPoints(g *domain.Graph) []string {
	var entries []string
	for _, n := range g.Nodes() {
		if len(g.Reverse[n.ID]) == 0 || n.Type == domain.NodeEvent || n.StateOrDefault() == domain.StateActive {
			entries = append(entries, n.ID)
		}
	}
	if len(entries) == 0 && len(g.Nodes()) > 0 {
		entries = []string{g.Nodes()[0].ID}
	}
	return entries
}

// inferExitPoints implements spec §4.3: nodes with no outgoing edges, OR
// actions with at most one outgoing edge.
func inferExitPoints(g *domain.Graph) []string {
	var exits []string
	for _, n := range g.Nodes() {
		out := len(g.Forward[n.ID])
		if out == 0 || (n.Type == domain.NodeAction && out <= 1) {
			exits = append(exits, n.ID)
		}
	}
	return exits
}

// computeComplexity implements spec §4.3 "Compute complexity": max depth by
// BFS across the forward graph (handling disconnected components), average
// branching across nodes with >=1 outgoing edge, and cycle count by
// back-edge counting during DFS.
func computeComplexity(g *domain.Graph) domain.Complexity {
	maxDepth := 0
	visitedGlobal := make(map[string]bool)
	for _, n := range g.Nodes() {
		if visitedGlobal[n.ID] {
			continue
		}
		depth := bfsDepth(g, n.ID, visitedGlobal)
		if depth > maxDepth {
			maxDepth = depth
		}
	}

	branchingSum := 0
	branchingNodes := 0
	for _, n := range g.Nodes() {
		out := len(g.Forward[n.ID])
		if out > 0 {
			branchingSum += out
			branchingNodes++
		}
	}
	avgBranching := 0.0
	if branchingNodes > 0 {
		avgBranching = float64(branchingSum) / float64(branchingNodes)
	}

	return domain.Complexity{
		MaxDepth:         maxDepth,
		AverageBranching: avgBranching,
		CycleCount:       countBackEdges(g),
	}
}

// bfsDepth returns the longest shortest-path distance (in edges) reachable
// from start, marking every visited node in visitedGlobal so disconnected
// components are each explored exactly once across the caller's loop.
func bfsDepth(g *domain.Graph, start string, visitedGlobal map[string]bool) int {
	visitedGlobal[start] = true
	queue := []string{start}
	dist := map[string]int{start: 0}
	maxDist := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range g.Forward[id] {
			if _, ok := dist[next]; ok {
				continue
			}
			dist[next] = dist[id] + 1
			visitedGlobal[next] = true
			if dist[next] > maxDist {
				maxDist = dist[next]
			}
			queue = append(queue, next)
		}
	}
	return maxDist
}

// countBackEdges counts back edges found during a DFS over the full forward
// graph (every relation type, unlike the validator's causal-only check),
// used purely as a complexity metric (spec §4.3 "cycle count").
func countBackEdges(g *domain.Graph) int {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	count := 0

	var dfs func(id string)
	dfs = func(id string) {
		visited[id] = true
		onStack[id] = true
		for _, next := range g.Forward[id] {
			if !visited[next] {
				dfs(next)
			} else if onStack[next] {
				count++
			}
		}
		onStack[id] = false
	}

	for _, n := range g.Nodes() {
		if !visited[n.ID] {
			dfs(n.ID)
		}
	}
	return count
}

// Optimize implements spec §4.3 "Optimization": speed sorts adjacency by
// descending relation strength; memory strips default-valued fields;
// balanced applies both, restricted to non-condition/formula nodes for the
// confidence strip.
func (c *Compiler) Optimize(g *domain.Graph, mode domain.OptimizationMode) *domain.Graph {
	switch mode {
	case domain.OptimizeSpeed:
		sortAdjacencyByStrength(g)
	case domain.OptimizeMemory:
		stripDefaults(g, true)
	case domain.OptimizeBalanced:
		sortAdjacencyByStrength(g)
		stripDefaults(g, false)
	}

	if g.Extensions == nil {
		g.Extensions = make(map[string]any)
	}
	g.Optimization = &domain.Optimization{
		Type:      mode,
		Applied:   true,
		Timestamp: timestamp(),
	}
	g.Extensions["optimization"] = g.Optimization

	return g
}

func sortAdjacencyByStrength(g *domain.Graph) {
	for source, targets := range g.Forward {
		strength := make(map[string]float64, len(targets))
		for _, t := range targets {
			if r, ok := g.RelationBetween(source, t); ok {
				strength[t] = r.StrengthOrDefault()
			}
		}
		sorted := append([]string{}, targets...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return strength[sorted[i]] > strength[sorted[j]]
		})
		g.Forward[source] = sorted
	}
}

// stripDefaults removes default-valued fields (confidence/weight=1.0,
// state=active on nodes; strength=1.0, bidirectional=false on relations).
// When allNodes is false, the confidence strip is restricted to nodes whose
// type is not condition or formula (spec §4.3 "balanced").
func stripDefaults(g *domain.Graph, allNodes bool) {
	nodes := g.Nodes()
	for i := range nodes {
		n := &nodes[i]
		stripConfidence := allNodes || (n.Type != domain.NodeCondition && n.Type != domain.NodeFormula)
		if stripConfidence && n.Data.Confidence != nil && *n.Data.Confidence == 1.0 {
			n.Data.Confidence = nil
		}
		if n.Data.Weight != nil && *n.Data.Weight == 1.0 {
			n.Data.Weight = nil
		}
		if n.Data.State == domain.StateActive {
			n.Data.State = ""
		}
	}

	relations := g.Relations()
	for i := range relations {
		r := &relations[i]
		if r.Strength != nil && *r.Strength == 1.0 {
			r.Strength = nil
		}
		if r.Bidirectional != nil && !*r.Bidirectional {
			r.Bidirectional = nil
		}
	}
}
