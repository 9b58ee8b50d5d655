package platform

import (
	"time"

	"cogflow/internal/compiler"
	"cogflow/internal/domain"
)

// ComplexityBucket is the coarse complexity rating spec §4.6 "analyze"
// assigns a document.
type ComplexityBucket string

const (
	ComplexityLow    ComplexityBucket = "low"
	ComplexityMedium ComplexityBucket = "medium"
	ComplexityHigh   ComplexityBucket = "high"
)

// Bucket classifies a Complexity record per spec §4.6 thresholds.
func Bucket(c domain.Complexity, nodeCount int) ComplexityBucket {
	if c.MaxDepth > 10 || c.AverageBranching > 3 || nodeCount > 50 {
		return ComplexityHigh
	}
	if c.MaxDepth > 5 || c.AverageBranching > 2 || nodeCount > 20 {
		return ComplexityMedium
	}
	return ComplexityLow
}

// Analysis is the result of analyzing a document without executing it
// (spec §4.6 "analyze a document").
type Analysis struct {
	Bucket              ComplexityBucket
	Complexity          domain.Complexity
	NodeTypeCounts      map[domain.NodeType]int
	RelationTypeCounts  map[domain.RelationType]int
	Issues              []domain.NodeAnalysis
	Recommendations     []string
	GeneratedAt         time.Time
}

// Analyze compiles doc (without caching) and derives the analysis report
// (spec §4.6 "analyze").
func (p *Platform) Analyze(doc *domain.Document) (Analysis, domain.ValidationResult, error) {
	validation := p.validator.Validate(doc)

	c := compiler.New()
	graph, err := c.Compile(doc)
	if err != nil {
		return Analysis{}, validation, err
	}

	nodeTypes := make(map[domain.NodeType]int)
	for _, n := range graph.Nodes() {
		nodeTypes[n.Type]++
	}
	relationTypes := make(map[domain.RelationType]int)
	for _, r := range graph.Relations() {
		relationTypes[r.Type]++
	}

	nodeAnalyses := make([]domain.NodeAnalysis, 0, len(graph.Nodes()))
	entrySet := toSet(graph.EntryPoints)
	exitSet := toSet(graph.ExitPoints)
	for _, n := range graph.Nodes() {
		in := len(graph.Reverse[n.ID])
		out := len(graph.Forward[n.ID])
		nodeAnalyses = append(nodeAnalyses, domain.NodeAnalysis{
			NodeID:     n.ID,
			InDegree:   in,
			OutDegree:  out,
			IsEntry:    entrySet[n.ID],
			IsExit:     exitSet[n.ID],
			IsIsolated: in == 0 && out == 0,
			Centrality: float64(in+out) / float64(max(1, len(graph.Nodes())-1)),
		})
	}

	return Analysis{
		Bucket:             Bucket(graph.Compilation.Complexity, len(graph.Nodes())),
		Complexity:         graph.Compilation.Complexity,
		NodeTypeCounts:     nodeTypes,
		RelationTypeCounts: relationTypes,
		Issues:             nodeAnalyses,
		Recommendations:    recommendations(graph, validation),
		GeneratedAt:        time.Now().UTC(),
	}, validation, nil
}

func recommendations(g *domain.Graph, validation domain.ValidationResult) []string {
	var recs []string
	if validation.Summary.Warnings > 0 {
		recs = append(recs, "resolve validator warnings to improve robustness")
	}
	if g.Compilation.Complexity.CycleCount > 0 {
		recs = append(recs, "graph contains cycles outside the causal subgraph; confirm hybrid scheduling handles them as intended")
	}
	if len(g.EntryPoints) == 0 {
		recs = append(recs, "no entry points could be inferred; consider declaring execution.entry_points explicitly")
	}
	if g.Compilation.Complexity.AverageBranching > 3 {
		recs = append(recs, "high average branching factor; parallel execution mode may reduce wall-clock time")
	}
	return recs
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
