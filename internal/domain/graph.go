package domain

import "time"

// Complexity summarizes a compiled graph's structural properties (spec §3
// "Compiled graph", §4.3 "Compute complexity").
type Complexity struct {
	MaxDepth        int     `json:"max_depth"`
	AverageBranching float64 `json:"average_branching"`
	CycleCount      int     `json:"cycle_count"`
}

// Compilation records metadata stamped onto a graph at compile time (spec §4.3).
type Compilation struct {
	Timestamp     time.Time  `json:"timestamp"`
	NodeCount     int        `json:"node_count"`
	RelationCount int        `json:"relation_count"`
	Complexity    Complexity `json:"complexity"`
}

// Optimization is the tag an optimization pass writes into a graph's
// extensions (spec §4.3 "Optimization").
type Optimization struct {
	Type      OptimizationMode `json:"type"`
	Applied   bool             `json:"applied"`
	Timestamp time.Time        `json:"timestamp"`
}

// Graph is the execution-ready, compiled form of a Document (spec §3
// "Compiled graph", §9 "Graph storage"). It owns dense node/relation arrays
// plus id->index maps for O(1) lookup, and forward/reverse adjacency built
// from relations.
type Graph struct {
	Metadata  Metadata
	Execution ExecutionConfig

	nodes       []Node
	relations   []Relation
	nodeIndex   map[string]int // node id -> index into nodes
	relIndex    map[string]int // relation id -> index into relations

	// Forward[id] lists target node ids reachable directly from id.
	Forward map[string][]string
	// Reverse[id] lists source node ids that point directly at id.
	Reverse map[string][]string

	EntryPoints []string
	ExitPoints  []string

	Compilation  Compilation
	Optimization *Optimization
	Extensions   map[string]any
}

// NewGraph builds an empty Graph shell; the compiler fills it in.
func NewGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[string]int),
		relIndex:  make(map[string]int),
		Forward:   make(map[string][]string),
		Reverse:   make(map[string][]string),
	}
}

// SetNodes installs the dense node array and (re)builds the id index,
// preserving input order (spec §4.3 "Determinism").
func (g *Graph) SetNodes(nodes []Node) {
	g.nodes = nodes
	g.nodeIndex = make(map[string]int, len(nodes))
	for i, n := range nodes {
		g.nodeIndex[n.ID] = i
	}
}

// SetRelations installs the dense relation array and (re)builds the id index.
func (g *Graph) SetRelations(relations []Relation) {
	g.relations = relations
	g.relIndex = make(map[string]int, len(relations))
	for i, r := range relations {
		g.relIndex[r.ID] = i
	}
}

// Node looks up a node by id in O(1).
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return &g.nodes[i], true
}

// Relation looks up a relation by id in O(1).
func (g *Graph) Relation(id string) (*Relation, bool) {
	i, ok := g.relIndex[id]
	if !ok {
		return nil, false
	}
	return &g.relations[i], true
}

// Nodes returns the dense node array in document order.
func (g *Graph) Nodes() []Node { return g.nodes }

// Relations returns the dense relation array in document order.
func (g *Graph) Relations() []Relation { return g.relations }

// RelationBetween finds the (first) relation with the given source/target
// pair, used by the concept evaluator to read a predecessor edge's strength.
func (g *Graph) RelationBetween(source, target string) (*Relation, bool) {
	for i := range g.relations {
		if g.relations[i].Source == source && g.relations[i].Target == target {
			return &g.relations[i], true
		}
		if g.relations[i].IsBidirectional() && g.relations[i].Source == target && g.relations[i].Target == source {
			return &g.relations[i], true
		}
	}
	return nil, false
}
