package domain

// Position is an optional layout hint for a node (spec §3).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the mutable payload carried by a node (spec §3 "Node").
type NodeData struct {
	Value      any            `json:"value,omitempty"`
	Confidence *float64       `json:"confidence,omitempty"`
	Weight     *float64       `json:"weight,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	State      NodeState      `json:"state,omitempty"`
}

// Node is a typed vertex in the cognitive model graph (spec §3 "Node").
type Node struct {
	ID          string         `json:"id"`
	Type        NodeType       `json:"type"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Data        NodeData       `json:"data"`
	Position    *Position      `json:"position,omitempty"`
	CustomType  string         `json:"custom_type,omitempty"`
	Extensions  map[string]any `json:"extensions,omitempty"`
}

// ConfidenceOrDefault returns the node's confidence, defaulting to 1.0
// (spec §4.3 "Compile" defaults).
func (n *Node) ConfidenceOrDefault() float64 {
	if n.Data.Confidence != nil {
		return *n.Data.Confidence
	}
	return 1.0
}

// WeightOrDefault returns the node's weight, defaulting to 1.0.
func (n *Node) WeightOrDefault() float64 {
	if n.Data.Weight != nil {
		return *n.Data.Weight
	}
	return 1.0
}

// StateOrDefault returns the node's state, defaulting to active.
func (n *Node) StateOrDefault() NodeState {
	if n.Data.State == "" {
		return StateActive
	}
	return n.Data.State
}

// Param reads a parameter by key, returning ok=false when absent.
func (n *Node) Param(key string) (any, bool) {
	if n.Data.Parameters == nil {
		return nil, false
	}
	v, ok := n.Data.Parameters[key]
	return v, ok
}

// DefaultValue returns the type default used to seed a node that has no
// stored value and no input supplied (spec §4.4 "Initialization").
func (t NodeType) DefaultValue() any {
	switch t {
	case NodeConcept:
		return 0.0
	case NodeCondition:
		return false
	case NodeAction:
		return false
	case NodeEvent:
		return false
	default:
		return nil
	}
}
