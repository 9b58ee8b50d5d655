package domain

// Dependency is a cross-document reference carried in Metadata (spec §3).
type Dependency struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// Metadata describes a document (spec §3 "Metadata").
type Metadata struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Version      string            `json:"version"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
	Author       string            `json:"author,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Dependencies []Dependency      `json:"dependencies,omitempty"`
	Extensions   map[string]any    `json:"extensions,omitempty"`
}

// ExecutionConfig is the optional execution block of a document (spec §3).
// Zero values mean "use the compiler defaults" (spec §4.3).
type ExecutionConfig struct {
	EntryPoints   []string         `json:"entry_points,omitempty"`
	ExitPoints    []string         `json:"exit_points,omitempty"`
	MaxIterations int              `json:"max_iterations,omitempty"`
	TimeoutMs     int              `json:"timeout_ms,omitempty"`
	Mode          ExecutionMode    `json:"mode,omitempty"`
}

// Document is the raw, as-parsed cognitive model (spec §3 "Document").
type Document struct {
	Metadata  Metadata         `json:"metadata"`
	Nodes     []Node           `json:"nodes"`
	Relations []Relation       `json:"relations,omitempty"`
	Execution *ExecutionConfig `json:"execution,omitempty"`
}

// NodeByID returns the node with the given id, if present, preserving the
// caller's need for original-document-order iteration elsewhere.
func (d *Document) NodeByID(id string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// RelationByID returns the relation with the given id, if present.
func (d *Document) RelationByID(id string) (*Relation, bool) {
	for i := range d.Relations {
		if d.Relations[i].ID == id {
			return &d.Relations[i], true
		}
	}
	return nil, false
}
