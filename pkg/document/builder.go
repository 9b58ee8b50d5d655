// Package document provides convenience helpers for external callers
// constructing cognitive model documents: a fluent node/relation builder
// (grounded on the pack's RelationshipBuilder in relationship_builder.go)
// and YAML<->JSON conversion for the `.form` file format (spec §6
// "Document file format").
package document

import (
	"github.com/google/uuid"

	"cogflow/internal/domain"
)

// Builder provides a fluent interface for assembling a Document, mirroring
// the pack's RelationshipBuilder usage pattern but generalized from
// workflow edges to typed relations.
type Builder struct {
	doc domain.Document
}

// New starts a Builder for a document with the given id, name, and author.
func New(id, name, author string) *Builder {
	return &Builder{doc: Template(id, name, author)}
}

// Node appends a node of the given type and label with a freshly generated
// UUID as its id, and returns that id for use in relations.
func (b *Builder) Node(nodeType domain.NodeType, label string) string {
	id := uuid.NewString()
	b.doc.Nodes = append(b.doc.Nodes, domain.Node{
		ID:    id,
		Type:  nodeType,
		Label: label,
		Data:  domain.NodeData{},
	})
	return id
}

// NodeWithID appends a node with an explicit id.
func (b *Builder) NodeWithID(id string, nodeType domain.NodeType, label string) *Builder {
	b.doc.Nodes = append(b.doc.Nodes, domain.Node{
		ID:    id,
		Type:  nodeType,
		Label: label,
		Data:  domain.NodeData{},
	})
	return b
}

// Causes adds a `causes` relation from source to target.
func (b *Builder) Causes(source, target string) *Builder {
	return b.relation(domain.RelationCauses, source, target)
}

// Triggers adds a `triggers` relation from source to target.
func (b *Builder) Triggers(source, target string) *Builder {
	return b.relation(domain.RelationTriggers, source, target)
}

// DependsOn adds a `depends_on` relation from source to target.
func (b *Builder) DependsOn(source, target string) *Builder {
	return b.relation(domain.RelationDependsOn, source, target)
}

// Influences adds an `influences` relation from source to target.
func (b *Builder) Influences(source, target string) *Builder {
	return b.relation(domain.RelationInfluences, source, target)
}

// Blocks adds a `blocks` relation from source to target.
func (b *Builder) Blocks(source, target string) *Builder {
	return b.relation(domain.RelationBlocks, source, target)
}

// Contains adds a `contains` relation from source to target.
func (b *Builder) Contains(source, target string) *Builder {
	return b.relation(domain.RelationContains, source, target)
}

func (b *Builder) relation(relType domain.RelationType, source, target string) *Builder {
	b.doc.Relations = append(b.doc.Relations, domain.Relation{
		ID:     uuid.NewString(),
		Type:   relType,
		Source: source,
		Target: target,
	})
	return b
}

// Build returns the assembled document.
func (b *Builder) Build() domain.Document {
	return b.doc
}
