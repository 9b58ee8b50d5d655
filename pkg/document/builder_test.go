package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogflow/internal/domain"
)

func TestBuilderAssemblesNodesAndRelations(t *testing.T) {
	b := New("doc-1", "Weather Decision", "author")
	rain := b.Node(domain.NodeEvent, "Rain")
	umbrella := b.Node(domain.NodeAction, "Bring umbrella")
	b.Causes(rain, umbrella)

	doc := b.Build()
	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Relations, 1)

	assert.Equal(t, "doc-1", doc.Metadata.ID)
	assert.Equal(t, rain, doc.Nodes[0].ID)
	assert.Equal(t, umbrella, doc.Nodes[1].ID)
	assert.Equal(t, domain.RelationCauses, doc.Relations[0].Type)
	assert.Equal(t, rain, doc.Relations[0].Source)
	assert.Equal(t, umbrella, doc.Relations[0].Target)
}

func TestBuilderNodeWithIDUsesExplicitID(t *testing.T) {
	doc := New("doc-2", "Explicit IDs", "author").
		NodeWithID("a", domain.NodeConcept, "A").
		NodeWithID("b", domain.NodeConcept, "B").
		Build()

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "a", doc.Nodes[0].ID)
	assert.Equal(t, "b", doc.Nodes[1].ID)
}

func TestBuilderRelationHelpersAssignCorrectTypes(t *testing.T) {
	b := New("doc-3", "All Relations", "author")
	b.NodeWithID("a", domain.NodeConcept, "A")
	b.NodeWithID("b", domain.NodeConcept, "B")

	b.Triggers("a", "b")
	b.DependsOn("a", "b")
	b.Influences("a", "b")
	b.Blocks("a", "b")
	b.Contains("a", "b")

	doc := b.Build()
	require.Len(t, doc.Relations, 5)
	want := []domain.RelationType{
		domain.RelationTriggers,
		domain.RelationDependsOn,
		domain.RelationInfluences,
		domain.RelationBlocks,
		domain.RelationContains,
	}
	for i, rel := range doc.Relations {
		assert.Equal(t, want[i], rel.Type)
	}
}
