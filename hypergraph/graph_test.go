package hypergraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestGraph(t *testing.T) *Hypergraph {
	t.Helper()
	g := New()
	for _, e := range []Entity{
		{ID: "a", Name: "Alpha", Type: "concept"},
		{ID: "b", Name: "Beta", Type: "concept"},
		{ID: "c", Name: "Gamma", Type: "concept"},
		{ID: "d", Name: "Delta", Type: "concept"},
	} {
		require.NoError(t, g.AddEntity(e))
	}
	return g
}

func TestAddEntityAndLookup(t *testing.T) {
	g := buildTestGraph(t)

	e, ok := g.GetEntity("a")
	assert.True(t, ok)
	assert.Equal(t, "Alpha", e.Name)

	e, ok = g.GetEntityByName("  alpha ")
	assert.True(t, ok)
	assert.Equal(t, "a", e.ID)

	_, ok = g.GetEntity("missing")
	assert.False(t, ok)
}

func TestMergeEntityKeepsExistingID(t *testing.T) {
	g := buildTestGraph(t)

	id, err := g.MergeEntity(Entity{
		ID:         "a2",
		Name:       "Alpha",
		Importance: 0.9,
		Properties: map[string]any{"alias": "A"},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	e, _ := g.GetEntity("a")
	assert.Equal(t, 0.9, e.Importance)
	assert.Equal(t, "A", e.Properties["alias"])
	assert.Equal(t, 4, g.EntityCount())
}

func TestAddRelationUnknownEntity(t *testing.T) {
	g := buildTestGraph(t)

	err := g.AddRelation(Relation{Source: "a", Target: "zzz", Type: "uses"})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestWeightsClamped(t *testing.T) {
	g := buildTestGraph(t)

	require.NoError(t, g.AddRelation(Relation{Source: "a", Target: "b", Type: "uses", Weight: 1.7, Confidence: -0.2}))
	rels := g.Relations()
	require.Len(t, rels, 1)
	assert.Equal(t, 1.0, rels[0].Weight)
	assert.Equal(t, 0.0, rels[0].Confidence)
}

func TestHyperedgeParticipantBound(t *testing.T) {
	g := buildTestGraph(t)

	err := g.AddHyperedge(Hyperedge{
		ID:           "h1",
		Type:         "instrumental_relation",
		Participants: []Participant{{EntityID: "a", Role: "agent"}},
	})
	assert.ErrorIs(t, err, ErrTooFewParticipants)
}

func TestNeighborsBoundedHops(t *testing.T) {
	g := buildTestGraph(t)
	require.NoError(t, g.AddRelation(Relation{Source: "a", Target: "b", Type: "uses", Weight: 0.8}))
	require.NoError(t, g.AddRelation(Relation{Source: "b", Target: "c", Type: "uses", Weight: 0.5}))
	require.NoError(t, g.AddRelation(Relation{Source: "c", Target: "d", Type: "uses", Weight: 0.5}))

	paths, err := g.Neighbors("a", 2)
	require.NoError(t, err)

	reached := make(map[string]GraphPath)
	for _, p := range paths {
		reached[p.Nodes[len(p.Nodes)-1]] = p
	}

	assert.Contains(t, reached, "b")
	assert.Contains(t, reached, "c")
	assert.NotContains(t, reached, "d") // three hops away

	assert.InDelta(t, 0.8, reached["b"].Score, 1e-9)
	assert.InDelta(t, 0.4, reached["c"].Score, 1e-9)
	assert.Equal(t, []string{"a", "b", "c"}, reached["c"].Nodes)
}

func TestNeighborsCrossHyperedges(t *testing.T) {
	g := buildTestGraph(t)
	require.NoError(t, g.AddHyperedge(Hyperedge{
		ID:   "h1",
		Type: "instrumental_relation",
		Participants: []Participant{
			{EntityID: "a", Role: "agent"},
			{EntityID: "b", Role: "instrument"},
			{EntityID: "c", Role: "purpose"},
		},
		Weight: 0.9,
	}))

	paths, err := g.Neighbors("a", 1)
	require.NoError(t, err)
	assert.Len(t, paths, 2) // b and c reachable through the hyperedge
}

func TestCliqueExpandDividesWeight(t *testing.T) {
	g := buildTestGraph(t)
	require.NoError(t, g.AddHyperedge(Hyperedge{
		ID:   "h1",
		Type: "instrumental_relation",
		Participants: []Participant{
			{EntityID: "a", Role: "agent"},
			{EntityID: "b", Role: "instrument"},
			{EntityID: "c", Role: "purpose"},
		},
		Weight: 0.9,
	}))

	edges := g.CliqueExpand()
	require.Len(t, edges, 3)
	for _, e := range edges {
		assert.InDelta(t, 0.3, e.Weight, 1e-9)
	}
}

func TestAssignAndInvalidateCommunities(t *testing.T) {
	g := buildTestGraph(t)
	g.AssignCommunities([]Community{{ID: "comm-1", Members: []string{"a", "b"}}})

	e, _ := g.GetEntity("a")
	assert.Equal(t, "comm-1", e.CommunityID)

	g.InvalidateCommunities()
	e, _ = g.GetEntity("a")
	assert.Empty(t, e.CommunityID)
}

func TestDrawMermaid(t *testing.T) {
	g := buildTestGraph(t)
	require.NoError(t, g.AddRelation(Relation{Source: "a", Target: "b", Type: "uses", Weight: 0.8}))

	out := g.DrawMermaid([]Community{{ID: "comm-1", Label: "Core", Members: []string{"a", "b"}}})
	assert.True(t, strings.HasPrefix(out, "flowchart TD"))
	assert.Contains(t, out, "subgraph comm_1[\"Core\"]")
	assert.Contains(t, out, "a[\"Alpha\"]")
	assert.Contains(t, out, "a -->|uses| b")
}

func TestOverwriteEntityRemovesStaleNameLookup(t *testing.T) {
	g := buildTestGraph(t)

	require.NoError(t, g.AddEntity(Entity{ID: "a", Name: "Renamed Alpha", Type: "concept"}))

	_, ok := g.GetEntityByName("Alpha")
	assert.False(t, ok, "old name must not resolve after overwrite")

	e, ok := g.GetEntityByName("Renamed Alpha")
	assert.True(t, ok)
	assert.Equal(t, "a", e.ID)
}
