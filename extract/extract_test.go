package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/hypergraphrag/hypergraph"
)

func namedEntities(names ...string) []hypergraph.Entity {
	out := make([]hypergraph.Entity, len(names))
	for i, n := range names {
		out[i] = hypergraph.Entity{ID: "e" + n, Name: n, Type: "concept"}
	}
	return out
}

func TestPatternInstrumentalRelation(t *testing.T) {
	s := NewPatternStrategy()

	rels, err := s.Extract(context.Background(), Input{
		Entities: namedEntities("Alice", "Telescope", "Discovery"),
		Text:     "Alice uses Telescope to achieve Discovery.",
	})
	require.NoError(t, err)
	require.Len(t, rels, 1)

	rel := rels[0]
	assert.Equal(t, "instrumental_relation", rel.Type)
	require.Len(t, rel.Participants, 3)
	assert.Equal(t, RoleBinding{EntityName: "Alice", Role: "agent"}, rel.Participants[0])
	assert.Equal(t, RoleBinding{EntityName: "Telescope", Role: "instrument"}, rel.Participants[1])
	assert.Equal(t, RoleBinding{EntityName: "Discovery", Role: "purpose"}, rel.Participants[2])
	assert.GreaterOrEqual(t, rel.Confidence, 0.5)
	assert.LessOrEqual(t, rel.Confidence, 0.9)
}

func TestPatternRequiresKnownEntities(t *testing.T) {
	s := NewPatternStrategy()

	rels, err := s.Extract(context.Background(), Input{
		Entities: namedEntities("Alice"),
		Text:     "Alice uses Telescope to achieve Discovery.",
	})
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestGroupingUnionOfThree(t *testing.T) {
	s := NewGroupingStrategy()

	rels, err := s.Extract(context.Background(), Input{
		Triplets: []Triplet{
			{Subject: "Alice", Predicate: "works at", Object: "Lab", Confidence: 0.8},
			{Subject: "Alice", Predicate: "works at", Object: "University", Confidence: 0.8},
		},
	})
	require.NoError(t, err)
	require.Len(t, rels, 1)

	rel := rels[0]
	assert.Equal(t, "works_at", rel.Type)
	assert.Len(t, rel.Participants, 3)
	assert.InDelta(t, 0.8, rel.Confidence, 1e-9)
}

func TestGroupingSkipsSmallGroups(t *testing.T) {
	s := NewGroupingStrategy()

	rels, err := s.Extract(context.Background(), Input{
		Triplets: []Triplet{
			{Subject: "Alice", Predicate: "knows", Object: "Bob"},
			{Subject: "Carol", Predicate: "knows", Object: "Dave"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, rels) // two disjoint pairs, neither reaches three entities
}

func TestContextualTemporal(t *testing.T) {
	s := NewContextualStrategy()

	rels, err := s.Extract(context.Background(), Input{
		Entities: namedEntities("Rome"),
		Text:     "Rome was capital in 1870.",
	})
	require.NoError(t, err)
	require.Len(t, rels, 1)

	assert.Equal(t, "temporal_state", rels[0].Type)
	roles := map[string]string{}
	for _, p := range rels[0].Participants {
		roles[p.Role] = p.EntityName
	}
	assert.Equal(t, "Rome", roles["actor"])
	assert.Equal(t, "capital", roles["state"])
	assert.Equal(t, "1870", roles["temporal_context"])
}

type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }
func (failingStrategy) Extract(context.Context, Input) ([]NaryRelation, error) {
	return nil, errors.New("boom")
}

func TestBuilderIsolatesStrategyFailure(t *testing.T) {
	b := NewBuilder(failingStrategy{}, NewPatternStrategy())

	res, err := b.Build(context.Background(), Input{
		Entities: namedEntities("Alice", "Telescope", "Discovery"),
		Text:     "Alice uses Telescope to achieve Discovery.",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"failing"}, res.Stats.FailedStrategies)
	assert.Equal(t, 1, res.Stats.NaryBuilt)
}

func TestBuilderAllStrategiesFailed(t *testing.T) {
	b := NewBuilder(failingStrategy{})

	_, err := b.Build(context.Background(), Input{Text: "anything"})
	assert.Error(t, err)
}

func TestBuilderWrapsBinaryRelations(t *testing.T) {
	b := NewBuilder()
	ents := namedEntities("Alice", "Bob")

	res, err := b.Build(context.Background(), Input{
		Entities: ents,
		Relations: []hypergraph.Relation{
			{Source: ents[0].ID, Target: ents[1].ID, Type: "knows", Weight: 0.7, Confidence: 0.9},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Hyperedges, 1)

	edge := res.Hyperedges[0]
	assert.Equal(t, "knows", edge.Type)
	require.Len(t, edge.Participants, 2)
	assert.Equal(t, "subject", edge.Participants[0].Role)
	assert.Equal(t, "object", edge.Participants[1].Role)
	assert.False(t, edge.IsNary())
}

func TestBuilderDeduplicates(t *testing.T) {
	b := NewBuilder(NewPatternStrategy(), NewPatternStrategy())

	res, err := b.Build(context.Background(), Input{
		Entities: namedEntities("Alice", "Telescope", "Discovery"),
		Text:     "Alice uses Telescope to achieve Discovery.",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.NaryBuilt)
	assert.Equal(t, 1, res.Stats.Deduplicated)
}

func TestBuilderCreatesMissingEntities(t *testing.T) {
	b := NewBuilder(NewContextualStrategy())

	res, err := b.Build(context.Background(), Input{
		Entities: namedEntities("Rome"),
		Text:     "Rome was capital in 1870.",
	})
	require.NoError(t, err)
	require.Len(t, res.Hyperedges, 1)
	assert.Len(t, res.NewEntities, 2) // "capital" and "1870"
	for _, e := range res.NewEntities {
		assert.Equal(t, "context", e.Type)
		assert.NotEmpty(t, e.ID)
	}
}

func TestPromotePatterns(t *testing.T) {
	edges := []hypergraph.Hyperedge{
		{Type: "instrumental_relation", Participants: []hypergraph.Participant{
			{EntityID: "1", Role: "agent"}, {EntityID: "2", Role: "instrument"}, {EntityID: "3", Role: "purpose"},
		}},
		{Type: "instrumental_relation", Participants: []hypergraph.Participant{
			{EntityID: "4", Role: "agent"}, {EntityID: "5", Role: "instrument"}, {EntityID: "6", Role: "purpose"},
		}},
		{Type: "temporal_state", Participants: []hypergraph.Participant{
			{EntityID: "7", Role: "actor"}, {EntityID: "8", Role: "state"}, {EntityID: "9", Role: "temporal_context"},
		}},
	}

	patterns := promotePatterns(edges, 2)
	require.Len(t, patterns, 1)
	assert.Equal(t, "instrumental_relation", patterns[0].Type)
	assert.Equal(t, 2, patterns[0].Frequency)
}

func TestLoadHTML(t *testing.T) {
	src := `<html><head><style>body{color:red}</style></head>
<body><h1>Graphs</h1><script>alert(1)</script><p>Alice uses Telescope to achieve Discovery.</p></body></html>`

	text, err := LoadHTML(strings.NewReader(src))
	require.NoError(t, err)
	assert.Contains(t, text, "Alice uses Telescope to achieve Discovery.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestLoadMarkdown(t *testing.T) {
	text, err := LoadMarkdown([]byte("# Title\n\nAlice **uses** Telescope to achieve Discovery."))
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "uses")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "<")
}
