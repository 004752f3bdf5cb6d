package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/store"
)

func newTestStore(t *testing.T) *GraphStore {
	t.Helper()
	s, err := NewGraphStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *GraphStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertEntities(ctx, []hypergraph.Entity{
		{ID: "a", Name: "Alpha", Type: "concept"},
		{ID: "b", Name: "Beta", Type: "concept"},
		{ID: "c", Name: "Gamma", Type: "concept"},
	}))
	require.NoError(t, s.UpsertRelations(ctx, []hypergraph.Relation{
		{Source: "a", Target: "b", Type: "uses", Weight: 0.8, Confidence: 0.9},
	}))
	require.NoError(t, s.UpsertHyperedges(ctx, []hypergraph.Hyperedge{
		{
			ID:   "h1",
			Type: "instrumental_relation",
			Participants: []hypergraph.Participant{
				{EntityID: "a", Role: "agent"},
				{EntityID: "b", Role: "instrument"},
				{EntityID: "c", Role: "purpose"},
			},
			Weight: 0.9,
		},
	}))
}

func TestUpsertAndCount(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	n, err := s.EntityCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Upserting the same id again keeps the count stable.
	require.NoError(t, s.UpsertEntities(context.Background(), []hypergraph.Entity{
		{ID: "a", Name: "Alpha Prime", Type: "concept"},
	}))
	n, err = s.EntityCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNeighborsAcrossRelationsAndHyperedges(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	paths, err := s.Neighbors(context.Background(), "a", 1)
	require.NoError(t, err)

	reached := make(map[string]hypergraph.GraphPath)
	for _, p := range paths {
		reached[p.Nodes[len(p.Nodes)-1]] = p
	}
	assert.Contains(t, reached, "b") // direct relation
	assert.Contains(t, reached, "c") // through the hyperedge
	assert.InDelta(t, 0.8, reached["b"].Score, 1e-9)
	assert.InDelta(t, 0.3, reached["c"].Score, 1e-9) // 0.9 over three pairs
}

func TestNeighborsBoundedHops(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertEntities(ctx, []hypergraph.Entity{
		{ID: "a", Name: "Alpha", Type: "concept"},
		{ID: "b", Name: "Beta", Type: "concept"},
		{ID: "c", Name: "Gamma", Type: "concept"},
	}))
	require.NoError(t, s.UpsertRelations(ctx, []hypergraph.Relation{
		{Source: "a", Target: "b", Type: "uses", Weight: 0.5},
		{Source: "b", Target: "c", Type: "uses", Weight: 0.5},
	}))

	paths, err := s.Neighbors(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a", "b"}, paths[0].Nodes)
}

func TestNeighborsUnknownNode(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Neighbors(context.Background(), "missing", 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestHyperedgeParticipantBound(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	err := s.UpsertHyperedges(context.Background(), []hypergraph.Hyperedge{
		{ID: "h2", Type: "broken", Participants: []hypergraph.Participant{{EntityID: "a"}}},
	})
	assert.ErrorIs(t, err, hypergraph.ErrTooFewParticipants)
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
