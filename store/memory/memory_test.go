package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/store"
)

func TestUpsertAndNeighbors(t *testing.T) {
	s := NewGraphStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertEntities(ctx, []hypergraph.Entity{
		{ID: "a", Name: "Alpha", Type: "concept"},
		{ID: "b", Name: "Beta", Type: "concept"},
	}))
	require.NoError(t, s.UpsertRelations(ctx, []hypergraph.Relation{
		{Source: "a", Target: "b", Type: "uses", Weight: 0.8},
	}))

	paths, err := s.Neighbors(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"a", "b"}, paths[0].Nodes)

	n, err := s.EntityCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPerItemFailureIsolated(t *testing.T) {
	s := NewGraphStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertEntities(ctx, []hypergraph.Entity{
		{ID: "a", Name: "Alpha", Type: "concept"},
		{ID: "b", Name: "Beta", Type: "concept"},
	}))

	// One bad relation does not block the good one.
	err := s.UpsertRelations(ctx, []hypergraph.Relation{
		{Source: "a", Target: "zzz", Type: "uses"},
		{Source: "a", Target: "b", Type: "uses", Weight: 0.5},
	})
	assert.ErrorIs(t, err, hypergraph.ErrUnknownEntity)

	paths, err := s.Neighbors(ctx, "a", 1)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestNeighborsUnknownNode(t *testing.T) {
	s := NewGraphStore()

	_, err := s.Neighbors(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPingAndClose(t *testing.T) {
	s := NewGraphStore()
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
