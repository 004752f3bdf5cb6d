// Package memory provides an in-process GraphStore backed by the hypergraph
// arena, the default backend for tests and embedded use.
package memory

import (
	"context"
	"errors"

	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/store"
)

// GraphStore keeps the graph in process memory
type GraphStore struct {
	graph *hypergraph.Hypergraph
}

// NewGraphStore creates an empty in-memory graph store
func NewGraphStore() *GraphStore {
	return &GraphStore{graph: hypergraph.New()}
}

// NewGraphStoreWith wraps an existing hypergraph
func NewGraphStoreWith(g *hypergraph.Hypergraph) *GraphStore {
	return &GraphStore{graph: g}
}

// Graph exposes the underlying hypergraph for batch operations such as
// community detection
func (s *GraphStore) Graph() *hypergraph.Hypergraph { return s.graph }

// UpsertEntities merges entities into the graph. Per-item failures are
// collected; one bad entity never aborts the batch.
func (s *GraphStore) UpsertEntities(ctx context.Context, entities []hypergraph.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for _, e := range entities {
		if _, err := s.graph.MergeEntity(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpsertRelations adds relations to the graph
func (s *GraphStore) UpsertRelations(ctx context.Context, relations []hypergraph.Relation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for _, r := range relations {
		if err := s.graph.AddRelation(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UpsertHyperedges adds hyperedges to the graph
func (s *GraphStore) UpsertHyperedges(ctx context.Context, edges []hypergraph.Hyperedge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for _, e := range edges {
		if err := s.graph.AddHyperedge(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Neighbors traverses the graph from the node
func (s *GraphStore) Neighbors(ctx context.Context, nodeID string, hops int) ([]hypergraph.GraphPath, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths, err := s.graph.Neighbors(nodeID, hops)
	if errors.Is(err, hypergraph.ErrUnknownEntity) {
		return nil, store.ErrNotFound
	}
	return paths, err
}

// EntityCount returns the number of stored entities
func (s *GraphStore) EntityCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.graph.EntityCount(), nil
}

// Ping always succeeds for the in-memory backend
func (s *GraphStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op for the in-memory backend
func (s *GraphStore) Close() error { return nil }
