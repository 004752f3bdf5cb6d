// Package store defines the persistence contracts of the retrieval engine:
// GraphStore is the authoritative home of entities, relations and hyperedges,
// SearchCache holds serialized hybrid-search results. Backends live in the
// subpackages memory, sqlite, postgres and redis.
package store

import (
	"context"
	"errors"

	"github.com/smallnest/hypergraphrag/hypergraph"
)

// ErrNotFound is returned when a looked-up node does not exist
var ErrNotFound = errors.New("not found")

// ErrCacheMiss is returned by SearchCache.Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// GraphStore is the authoritative persistence layer for graph data. Writes go
// here first; the vector index is a projection.
type GraphStore interface {
	// UpsertEntities inserts or replaces entities by id
	UpsertEntities(ctx context.Context, entities []hypergraph.Entity) error

	// UpsertRelations inserts or replaces binary relations
	UpsertRelations(ctx context.Context, relations []hypergraph.Relation) error

	// UpsertHyperedges inserts or replaces hyperedges by id
	UpsertHyperedges(ctx context.Context, edges []hypergraph.Hyperedge) error

	// Neighbors traverses up to hops from the node, returning one scored path
	// per reached node
	Neighbors(ctx context.Context, nodeID string, hops int) ([]hypergraph.GraphPath, error)

	// EntityCount returns the number of stored entities
	EntityCount(ctx context.Context) (int, error)

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	// Close releases backend resources
	Close() error
}

// SearchCache stores serialized search results under opaque keys. Invalidate
// drops every entry at once; it is called after any graph mutation.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context) error
	Close() error
}
