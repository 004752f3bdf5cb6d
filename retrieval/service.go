// Package retrieval orchestrates the graph store, the vector index and the
// result cache behind one hybrid search surface.
//
// The graph store is the source of truth: every mutation lands there first
// and is then projected into the vector index. Any successful mutation
// invalidates the result cache.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallnest/hypergraphrag/embed"
	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/log"
	"github.com/smallnest/hypergraphrag/store"
	"github.com/smallnest/hypergraphrag/vecindex"
)

// Config defines configuration for the retrieval service
type Config struct {
	// DefaultLimit is the result count when a search does not set one
	DefaultLimit int

	// DefaultThreshold is the minimum similarity for vector hits
	DefaultThreshold float64

	// ExpandHops is the default graph expansion depth for hybrid search;
	// 0 disables expansion
	ExpandHops int

	// ExpansionDamping scales a graph-expanded hit's score relative to the
	// vector hit it grew from
	ExpansionDamping float64

	// MultiSourceBoost is applied once to hits found by more than one source
	MultiSourceBoost float64

	// ResultCacheSize bounds the built-in FIFO result cache; ignored when an
	// external Cache is provided
	ResultCacheSize int

	// Cache overrides the built-in result cache, e.g. with the Redis backend
	Cache store.SearchCache

	Logger log.Logger
}

// DefaultConfig returns service configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		DefaultLimit:     10,
		DefaultThreshold: 0.3,
		ExpandHops:       1,
		ExpansionDamping: 0.8,
		MultiSourceBoost: 0.1,
		ResultCacheSize:  128,
		Logger:           log.GetDefaultLogger(),
	}
}

// Service is the hybrid retrieval orchestrator
type Service struct {
	graph    store.GraphStore
	index    *vecindex.Index
	embedder embed.Embedder
	cache    store.SearchCache
	cfg      Config
}

// NewService creates a retrieval service over a graph store, a vector index
// and an embedder
func NewService(graph store.GraphStore, index *vecindex.Index, embedder embed.Embedder, cfg Config) (*Service, error) {
	if graph == nil {
		return nil, errors.New("retrieval service needs a graph store")
	}
	if index == nil {
		return nil, errors.New("retrieval service needs a vector index")
	}
	if embedder == nil {
		return nil, errors.New("retrieval service needs an embedder")
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.ExpansionDamping <= 0 {
		cfg.ExpansionDamping = 0.8
	}
	if cfg.ResultCacheSize <= 0 {
		cfg.ResultCacheSize = 128
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetDefaultLogger()
	}

	cache := cfg.Cache
	if cache == nil {
		cache = newFIFOCache(cfg.ResultCacheSize)
	}

	return &Service{
		graph:    graph,
		index:    index,
		embedder: embedder,
		cache:    cache,
		cfg:      cfg,
	}, nil
}

// UpsertEntities writes entities to the graph store, projects them into the
// vector index and invalidates the result cache
func (s *Service) UpsertEntities(ctx context.Context, entities []hypergraph.Entity) error {
	if err := s.graph.UpsertEntities(ctx, entities); err != nil {
		return fmt.Errorf("upsert entities to graph store: %w", err)
	}
	if err := s.index.IndexEntities(ctx, entities); err != nil {
		return fmt.Errorf("project entities into vector index: %w", err)
	}
	s.invalidateCache(ctx)
	return nil
}

// UpsertRelations writes binary relations to the graph store
func (s *Service) UpsertRelations(ctx context.Context, relations []hypergraph.Relation) error {
	if err := s.graph.UpsertRelations(ctx, relations); err != nil {
		return fmt.Errorf("upsert relations to graph store: %w", err)
	}
	s.invalidateCache(ctx)
	return nil
}

// UpsertHyperedges writes hyperedges to the graph store and projects them
// into the vector index
func (s *Service) UpsertHyperedges(ctx context.Context, edges []hypergraph.Hyperedge) error {
	if err := s.graph.UpsertHyperedges(ctx, edges); err != nil {
		return fmt.Errorf("upsert hyperedges to graph store: %w", err)
	}
	if err := s.index.IndexHyperedges(ctx, edges); err != nil {
		return fmt.Errorf("project hyperedges into vector index: %w", err)
	}
	s.invalidateCache(ctx)
	return nil
}

// IndexCommunities projects detected communities into the vector index.
// Communities are derived data, so they bypass the graph store.
func (s *Service) IndexCommunities(ctx context.Context, communities []hypergraph.Community) error {
	if err := s.index.IndexCommunities(ctx, communities); err != nil {
		return fmt.Errorf("project communities into vector index: %w", err)
	}
	s.invalidateCache(ctx)
	return nil
}

// GraphPaths runs a bounded-hop traversal from a node in the authoritative
// graph store
func (s *Service) GraphPaths(ctx context.Context, nodeID string, hops int) ([]hypergraph.GraphPath, error) {
	return s.graph.Neighbors(ctx, nodeID, hops)
}

func (s *Service) invalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.cfg.Logger.Warn("result cache invalidation failed: %v", err)
	}
}

// Status is one of the three health states
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Health is the service health report
type Health struct {
	Status   Status
	Backends map[string]string
}

// HealthCheck probes every enabled backend. It reports healthy only when all
// respond, degraded when some do and unhealthy when none do. It never fails,
// only reports.
func (s *Service) HealthCheck(ctx context.Context) Health {
	h := Health{Backends: make(map[string]string)}

	ok, total := 0, 0
	probe := func(name string, err error) {
		total++
		if err != nil {
			h.Backends[name] = err.Error()
			return
		}
		h.Backends[name] = "ok"
		ok++
	}

	probe("graph_store", s.graph.Ping(ctx))

	// The vector index is in-process; responding at all counts.
	probe("vector_index", func() error {
		s.index.Count(vecindex.CategoryEntities)
		return nil
	}())

	if _, err := s.cache.Get(ctx, "health-probe"); err != nil && !errors.Is(err, store.ErrCacheMiss) {
		probe("result_cache", err)
	} else {
		probe("result_cache", nil)
	}

	switch ok {
	case total:
		h.Status = StatusHealthy
	case 0:
		h.Status = StatusUnhealthy
	default:
		h.Status = StatusDegraded
	}
	return h
}

// Close releases the graph store and cache
func (s *Service) Close() error {
	return errors.Join(s.graph.Close(), s.cache.Close())
}
