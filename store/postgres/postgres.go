// Package postgres provides a GraphStore backed by PostgreSQL, the
// recommended authoritative backend for multi-node deployments.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// GraphStore persists the graph in PostgreSQL
type GraphStore struct {
	pool DBPool
}

// Options configuration for the Postgres connection
type Options struct {
	ConnString string
}

// NewGraphStore creates a Postgres graph store and initializes its schema
func NewGraphStore(ctx context.Context, opts Options) (*GraphStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := &GraphStore{pool: pool}
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewGraphStoreWithPool creates a graph store over an existing pool. Useful
// for testing with mocks; InitSchema is not called.
func NewGraphStoreWithPool(pool DBPool) *GraphStore {
	return &GraphStore{pool: pool}
}

// InitSchema creates the necessary tables if they don't exist
func (s *GraphStore) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			payload JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS relations (
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			type TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			bidirectional BOOLEAN NOT NULL,
			PRIMARY KEY (source, target, type)
		);
		CREATE TABLE IF NOT EXISTS hyperedges (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			participant_count INTEGER NOT NULL,
			payload JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS hyperedge_participants (
			hyperedge_id TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			role TEXT NOT NULL,
			PRIMARY KEY (hyperedge_id, entity_id)
		);
		CREATE INDEX IF NOT EXISTS idx_relations_source ON relations (source);
		CREATE INDEX IF NOT EXISTS idx_relations_target ON relations (target);
		CREATE INDEX IF NOT EXISTS idx_participants_entity ON hyperedge_participants (entity_id);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// UpsertEntities inserts or replaces entities by id. Per-item failures are
// collected and do not abort the batch.
func (s *GraphStore) UpsertEntities(ctx context.Context, entities []hypergraph.Entity) error {
	var errs []error
	for _, e := range entities {
		payload, err := json.Marshal(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal entity %s: %w", e.ID, err))
			continue
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO entities (id, name, type, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				type = EXCLUDED.type,
				payload = EXCLUDED.payload
		`, e.ID, e.Name, e.Type, payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("upsert entity %s: %w", e.ID, err))
		}
	}
	return errors.Join(errs...)
}

// UpsertRelations inserts or replaces binary relations
func (s *GraphStore) UpsertRelations(ctx context.Context, relations []hypergraph.Relation) error {
	var errs []error
	for _, r := range relations {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO relations (source, target, type, weight, confidence, bidirectional)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (source, target, type) DO UPDATE SET
				weight = EXCLUDED.weight,
				confidence = EXCLUDED.confidence,
				bidirectional = EXCLUDED.bidirectional
		`, r.Source, r.Target, r.Type, hypergraph.ClampUnit(r.Weight), hypergraph.ClampUnit(r.Confidence), r.Bidirectional)
		if err != nil {
			errs = append(errs, fmt.Errorf("upsert relation %s->%s: %w", r.Source, r.Target, err))
		}
	}
	return errors.Join(errs...)
}

// UpsertHyperedges inserts or replaces hyperedges and their participant rows
func (s *GraphStore) UpsertHyperedges(ctx context.Context, edges []hypergraph.Hyperedge) error {
	var errs []error
	for _, e := range edges {
		if len(e.Participants) < 2 {
			errs = append(errs, fmt.Errorf("hyperedge %s: %w", e.ID, hypergraph.ErrTooFewParticipants))
			continue
		}
		payload, err := json.Marshal(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal hyperedge %s: %w", e.ID, err))
			continue
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO hyperedges (id, type, weight, participant_count, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				type = EXCLUDED.type,
				weight = EXCLUDED.weight,
				participant_count = EXCLUDED.participant_count,
				payload = EXCLUDED.payload
		`, e.ID, e.Type, hypergraph.ClampUnit(e.Weight), len(e.Participants), payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("upsert hyperedge %s: %w", e.ID, err))
			continue
		}

		if _, err := s.pool.Exec(ctx, `DELETE FROM hyperedge_participants WHERE hyperedge_id = $1`, e.ID); err != nil {
			errs = append(errs, fmt.Errorf("replace participants of %s: %w", e.ID, err))
			continue
		}
		for _, p := range e.Participants {
			if _, err := s.pool.Exec(ctx, `
				INSERT INTO hyperedge_participants (hyperedge_id, entity_id, role) VALUES ($1, $2, $3)
			`, e.ID, p.EntityID, p.Role); err != nil {
				errs = append(errs, fmt.Errorf("insert participant %s of %s: %w", p.EntityID, e.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// arc is one outgoing adjacency row during traversal
type arc struct {
	to     string
	typ    string
	weight float64
}

// Neighbors performs a bounded-hop breadth-first traversal over relations and
// shared hyperedges
func (s *GraphStore) Neighbors(ctx context.Context, nodeID string, hops int) ([]hypergraph.GraphPath, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM entities WHERE id = $1`, nodeID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("neighbors of %q: %w", nodeID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("look up node %q: %w", nodeID, err)
	}
	if hops <= 0 {
		return nil, nil
	}

	type frontier struct {
		id    string
		path  hypergraph.GraphPath
		depth int
	}

	visited := map[string]bool{nodeID: true}
	queue := []frontier{{id: nodeID, path: hypergraph.GraphPath{Nodes: []string{nodeID}, Score: 1.0}}}

	var paths []hypergraph.GraphPath
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= hops {
			continue
		}

		arcs, err := s.arcsFrom(ctx, cur.id)
		if err != nil {
			return nil, err
		}

		for _, a := range arcs {
			if visited[a.to] {
				continue
			}
			visited[a.to] = true

			nodes := append(append([]string(nil), cur.path.Nodes...), a.to)
			edges := append(append([]hypergraph.PathEdge(nil), cur.path.Edges...), hypergraph.PathEdge{
				Source: cur.id,
				Target: a.to,
				Type:   a.typ,
				Weight: a.weight,
			})
			path := hypergraph.GraphPath{Nodes: nodes, Edges: edges, Score: cur.path.Score * a.weight}
			paths = append(paths, path)
			queue = append(queue, frontier{id: a.to, path: path, depth: cur.depth + 1})
		}
	}
	return paths, nil
}

// arcsFrom collects the outgoing adjacency of one node
func (s *GraphStore) arcsFrom(ctx context.Context, id string) ([]arc, error) {
	var arcs []arc

	collect := func(query string, args ...any) error {
		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("adjacency of %q: %w", id, err)
		}
		defer rows.Close()
		for rows.Next() {
			var a arc
			if err := rows.Scan(&a.to, &a.typ, &a.weight); err != nil {
				return fmt.Errorf("scan adjacency row: %w", err)
			}
			arcs = append(arcs, a)
		}
		return rows.Err()
	}

	if err := collect(`SELECT target, type, weight FROM relations WHERE source = $1`, id); err != nil {
		return nil, err
	}
	if err := collect(`SELECT source, type, weight FROM relations WHERE target = $1 AND bidirectional`, id); err != nil {
		return nil, err
	}
	if err := collect(`
		SELECT p2.entity_id, h.type,
			h.weight / (h.participant_count * (h.participant_count - 1) / 2.0)
		FROM hyperedge_participants p1
		JOIN hyperedge_participants p2
			ON p2.hyperedge_id = p1.hyperedge_id AND p2.entity_id != p1.entity_id
		JOIN hyperedges h ON h.id = p1.hyperedge_id
		WHERE p1.entity_id = $1
	`, id); err != nil {
		return nil, err
	}
	return arcs, nil
}

// EntityCount returns the number of stored entities
func (s *GraphStore) EntityCount(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}

// Ping reports database reachability
func (s *GraphStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *GraphStore) Close() error {
	s.pool.Close()
	return nil
}
