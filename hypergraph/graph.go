package hypergraph

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// halfEdge is one directed adjacency entry, stored against the arena index of
// the source entity
type halfEdge struct {
	to     int
	typ    string
	weight float64
}

// Hypergraph is an in-memory knowledge hypergraph. Entities are stored in a
// contiguous arena with an id→index table so traversal walks flat arrays
// instead of chasing map entries.
type Hypergraph struct {
	entities   []Entity
	byID       map[string]int
	byName     map[string]int
	relations  []Relation
	hyperedges []Hyperedge
	adjacency  [][]halfEdge
	mu         sync.RWMutex
}

// New creates an empty hypergraph
func New() *Hypergraph {
	return &Hypergraph{
		byID:   make(map[string]int),
		byName: make(map[string]int),
	}
}

// AddEntity adds an entity to the graph. Adding an entity whose id already
// exists overwrites the stored copy in place.
func (g *Hypergraph) AddEntity(e Entity) error {
	if e.ID == "" {
		return fmt.Errorf("entity has empty id")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e.Importance = ClampUnit(e.Importance)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.UpdatedAt = time.Now()

	if idx, ok := g.byID[e.ID]; ok {
		prev := normalizeName(g.entities[idx].Name)
		next := normalizeName(e.Name)
		if prev != next {
			if cur, ok := g.byName[prev]; ok && cur == idx {
				delete(g.byName, prev)
			}
			g.byName[next] = idx
		}
		g.entities[idx] = e
		return nil
	}

	idx := len(g.entities)
	g.entities = append(g.entities, e)
	g.adjacency = append(g.adjacency, nil)
	g.byID[e.ID] = idx
	g.byName[normalizeName(e.Name)] = idx
	return nil
}

// MergeEntity merges an entity into the graph by normalized name. If an entity
// with the same name exists its properties are merged, its importance keeps
// the maximum of the two values and the existing id wins; otherwise the entity
// is added. Entities are never auto-deleted.
func (g *Hypergraph) MergeEntity(e Entity) (string, error) {
	g.mu.Lock()
	idx, ok := g.byName[normalizeName(e.Name)]
	g.mu.Unlock()

	if !ok {
		if err := g.AddEntity(e); err != nil {
			return "", err
		}
		return e.ID, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	existing := &g.entities[idx]
	if existing.Properties == nil && len(e.Properties) > 0 {
		existing.Properties = make(map[string]any, len(e.Properties))
	}
	for k, v := range e.Properties {
		existing.Properties[k] = v
	}
	if e.Importance > existing.Importance {
		existing.Importance = ClampUnit(e.Importance)
	}
	if len(existing.Embedding) == 0 && len(e.Embedding) > 0 {
		existing.Embedding = e.Embedding
	}
	existing.UpdatedAt = time.Now()
	return existing.ID, nil
}

// AddRelation adds a binary relation. Both endpoints must already exist.
func (g *Hypergraph) AddRelation(r Relation) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.byID[r.Source]
	if !ok {
		return fmt.Errorf("relation source %q: %w", r.Source, ErrUnknownEntity)
	}
	dst, ok := g.byID[r.Target]
	if !ok {
		return fmt.Errorf("relation target %q: %w", r.Target, ErrUnknownEntity)
	}

	r.Weight = ClampUnit(r.Weight)
	r.Confidence = ClampUnit(r.Confidence)
	g.relations = append(g.relations, r)

	g.adjacency[src] = append(g.adjacency[src], halfEdge{to: dst, typ: r.Type, weight: r.Weight})
	if r.Bidirectional {
		g.adjacency[dst] = append(g.adjacency[dst], halfEdge{to: src, typ: r.Type, weight: r.Weight})
	}
	return nil
}

// AddHyperedge adds a hyperedge. All participants must already exist and the
// participant count must be at least two.
func (g *Hypergraph) AddHyperedge(h Hyperedge) error {
	if len(h.Participants) < 2 {
		return fmt.Errorf("hyperedge %q has %d participants: %w", h.ID, len(h.Participants), ErrTooFewParticipants)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range h.Participants {
		if _, ok := g.byID[p.EntityID]; !ok {
			return fmt.Errorf("hyperedge %q participant %q: %w", h.ID, p.EntityID, ErrUnknownEntity)
		}
	}

	h.Weight = ClampUnit(h.Weight)
	h.Confidence = ClampUnit(h.Confidence)
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	g.hyperedges = append(g.hyperedges, h)

	// Hyperedges contribute adjacency between every participant pair so that
	// traversal can cross n-ary relations. The per-pair weight is the edge
	// weight divided across all contained pairs.
	k := len(h.Participants)
	pairWeight := h.Weight / float64(k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			a := g.byID[h.Participants[i].EntityID]
			b := g.byID[h.Participants[j].EntityID]
			g.adjacency[a] = append(g.adjacency[a], halfEdge{to: b, typ: h.Type, weight: pairWeight})
			g.adjacency[b] = append(g.adjacency[b], halfEdge{to: a, typ: h.Type, weight: pairWeight})
		}
	}
	return nil
}

// GetEntity retrieves an entity by id
func (g *Hypergraph) GetEntity(id string) (Entity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.byID[id]
	if !ok {
		return Entity{}, false
	}
	return g.entities[idx], true
}

// GetEntityByName retrieves an entity by normalized name
func (g *Hypergraph) GetEntityByName(name string) (Entity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.byName[normalizeName(name)]
	if !ok {
		return Entity{}, false
	}
	return g.entities[idx], true
}

// Entities returns a copy of all entities in insertion order
func (g *Hypergraph) Entities() []Entity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Entity, len(g.entities))
	copy(out, g.entities)
	return out
}

// Relations returns a copy of all binary relations
func (g *Hypergraph) Relations() []Relation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Relation, len(g.relations))
	copy(out, g.relations)
	return out
}

// Hyperedges returns a copy of all hyperedges
func (g *Hypergraph) Hyperedges() []Hyperedge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Hyperedge, len(g.hyperedges))
	copy(out, g.hyperedges)
	return out
}

// EntityCount returns the number of entities
func (g *Hypergraph) EntityCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entities)
}

// Neighbors performs a bounded-hop breadth-first traversal from the given
// entity and returns one GraphPath per reached node. The path score is the
// product of the traversed edge weights.
func (g *Hypergraph) Neighbors(id string, hops int) ([]GraphPath, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	start, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("neighbors of %q: %w", id, ErrUnknownEntity)
	}
	if hops <= 0 {
		return nil, nil
	}

	type frontier struct {
		idx   int
		path  GraphPath
		depth int
	}

	visited := make(map[int]bool, 16)
	visited[start] = true

	queue := []frontier{{
		idx:  start,
		path: GraphPath{Nodes: []string{id}, Score: 1.0},
	}}

	var paths []GraphPath
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= hops {
			continue
		}

		for _, edge := range g.adjacency[cur.idx] {
			if visited[edge.to] {
				continue
			}
			visited[edge.to] = true

			next := g.entities[edge.to]
			nodes := make([]string, len(cur.path.Nodes), len(cur.path.Nodes)+1)
			copy(nodes, cur.path.Nodes)
			nodes = append(nodes, next.ID)

			edges := make([]PathEdge, len(cur.path.Edges), len(cur.path.Edges)+1)
			copy(edges, cur.path.Edges)
			edges = append(edges, PathEdge{
				Source: g.entities[cur.idx].ID,
				Target: next.ID,
				Type:   edge.typ,
				Weight: edge.weight,
			})

			path := GraphPath{Nodes: nodes, Edges: edges, Score: cur.path.Score * edge.weight}
			paths = append(paths, path)
			queue = append(queue, frontier{idx: edge.to, path: path, depth: cur.depth + 1})
		}
	}

	return paths, nil
}

// CliqueExpand expands every hyperedge into pairwise weighted edges, dividing
// the hyperedge weight across all contained pairs. Binary relations are not
// included; callers combine them separately.
func (g *Hypergraph) CliqueExpand() []WeightedEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []WeightedEdge
	for _, h := range g.hyperedges {
		k := len(h.Participants)
		if k < 2 {
			continue
		}
		pairWeight := h.Weight / float64(k*(k-1)/2)
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				out = append(out, WeightedEdge{
					Source: h.Participants[i].EntityID,
					Target: h.Participants[j].EntityID,
					Weight: pairWeight,
				})
			}
		}
	}
	return out
}

// AssignCommunities writes community ids onto member entities
func (g *Hypergraph) AssignCommunities(communities []Community) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, c := range communities {
		for _, member := range c.Members {
			if idx, ok := g.byID[member]; ok {
				g.entities[idx].CommunityID = c.ID
			}
		}
	}
}

// InvalidateCommunities clears all community assignments. Detection results
// are computed wholesale, so any mutation of the graph makes previous
// assignments stale and they must be dropped before the next run is trusted.
func (g *Hypergraph) InvalidateCommunities() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.entities {
		g.entities[i].CommunityID = ""
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
