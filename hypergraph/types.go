// Package hypergraph defines the data model for the knowledge hypergraph:
// entities, binary relations, n-ary hyperedges, communities and graph paths,
// plus an in-memory container with bounded-hop traversal and clique expansion.
package hypergraph

import (
	"time"
)

// Entity represents a node in the knowledge hypergraph
type Entity struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Properties  map[string]any `json:"properties,omitempty"`
	Embedding   []float32      `json:"embedding,omitempty"`
	Importance  float64        `json:"importance"`
	CommunityID string         `json:"community_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Relation represents a binary edge between two entities
type Relation struct {
	Source        string  `json:"source"`
	Target        string  `json:"target"`
	Type          string  `json:"type"`
	Weight        float64 `json:"weight"`
	Confidence    float64 `json:"confidence"`
	Bidirectional bool    `json:"bidirectional"`
}

// Participant is one role-tagged member of a hyperedge
type Participant struct {
	EntityID string  `json:"entity_id"`
	Role     string  `json:"role"`
	Weight   float64 `json:"weight"`
}

// Hyperedge represents a relation connecting two or more entities, each tagged
// with a role. Hyperedges with three or more participants are true n-ary
// relations; binary relations are wrapped as 2-participant hyperedges with
// subject/object roles.
type Hyperedge struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Participants []Participant `json:"participants"`
	Weight       float64       `json:"weight"`
	Confidence   float64       `json:"confidence"`
	SourceSpan   string        `json:"source_span,omitempty"`
	Embedding    []float32     `json:"embedding,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsNary reports whether the hyperedge is a true n-ary relation (>= 3 participants)
func (h *Hyperedge) IsNary() bool {
	return len(h.Participants) >= 3
}

// CommunityMetrics holds quality metrics for a detected community
type CommunityMetrics struct {
	Size       int     `json:"size"`
	Density    float64 `json:"density"`
	Modularity float64 `json:"modularity"`
	Coherence  float64 `json:"coherence"`
}

// Community represents a densely connected cluster of entities. Communities
// are recomputed wholesale on each detection run, never maintained
// incrementally; stale assignments must be explicitly invalidated when the
// underlying graph mutates.
type Community struct {
	ID              string           `json:"id"`
	Members         []string         `json:"members"`
	Label           string           `json:"label"`
	Summary         string           `json:"summary,omitempty"`
	Centroid        []float32        `json:"centroid,omitempty"`
	CentralEntities []string         `json:"central_entities,omitempty"`
	Level           int              `json:"level"`
	ParentID        string           `json:"parent_id,omitempty"`
	ChildIDs        []string         `json:"child_ids,omitempty"`
	Metrics         CommunityMetrics `json:"metrics"`
}

// PathEdge is one traversed edge inside a GraphPath
type PathEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// GraphPath is an ordered node sequence produced by graph traversal,
// scored by the product of the traversed edge weights
type GraphPath struct {
	Nodes []string   `json:"nodes"`
	Edges []PathEdge `json:"edges"`
	Score float64    `json:"score"`
}

// WeightedEdge is a pairwise edge produced by clique-expanding hyperedges
type WeightedEdge struct {
	Source string
	Target string
	Weight float64
}

// ClampUnit clamps v to the [0, 1] range used for all weights and confidences
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
