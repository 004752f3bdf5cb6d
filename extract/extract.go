// Package extract turns raw extraction output, entities, triplets and context
// text, into n-ary hyperedges ready for insertion into the hypergraph.
//
// Three independent strategies produce candidate relations: fixed grammar
// patterns, triplet grouping and contextual surface patterns. The Builder
// merges their output, deduplicates candidates and wraps binary relations, so
// callers get one uniform hyperedge stream regardless of which strategies
// succeeded.
package extract

import (
	"context"
	"strings"

	"github.com/smallnest/hypergraphrag/hypergraph"
)

// Triplet is a simple subject-predicate-object extraction result, usually
// produced by an external LLM extraction pass
type Triplet struct {
	Subject    string
	Predicate  string
	Object     string
	Confidence float64
}

// RoleBinding ties an entity name to the role it plays in a candidate relation
type RoleBinding struct {
	EntityName string
	Role       string
}

// NaryRelation is a candidate relation over named participants, before entity
// resolution and hyperedge construction
type NaryRelation struct {
	Type         string
	Participants []RoleBinding
	Confidence   float64
	SourceSpan   string
}

// Input carries everything a strategy may draw candidates from
type Input struct {
	// Entities already known to the graph; strategies only emit participants
	// that resolve against this set unless the builder is told to create
	// missing ones
	Entities []hypergraph.Entity

	// Relations are binary edges wrapped into 2-participant hyperedges by the
	// builder
	Relations []hypergraph.Relation

	// Triplets from an external extraction collaborator
	Triplets []Triplet

	// Text is the raw context the entities were extracted from
	Text string
}

// Strategy extracts candidate n-ary relations from extraction input. A
// strategy failure is isolated by the builder and never blocks the others.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, input Input) ([]NaryRelation, error)
}

// entitySet indexes entity names for case-insensitive membership checks
type entitySet map[string]string

func newEntitySet(entities []hypergraph.Entity) entitySet {
	s := make(entitySet, len(entities))
	for _, e := range entities {
		s[normalizeName(e.Name)] = e.ID
	}
	return s
}

func (s entitySet) contains(name string) bool {
	_, ok := s[normalizeName(name)]
	return ok
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
