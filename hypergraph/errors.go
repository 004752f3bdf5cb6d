package hypergraph

import "errors"

var (
	// ErrUnknownEntity is returned when an operation references an entity id
	// that is not present in the graph
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrTooFewParticipants is returned when a hyperedge carries fewer than
	// two participants
	ErrTooFewParticipants = errors.New("hyperedge needs at least two participants")
)
