// Package reasoning drives the think-retrieve-rethink cycle: a per-query
// state machine that alternates internal reasoning with targeted retrieval
// until it can synthesize an answer. Action selection is pluggable; a
// deterministic heuristic always stands in when no policy is present or a
// policy call fails.
package reasoning

// ActionType is the discriminated action of one reasoning step
type ActionType string

const (
	ActionThink         ActionType = "think"
	ActionGenerateQuery ActionType = "generate_query"
	ActionRetrieve      ActionType = "retrieve"
	ActionRethink       ActionType = "rethink"
	ActionTerminate     ActionType = "terminate"
)

// Action is one selected action with its confidence and optional parameters
type Action struct {
	Type       ActionType
	Confidence float64
	Params     map[string]any
}

// State is the mutable state of one reasoning session. It is owned by
// exactly one session and never shared across queries.
type State struct {
	// Query is the original user query
	Query string

	// CurrentQuery is the latest generated retrieval query; falls back to
	// Query when empty
	CurrentQuery string

	// Visited holds the node ids retrieved so far
	Visited map[string]bool

	// Fragments is the accumulated context, newest last
	Fragments []string

	// Thoughts is the accumulated reasoning trace
	Thoughts []string

	// Step counts completed steps
	Step int

	// Reward accumulates shaping reward across the episode
	Reward float64

	// Confidence is the latest reasoning confidence estimate
	Confidence float64
}

// NewState creates the initial state for a query
func NewState(query string) *State {
	return &State{
		Query:   query,
		Visited: make(map[string]bool),
	}
}

// RetrievalQuery returns the query the next retrieval should use
func (s *State) RetrievalQuery() string {
	if s.CurrentQuery != "" {
		return s.CurrentQuery
	}
	return s.Query
}

// Transition records one step for policy learning
type Transition struct {
	State  State
	Action Action
	Reward float64
	Next   State
	Done   bool
}

// snapshot copies the state for transition recording. Visited is copied
// shallowly into a fresh map so later mutation does not leak backwards.
func (s *State) snapshot() State {
	cp := *s
	cp.Visited = make(map[string]bool, len(s.Visited))
	for k, v := range s.Visited {
		cp.Visited[k] = v
	}
	cp.Fragments = append([]string(nil), s.Fragments...)
	cp.Thoughts = append([]string(nil), s.Thoughts...)
	return cp
}
