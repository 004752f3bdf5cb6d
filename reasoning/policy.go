package reasoning

import "context"

// Policy selects the next action for a reasoning state. Implementations may
// learn from episodes through Update; any failure makes the cycle fall back
// to the heuristic policy for that step.
type Policy interface {
	SelectAction(ctx context.Context, state *State) (Action, error)
	Update(ctx context.Context, transitions []Transition, finalReward float64) error
}

// HeuristicPolicy is the deterministic fallback policy. It cycles
// think, generate_query, retrieve, rethink and terminates once enough
// context has been gathered or confidence is high.
type HeuristicPolicy struct {
	// FragmentTarget is the context size at which the heuristic considers
	// the episode done
	FragmentTarget int

	// ConfidenceTarget terminates early when reached
	ConfidenceTarget float64
}

// NewHeuristicPolicy creates the fallback policy with default targets
func NewHeuristicPolicy() *HeuristicPolicy {
	return &HeuristicPolicy{
		FragmentTarget:   10,
		ConfidenceTarget: 0.85,
	}
}

// SelectAction never fails
func (p *HeuristicPolicy) SelectAction(ctx context.Context, state *State) (Action, error) {
	if len(state.Fragments) >= p.FragmentTarget {
		return Action{Type: ActionTerminate, Confidence: 0.9}, nil
	}
	if state.Confidence >= p.ConfidenceTarget && len(state.Fragments) > 0 {
		return Action{Type: ActionTerminate, Confidence: state.Confidence}, nil
	}

	switch state.Step % 4 {
	case 0:
		return Action{Type: ActionThink, Confidence: 0.5}, nil
	case 1:
		return Action{Type: ActionGenerateQuery, Confidence: 0.5}, nil
	case 2:
		return Action{Type: ActionRetrieve, Confidence: 0.5}, nil
	default:
		return Action{Type: ActionRethink, Confidence: 0.5}, nil
	}
}

// Update is a no-op; the heuristic does not learn
func (p *HeuristicPolicy) Update(ctx context.Context, transitions []Transition, finalReward float64) error {
	return nil
}
