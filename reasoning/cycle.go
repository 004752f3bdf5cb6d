package reasoning

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/hypergraphrag/log"
	"github.com/smallnest/hypergraphrag/retrieval"
)

// FallbackAnswer is returned when answer synthesis fails; the cycle never
// propagates a synthesis error
const FallbackAnswer = "I could not assemble a confident answer from the available context."

const fallbackConfidence = 0.1

// Config defines configuration for the reasoning cycle
type Config struct {
	// MaxSteps is the hard step cap of one episode
	MaxSteps int

	// FragmentCap terminates the episode once this much context is gathered
	FragmentCap int

	// StallAfter and StallMinNodes terminate an episode that keeps stepping
	// without discovering nodes: after StallAfter steps with fewer than
	// StallMinNodes visited, the cycle stops
	StallAfter    int
	StallMinNodes int

	// ConfidenceBound terminates once reasoning confidence reaches it
	ConfidenceBound float64

	// RetrieveHops bounds graph expansion during retrieval
	RetrieveHops int

	// RetrieveLimit caps hits merged per retrieval
	RetrieveLimit int

	// CoverageThreshold and NarrowKeep drive rethink narrowing: when term
	// coverage stays below the threshold after a few steps, only the most
	// recent NarrowKeep fragments are kept to force a new direction
	CoverageThreshold float64
	NarrowKeep        int

	// Weights shapes the episode reward
	Weights RewardWeights

	Logger log.Logger
}

// DefaultConfig returns cycle configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxSteps:          8,
		FragmentCap:       10,
		StallAfter:        6,
		StallMinNodes:     2,
		ConfidenceBound:   0.85,
		RetrieveHops:      2,
		RetrieveLimit:     5,
		CoverageThreshold: 0.3,
		NarrowKeep:        3,
		Weights:           DefaultRewardWeights(),
		Logger:            log.GetDefaultLogger(),
	}
}

// Episode is the outcome of one reasoning session
type Episode struct {
	Answer      string
	Confidence  float64
	Steps       int
	Reward      float64
	Terminated  string
	Transitions []Transition
	Final       *State
}

// Cycle runs the think-retrieve-rethink state machine. One cycle may serve
// many queries; each Run gets its own state and the cycle itself holds no
// per-query data.
type Cycle struct {
	svc       *retrieval.Service
	reasoner  Reasoner
	policy    Policy
	heuristic *HeuristicPolicy
	cfg       Config
}

// NewCycle creates a reasoning cycle over a retrieval service. The reasoner
// may be nil, in which case thoughts and answers are built heuristically from
// the retrieved context.
func NewCycle(svc *retrieval.Service, reasoner Reasoner, cfg Config) *Cycle {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 8
	}
	if cfg.FragmentCap <= 0 {
		cfg.FragmentCap = 10
	}
	if cfg.StallAfter <= 0 {
		cfg.StallAfter = 6
	}
	if cfg.StallMinNodes <= 0 {
		cfg.StallMinNodes = 2
	}
	if cfg.ConfidenceBound <= 0 {
		cfg.ConfidenceBound = 0.85
	}
	if cfg.RetrieveHops <= 0 {
		cfg.RetrieveHops = 2
	}
	if cfg.RetrieveLimit <= 0 {
		cfg.RetrieveLimit = 5
	}
	if cfg.CoverageThreshold <= 0 {
		cfg.CoverageThreshold = 0.3
	}
	if cfg.NarrowKeep <= 0 {
		cfg.NarrowKeep = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetDefaultLogger()
	}

	heuristic := NewHeuristicPolicy()
	heuristic.FragmentTarget = cfg.FragmentCap
	heuristic.ConfidenceTarget = cfg.ConfidenceBound

	return &Cycle{
		svc:       svc,
		reasoner:  reasoner,
		heuristic: heuristic,
		cfg:       cfg,
	}
}

// SetPolicy plugs in a learned action-selection policy. The heuristic still
// backs it up on any failure.
func (c *Cycle) SetPolicy(p Policy) { c.policy = p }

// Run answers one query
func (c *Cycle) Run(ctx context.Context, query string) (*Episode, error) {
	return c.Resume(ctx, NewState(query))
}

// Resume drives an existing state to termination, which allows continuing a
// session that already accumulated context
func (c *Cycle) Resume(ctx context.Context, state *State) (*Episode, error) {
	if state == nil || state.Query == "" {
		return nil, fmt.Errorf("reasoning needs a state with a query")
	}

	episode := &Episode{Final: state}

	for {
		if reason := c.checkTermination(state); reason != "" {
			episode.Terminated = reason
			break
		}
		// External cancellation is checked at each step boundary; the episode
		// still synthesizes a best-effort answer from what accumulated.
		if err := ctx.Err(); err != nil {
			episode.Terminated = "cancelled"
			break
		}

		action := c.selectAction(ctx, state)
		before := state.snapshot()
		done := c.apply(ctx, state, action)
		state.Step++

		episode.Transitions = append(episode.Transitions, Transition{
			State:  before,
			Action: action,
			Next:   state.snapshot(),
			Done:   done,
		})

		if done {
			episode.Terminated = "explicit terminate"
			break
		}
	}

	episode.Steps = state.Step
	episode.Answer, episode.Confidence = c.synthesize(ctx, state)

	episode.Reward = computeReward(episode.Answer, state, c.cfg.MaxSteps, c.cfg.Weights)
	state.Reward = episode.Reward
	for i := range episode.Transitions {
		episode.Transitions[i].Reward = episode.Reward
	}

	if c.policy != nil {
		if err := c.policy.Update(ctx, episode.Transitions, episode.Reward); err != nil {
			c.cfg.Logger.Warn("policy update failed: %v", err)
		}
	}
	return episode, nil
}

// checkTermination walks the termination ladder; first match wins
func (c *Cycle) checkTermination(state *State) string {
	if len(state.Fragments) >= c.cfg.FragmentCap {
		return "context cap reached"
	}
	if state.Step >= c.cfg.StallAfter && len(state.Visited) < c.cfg.StallMinNodes {
		return "stalled"
	}
	if state.Confidence >= c.cfg.ConfidenceBound && len(state.Fragments) > 0 {
		return "confident"
	}
	if state.Step >= c.cfg.MaxSteps {
		return "max steps reached"
	}
	return ""
}

// selectAction asks the policy, falling back to the heuristic on any failure
func (c *Cycle) selectAction(ctx context.Context, state *State) Action {
	if c.policy != nil {
		action, err := c.policy.SelectAction(ctx, state)
		if err == nil {
			return action
		}
		c.cfg.Logger.Warn("policy selection failed, using heuristic: %v", err)
	}
	action, _ := c.heuristic.SelectAction(ctx, state)
	return action
}

// apply executes one action against the state; true means terminate
func (c *Cycle) apply(ctx context.Context, state *State, action Action) bool {
	switch action.Type {
	case ActionThink:
		c.think(ctx, state)
	case ActionGenerateQuery:
		c.generateQuery(ctx, state)
	case ActionRetrieve:
		c.retrieve(ctx, state)
	case ActionRethink:
		c.rethink(state)
	case ActionTerminate:
		return true
	default:
		c.cfg.Logger.Warn("unknown action %q, treating as think", action.Type)
		c.think(ctx, state)
	}
	return false
}

// think asks the reasoner for the next thought; a failure degrades confidence
// instead of aborting the episode
func (c *Cycle) think(ctx context.Context, state *State) {
	if c.reasoner == nil {
		state.Thoughts = append(state.Thoughts, "considering: "+state.RetrievalQuery())
		return
	}

	t, err := c.reasoner.Reason(ctx, state.Query, state.Fragments, state.Thoughts)
	if err != nil {
		c.cfg.Logger.Warn("reasoning call failed, degrading: %v", err)
		state.Thoughts = append(state.Thoughts, "revisiting: "+state.Query)
		state.Confidence *= 0.9
		return
	}

	state.Thoughts = append(state.Thoughts, t.Thought)
	state.Confidence = t.Confidence
	if t.NextQuery != "" {
		state.CurrentQuery = t.NextQuery
	}
}

// generateQuery derives the next retrieval query
func (c *Cycle) generateQuery(ctx context.Context, state *State) {
	if c.reasoner != nil {
		t, err := c.reasoner.Reason(ctx, state.Query, state.Fragments, state.Thoughts)
		if err == nil && t.NextQuery != "" {
			state.CurrentQuery = t.NextQuery
			return
		}
		if err != nil {
			c.cfg.Logger.Warn("query generation failed, using base query: %v", err)
		}
	}

	// Heuristic: widen the base query with the newest thought.
	if len(state.Thoughts) > 0 {
		state.CurrentQuery = state.Query + " " + state.Thoughts[len(state.Thoughts)-1]
	} else {
		state.CurrentQuery = state.Query
	}
}

// retrieve calls the hybrid service and merges new node ids and context
// fragments into the state. A retrieval failure is recoverable.
func (c *Cycle) retrieve(ctx context.Context, state *State) {
	hits, err := c.svc.HybridSearch(ctx, state.RetrievalQuery(), retrieval.SearchOptions{
		Limit:      c.cfg.RetrieveLimit,
		ExpandHops: c.cfg.RetrieveHops,
	})
	if err != nil {
		c.cfg.Logger.Warn("retrieval failed, continuing: %v", err)
		state.Confidence *= 0.9
		return
	}

	for _, h := range hits {
		if state.Visited[h.ID] {
			continue
		}
		state.Visited[h.ID] = true

		fragment := fmt.Sprintf("%s (score %.2f)", h.ID, h.Score)
		if h.Path != nil {
			fragment = fmt.Sprintf("%s via %s", fragment, strings.Join(h.Path.Nodes, " -> "))
		}
		state.Fragments = append(state.Fragments, fragment)
	}
}

// rethink evaluates context coverage with a distinct-term heuristic and
// narrows the accumulated context when coverage stays low
func (c *Cycle) rethink(state *State) {
	coverage := termCoverage(state.Query, state.Fragments)
	state.Thoughts = append(state.Thoughts, fmt.Sprintf("coverage %.2f after %d steps", coverage, state.Step))

	if coverage < c.cfg.CoverageThreshold && state.Step >= 3 && len(state.Fragments) > c.cfg.NarrowKeep {
		state.Fragments = append([]string(nil),
			state.Fragments[len(state.Fragments)-c.cfg.NarrowKeep:]...)
		state.CurrentQuery = ""
	}
}

// termCoverage is the fraction of distinct query terms that appear somewhere
// in the gathered fragments
func termCoverage(query string, fragments []string) float64 {
	terms := make(map[string]bool)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if len(term) >= 2 {
			terms[term] = true
		}
	}
	if len(terms) == 0 {
		return 0
	}

	joined := strings.ToLower(strings.Join(fragments, " "))
	covered := 0
	for term := range terms {
		if strings.Contains(joined, term) {
			covered++
		}
	}
	return float64(covered) / float64(len(terms))
}

// synthesize produces the final answer. An LLM failure yields the fixed
// low-confidence fallback, never an error.
func (c *Cycle) synthesize(ctx context.Context, state *State) (string, float64) {
	if c.reasoner == nil {
		if len(state.Fragments) == 0 {
			return FallbackAnswer, fallbackConfidence
		}
		return fmt.Sprintf("Based on the retrieved context: %s", strings.Join(state.Fragments, "; ")),
			clampConfidence(state.Confidence, 0.3)
	}

	answer, err := c.reasoner.Synthesize(ctx, state.Query, state.Thoughts, state.Fragments)
	if err != nil || strings.TrimSpace(answer) == "" {
		if err != nil {
			c.cfg.Logger.Warn("answer synthesis failed, returning fallback: %v", err)
		}
		return FallbackAnswer, fallbackConfidence
	}
	return answer, clampConfidence(state.Confidence, 0.5)
}

func clampConfidence(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	if v > 1 {
		return 1
	}
	return v
}
