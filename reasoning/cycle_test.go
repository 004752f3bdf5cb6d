package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/hypergraphrag/embed"
	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/retrieval"
	"github.com/smallnest/hypergraphrag/store/memory"
	"github.com/smallnest/hypergraphrag/vecindex"
)

// scriptedReasoner returns canned thoughts and answers
type scriptedReasoner struct {
	thought       Thought
	answer        string
	reasonErr     error
	synthesizeErr error
	reasonCalls   int
}

func (s *scriptedReasoner) Reason(ctx context.Context, query string, fragments, priorThoughts []string) (Thought, error) {
	s.reasonCalls++
	if s.reasonErr != nil {
		return Thought{}, s.reasonErr
	}
	return s.thought, nil
}

func (s *scriptedReasoner) Synthesize(ctx context.Context, query string, thoughts, fragments []string) (string, error) {
	if s.synthesizeErr != nil {
		return "", s.synthesizeErr
	}
	return s.answer, nil
}

// failingPolicy errors on every selection and records updates
type failingPolicy struct {
	updates int
	reward  float64
}

func (p *failingPolicy) SelectAction(ctx context.Context, state *State) (Action, error) {
	return Action{}, errors.New("policy backend down")
}

func (p *failingPolicy) Update(ctx context.Context, transitions []Transition, finalReward float64) error {
	p.updates++
	p.reward = finalReward
	return nil
}

func newTestCycleService(t *testing.T) *retrieval.Service {
	t.Helper()
	emb := embed.NewHashEmbedder(64)
	idx := vecindex.New(emb, vecindex.DefaultConfig())
	svc, err := retrieval.NewService(memory.NewGraphStore(), idx, emb, retrieval.DefaultConfig())
	require.NoError(t, err)
	return svc
}

func seedCycleService(t *testing.T, svc *retrieval.Service) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.UpsertEntities(ctx, []hypergraph.Entity{
		{ID: "a", Name: "Alpha", Type: "concept"},
		{ID: "b", Name: "Beta", Type: "concept"},
	}))
	require.NoError(t, svc.UpsertRelations(ctx, []hypergraph.Relation{
		{Source: "a", Target: "b", Type: "uses", Weight: 0.8, Bidirectional: true},
	}))
}

func TestRunTerminatesWithinMaxSteps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 3
	cfg.StallAfter = 100

	cycle := NewCycle(newTestCycleService(t), nil, cfg)
	episode, err := cycle.Run(context.Background(), "what uses Alpha")
	require.NoError(t, err)

	assert.LessOrEqual(t, episode.Steps, 3)
	assert.Equal(t, "max steps reached", episode.Terminated)
	assert.NotEmpty(t, episode.Answer)
	assert.Len(t, episode.Transitions, episode.Steps)
}

func TestResumeTerminatesImmediatelyAtContextCap(t *testing.T) {
	cycle := NewCycle(newTestCycleService(t), nil, DefaultConfig())

	state := NewState("saturated query")
	for i := 0; i < 10; i++ {
		state.Fragments = append(state.Fragments, fmt.Sprintf("fragment %d about saturated query", i))
	}

	episode, err := cycle.Resume(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "context cap reached", episode.Terminated)
	assert.Zero(t, episode.Steps)
	assert.Empty(t, episode.Transitions)
	assert.NotEmpty(t, episode.Answer)
}

func TestConfidenceTerminationAfterRetrieval(t *testing.T) {
	svc := newTestCycleService(t)
	seedCycleService(t, svc)

	reasoner := &scriptedReasoner{
		thought: Thought{Thought: "Alpha looks central", NextQuery: "Alpha", Confidence: 0.9, ShouldRetrieve: true},
		answer:  "Alpha is connected to Beta through a uses relation in the knowledge graph.",
	}
	cycle := NewCycle(svc, reasoner, DefaultConfig())

	episode, err := cycle.Run(context.Background(), "what connects to Alpha")
	require.NoError(t, err)

	assert.Equal(t, "confident", episode.Terminated)
	assert.True(t, episode.Final.Visited["a"])
	assert.Equal(t, reasoner.answer, episode.Answer)
	assert.GreaterOrEqual(t, episode.Confidence, 0.85)
}

func TestPolicyFailureFallsBackToHeuristic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 2
	cfg.StallAfter = 100

	cycle := NewCycle(newTestCycleService(t), nil, cfg)
	policy := &failingPolicy{}
	cycle.SetPolicy(policy)

	episode, err := cycle.Run(context.Background(), "fallback query")
	require.NoError(t, err)

	require.Len(t, episode.Transitions, 2)
	assert.Equal(t, ActionThink, episode.Transitions[0].Action.Type)
	assert.Equal(t, ActionGenerateQuery, episode.Transitions[1].Action.Type)
	assert.Equal(t, 1, policy.updates)
	assert.Equal(t, episode.Reward, policy.reward)
}

func TestSynthesisFailureReturnsFallbackAnswer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 2
	cfg.StallAfter = 100

	reasoner := &scriptedReasoner{
		thought:       Thought{Thought: "thinking", Confidence: 0.4},
		synthesizeErr: errors.New("model unavailable"),
	}
	cycle := NewCycle(newTestCycleService(t), reasoner, cfg)

	episode, err := cycle.Run(context.Background(), "broken synthesis")
	require.NoError(t, err)

	assert.Equal(t, FallbackAnswer, episode.Answer)
	assert.InDelta(t, 0.1, episode.Confidence, 1e-9)
}

func TestReasonerFailureDegradesInsteadOfAborting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 2
	cfg.StallAfter = 100

	reasoner := &scriptedReasoner{
		reasonErr: errors.New("model unavailable"),
		answer:    "best effort",
	}
	cycle := NewCycle(newTestCycleService(t), reasoner, cfg)

	episode, err := cycle.Run(context.Background(), "flaky reasoner")
	require.NoError(t, err)

	assert.Equal(t, 2, episode.Steps)
	require.NotEmpty(t, episode.Final.Thoughts)
	assert.Contains(t, episode.Final.Thoughts[0], "revisiting")
}

func TestCancellationSynthesizesBestEffortAnswer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cycle := NewCycle(newTestCycleService(t), nil, DefaultConfig())
	episode, err := cycle.Run(ctx, "cancelled query")
	require.NoError(t, err)

	assert.Equal(t, "cancelled", episode.Terminated)
	assert.NotEmpty(t, episode.Answer)
}

func TestStallTermination(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StallAfter = 4
	cfg.MaxSteps = 20

	// Empty graph, so retrieval never discovers nodes.
	cycle := NewCycle(newTestCycleService(t), nil, cfg)
	episode, err := cycle.Run(context.Background(), "nothing to find here")
	require.NoError(t, err)

	assert.Equal(t, "stalled", episode.Terminated)
	assert.Equal(t, 4, episode.Steps)
}

func TestHeuristicPolicyCyclesActions(t *testing.T) {
	p := NewHeuristicPolicy()
	state := NewState("q")

	want := []ActionType{ActionThink, ActionGenerateQuery, ActionRetrieve, ActionRethink}
	for i, expected := range want {
		state.Step = i
		action, err := p.SelectAction(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, expected, action.Type)
	}

	state.Fragments = make([]string, 10)
	action, err := p.SelectAction(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, ActionTerminate, action.Type)
}

func TestRethinkNarrowsLowCoverageContext(t *testing.T) {
	cfg := DefaultConfig()
	cycle := NewCycle(newTestCycleService(t), nil, cfg)

	state := NewState("quantum entanglement")
	state.Step = 3
	for i := 0; i < 6; i++ {
		state.Fragments = append(state.Fragments, fmt.Sprintf("unrelated fragment %d", i))
	}

	cycle.rethink(state)
	assert.Len(t, state.Fragments, cfg.NarrowKeep)
	assert.Equal(t, "unrelated fragment 5", state.Fragments[len(state.Fragments)-1])
}

func TestTermCoverage(t *testing.T) {
	assert.Equal(t, 0.0, termCoverage("quantum physics", nil))
	assert.Equal(t, 1.0, termCoverage("quantum physics", []string{"notes on quantum physics"}))
	assert.InDelta(t, 0.5, termCoverage("quantum physics", []string{"quantum only"}), 1e-9)
}

func TestComputeReward(t *testing.T) {
	w := DefaultRewardWeights()

	state := NewState("q")
	state.Step = 4
	state.Confidence = 0.8
	state.Visited["a"] = true
	state.Visited["b"] = true
	state.Fragments = []string{"f1", "f2", "f3", "f4", "f5"}

	answer := strings.Repeat("a detailed answer ", 5)
	reward := computeReward(answer, state, 8, w)
	assert.Greater(t, reward, 0.0)
	assert.LessOrEqual(t, reward, 1.0)

	// Exceeding the step cap must not pay more than staying inside it.
	over := *state
	over.Step = 12
	assert.Less(t, computeReward(answer, &over, 8, w), reward)

	assert.Equal(t, 0.0, computeReward("", NewState("q"), 8, w))
}

func TestRenderTrace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 2
	cfg.StallAfter = 100

	cycle := NewCycle(newTestCycleService(t), nil, cfg)
	episode, err := cycle.Run(context.Background(), "trace me")
	require.NoError(t, err)

	out := RenderTrace(episode)
	assert.Contains(t, out, "Reasoning Trace")
	assert.Contains(t, out, "step 1")
	assert.Contains(t, out, "max steps reached")

	assert.Empty(t, RenderTrace(nil))
}
