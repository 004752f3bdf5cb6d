package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseThoughtJSON(t *testing.T) {
	raw := `{"thought": "Alpha is central", "next_query": "Alpha neighbors", "confidence": 0.7, "should_retrieve": true}`
	thought := parseThought(raw)

	assert.Equal(t, "Alpha is central", thought.Thought)
	assert.Equal(t, "Alpha neighbors", thought.NextQuery)
	assert.InDelta(t, 0.7, thought.Confidence, 1e-9)
	assert.True(t, thought.ShouldRetrieve)
}

func TestParseThoughtWrappedInProse(t *testing.T) {
	raw := "Sure, here is my reasoning:\n{\"thought\": \"needs more context\", \"confidence\": 0.4, \"should_retrieve\": true}\nLet me know."
	thought := parseThought(raw)

	assert.Equal(t, "needs more context", thought.Thought)
	assert.InDelta(t, 0.4, thought.Confidence, 1e-9)
}

func TestParseThoughtClampsConfidence(t *testing.T) {
	thought := parseThought(`{"thought": "overconfident", "confidence": 3.5}`)
	assert.Equal(t, 1.0, thought.Confidence)

	thought = parseThought(`{"thought": "underconfident", "confidence": -1}`)
	assert.Equal(t, 0.0, thought.Confidence)
}

func TestParseThoughtPlainTextFallback(t *testing.T) {
	thought := parseThought("I think we should look at Beta next.")

	assert.Equal(t, "I think we should look at Beta next.", thought.Thought)
	assert.InDelta(t, 0.5, thought.Confidence, 1e-9)
	assert.True(t, thought.ShouldRetrieve)
}

func TestBuildReasonPrompt(t *testing.T) {
	prompt := buildReasonPrompt("who built it", []string{"fragment one"}, nil)

	assert.Contains(t, prompt, "who built it")
	assert.Contains(t, prompt, "- fragment one")
	assert.Contains(t, prompt, "(none)")
}

func TestBuildSynthesizePrompt(t *testing.T) {
	prompt := buildSynthesizePrompt("who built it", []string{"a thought"}, []string{"a fragment"})

	assert.Contains(t, prompt, "who built it")
	assert.Contains(t, prompt, "- a thought")
	assert.Contains(t, prompt, "- a fragment")
}
