package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// Thought is one reasoning provider response
type Thought struct {
	Thought        string  `json:"thought"`
	NextQuery      string  `json:"next_query,omitempty"`
	Confidence     float64 `json:"confidence"`
	ShouldRetrieve bool    `json:"should_retrieve"`
}

// Reasoner is the external language-model collaborator of the cycle
type Reasoner interface {
	// Reason produces the next thought given the query, the gathered context
	// and the prior thoughts
	Reason(ctx context.Context, query string, fragments, priorThoughts []string) (Thought, error)

	// Synthesize produces the final answer from the accumulated thoughts and
	// context
	Synthesize(ctx context.Context, query string, thoughts, fragments []string) (string, error)
}

const reasonPromptTemplate = `You are reasoning step by step over a knowledge graph to answer a question.

Question: %s

Context gathered so far:
%s

Prior thoughts:
%s

Respond with a JSON object: {"thought": "...", "next_query": "...", "confidence": 0.0-1.0, "should_retrieve": true|false}.
The next_query should name the entities or relations worth retrieving next.`

const synthesizePromptTemplate = `Answer the question using only the reasoning trace and the retrieved context below.

Question: %s

Reasoning trace:
%s

Retrieved context:
%s

Give a direct, complete answer.`

func buildReasonPrompt(query string, fragments, thoughts []string) string {
	return fmt.Sprintf(reasonPromptTemplate, query, bulleted(fragments), bulleted(thoughts))
}

func buildSynthesizePrompt(query string, thoughts, fragments []string) string {
	return fmt.Sprintf(synthesizePromptTemplate, query, bulleted(thoughts), bulleted(fragments))
}

func bulleted(lines []string) string {
	if len(lines) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// parseThought decodes a model response, tolerating responses that wrap the
// JSON in prose or skip it entirely
func parseThought(raw string) Thought {
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		var t Thought
		if err := json.Unmarshal([]byte(raw[start:end+1]), &t); err == nil && t.Thought != "" {
			if t.Confidence < 0 {
				t.Confidence = 0
			}
			if t.Confidence > 1 {
				t.Confidence = 1
			}
			return t
		}
	}

	// Plain-text fallback: treat the whole response as the thought.
	return Thought{Thought: raw, Confidence: 0.5, ShouldRetrieve: true}
}

// LangChainReasoner adapts a langchaingo llms.Model
type LangChainReasoner struct {
	model llms.Model
}

// NewLangChainReasoner creates a reasoner over a langchaingo model
func NewLangChainReasoner(model llms.Model) *LangChainReasoner {
	return &LangChainReasoner{model: model}
}

// Reason asks the model for the next thought
func (r *LangChainReasoner) Reason(ctx context.Context, query string, fragments, priorThoughts []string) (Thought, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, r.model, buildReasonPrompt(query, fragments, priorThoughts))
	if err != nil {
		return Thought{}, fmt.Errorf("reasoning call: %w", err)
	}
	return parseThought(out), nil
}

// Synthesize asks the model for the final answer
func (r *LangChainReasoner) Synthesize(ctx context.Context, query string, thoughts, fragments []string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, r.model, buildSynthesizePrompt(query, thoughts, fragments))
	if err != nil {
		return "", fmt.Errorf("answer synthesis call: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// OpenAIReasoner adapts an OpenAI-compatible chat completion endpoint
type OpenAIReasoner struct {
	client *openai.Client
	model  string
}

// NewOpenAIReasoner creates a reasoner over an OpenAI-compatible client
func NewOpenAIReasoner(client *openai.Client, model string) *OpenAIReasoner {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIReasoner{client: client, model: model}
}

func (r *OpenAIReasoner) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Reason asks the model for the next thought
func (r *OpenAIReasoner) Reason(ctx context.Context, query string, fragments, priorThoughts []string) (Thought, error) {
	out, err := r.complete(ctx, buildReasonPrompt(query, fragments, priorThoughts))
	if err != nil {
		return Thought{}, fmt.Errorf("reasoning call: %w", err)
	}
	return parseThought(out), nil
}

// Synthesize asks the model for the final answer
func (r *OpenAIReasoner) Synthesize(ctx context.Context, query string, thoughts, fragments []string) (string, error) {
	out, err := r.complete(ctx, buildSynthesizePrompt(query, thoughts, fragments))
	if err != nil {
		return "", fmt.Errorf("answer synthesis call: %w", err)
	}
	return strings.TrimSpace(out), nil
}
