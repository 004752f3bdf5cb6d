package extract

import (
	"context"
	"regexp"
	"strings"
)

// grammarRule maps a fixed surface pattern to a relation type and the roles of
// its capture groups, in order
type grammarRule struct {
	re         *regexp.Regexp
	relType    string
	roles      []string
	confidence float64
}

var defaultRules = []grammarRule{
	{
		re:         regexp.MustCompile(`(?i)\b([\w][\w\s]*?)\s+uses\s+([\w][\w\s]*?)\s+to\s+achieve\s+([\w][\w\s]*)`),
		relType:    "instrumental_relation",
		roles:      []string{"agent", "instrument", "purpose"},
		confidence: 0.75,
	},
	{
		re:         regexp.MustCompile(`(?i)\b([\w][\w\s]*?)\s+transfers\s+([\w][\w\s]*?)\s+to\s+([\w][\w\s]*)`),
		relType:    "transfer_relation",
		roles:      []string{"source", "object", "recipient"},
		confidence: 0.7,
	},
	{
		re:         regexp.MustCompile(`(?i)\b([\w][\w\s]*?)\s+collaborates\s+with\s+([\w][\w\s]*?)\s+on\s+([\w][\w\s]*)`),
		relType:    "collaboration_relation",
		roles:      []string{"agent", "partner", "topic"},
		confidence: 0.7,
	},
}

// PatternStrategy matches fixed grammar rules against the context text. Every
// captured participant must resolve to a known entity, otherwise the match is
// discarded.
type PatternStrategy struct {
	rules []grammarRule
}

// NewPatternStrategy creates a pattern strategy with the default grammar rules
func NewPatternStrategy() *PatternStrategy {
	return &PatternStrategy{rules: defaultRules}
}

// Name returns the strategy name
func (p *PatternStrategy) Name() string { return "pattern" }

// Extract scans each sentence of the input text against the grammar rules
func (p *PatternStrategy) Extract(ctx context.Context, input Input) ([]NaryRelation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	known := newEntitySet(input.Entities)
	var out []NaryRelation

	for _, sentence := range splitSentences(input.Text) {
		for _, rule := range p.rules {
			match := rule.re.FindStringSubmatch(sentence)
			if match == nil {
				continue
			}

			participants := make([]RoleBinding, 0, len(rule.roles))
			resolved := true
			for i, role := range rule.roles {
				name := strings.TrimSpace(match[i+1])
				if !known.contains(name) {
					resolved = false
					break
				}
				participants = append(participants, RoleBinding{EntityName: name, Role: role})
			}
			if !resolved {
				continue
			}

			out = append(out, NaryRelation{
				Type:         rule.relType,
				Participants: participants,
				Confidence:   clampRange(rule.confidence, 0.5, 0.9),
				SourceSpan:   sentence,
			})
		}
	}
	return out, nil
}

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
