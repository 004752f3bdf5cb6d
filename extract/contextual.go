package extract

import (
	"context"
	"regexp"
	"strings"
)

// ContextualStrategy derives relations from temporal and spatial surface
// patterns in the context text. Roles are synthesized rather than extracted:
// temporal matches yield actor/state/temporal_context, spatial matches yield
// container/contained/location. The primary participant must be a known
// entity; context participants may be new and are materialized by the builder.
type ContextualStrategy struct{}

// NewContextualStrategy creates a contextual strategy
func NewContextualStrategy() *ContextualStrategy {
	return &ContextualStrategy{}
}

// Name returns the strategy name
func (c *ContextualStrategy) Name() string { return "contextual" }

var (
	temporalRe = regexp.MustCompile(`(?i)\b([\w][\w\s]*?)\s+(?:was|were|is|are|became|remained)\s+([\w][\w\s]*?)\s+(?:in|during)\s+(\d{3,4}|[A-Za-z]+\s+\d{3,4})\b`)
	spatialRe  = regexp.MustCompile(`(?i)\b([\w][\w\s]*?)\s+(?:contains|stores|holds)\s+([\w][\w\s]*?)\s+(?:in|at)\s+([\w][\w\s]*)`)
)

// Extract scans sentences for temporal and spatial patterns
func (c *ContextualStrategy) Extract(ctx context.Context, input Input) ([]NaryRelation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	known := newEntitySet(input.Entities)
	var out []NaryRelation

	for _, sentence := range splitSentences(input.Text) {
		if m := temporalRe.FindStringSubmatch(sentence); m != nil {
			actor := strings.TrimSpace(m[1])
			if known.contains(actor) {
				out = append(out, NaryRelation{
					Type: "temporal_state",
					Participants: []RoleBinding{
						{EntityName: actor, Role: "actor"},
						{EntityName: strings.TrimSpace(m[2]), Role: "state"},
						{EntityName: strings.TrimSpace(m[3]), Role: "temporal_context"},
					},
					Confidence: 0.6,
					SourceSpan: sentence,
				})
			}
		}

		if m := spatialRe.FindStringSubmatch(sentence); m != nil {
			container := strings.TrimSpace(m[1])
			contained := strings.TrimSpace(m[2])
			if known.contains(container) && known.contains(contained) {
				out = append(out, NaryRelation{
					Type: "spatial_containment",
					Participants: []RoleBinding{
						{EntityName: container, Role: "container"},
						{EntityName: contained, Role: "contained"},
						{EntityName: strings.TrimSpace(m[3]), Role: "location"},
					},
					Confidence: 0.6,
					SourceSpan: sentence,
				})
			}
		}
	}
	return out, nil
}
