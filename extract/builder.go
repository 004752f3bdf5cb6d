package extract

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/log"
)

// RolePattern is a recurring role signature promoted from the constructed
// hyperedges, used to speed up recognition of the same structure elsewhere
type RolePattern struct {
	Type      string
	Roles     []string
	Frequency int
}

// BuildStats reports per-strategy candidate counts and how the final set was
// assembled
type BuildStats struct {
	CandidatesByStrategy map[string]int
	FailedStrategies     []string
	Deduplicated         int
	BinaryWrapped        int
	NaryBuilt            int
}

// Result is the output of a builder run
type Result struct {
	Hyperedges []hypergraph.Hyperedge

	// NewEntities are participants that did not resolve against the input
	// entity set and were materialized, for the caller to persist
	NewEntities []hypergraph.Entity

	Patterns []RolePattern
	Stats    BuildStats
}

// BuilderOptions defines configuration for hyperedge construction
type BuilderOptions struct {
	// CreateMissingEntities materializes unknown participant names as new
	// context entities instead of dropping the candidate
	CreateMissingEntities bool

	// MinPatternFrequency is the recurrence count at which a role signature
	// is promoted to a named pattern
	MinPatternFrequency int

	Logger log.Logger
}

// DefaultBuilderOptions returns builder options with sensible defaults
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		CreateMissingEntities: true,
		MinPatternFrequency:   2,
		Logger:                log.GetDefaultLogger(),
	}
}

// Builder merges the output of several extraction strategies into a
// deduplicated hyperedge set. One failing strategy never blocks the others.
type Builder struct {
	strategies []Strategy
	opts       BuilderOptions
}

// NewBuilder creates a builder over the given strategies with default options
func NewBuilder(strategies ...Strategy) *Builder {
	return NewBuilderWithOptions(DefaultBuilderOptions(), strategies...)
}

// NewBuilderWithOptions creates a builder with explicit options
func NewBuilderWithOptions(opts BuilderOptions, strategies ...Strategy) *Builder {
	if opts.MinPatternFrequency <= 0 {
		opts.MinPatternFrequency = 2
	}
	if opts.Logger == nil {
		opts.Logger = log.GetDefaultLogger()
	}
	return &Builder{strategies: strategies, opts: opts}
}

// Build runs every strategy, deduplicates candidates, wraps binary relations
// and assembles the final hyperedge set
func (b *Builder) Build(ctx context.Context, input Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Stats: BuildStats{CandidatesByStrategy: make(map[string]int)},
	}

	var candidates []NaryRelation
	for _, s := range b.strategies {
		rels, err := s.Extract(ctx, input)
		if err != nil {
			b.opts.Logger.Warn("extraction strategy %s failed, continuing: %v", s.Name(), err)
			result.Stats.FailedStrategies = append(result.Stats.FailedStrategies, s.Name())
			continue
		}
		result.Stats.CandidatesByStrategy[s.Name()] = len(rels)
		candidates = append(candidates, rels...)
	}

	candidates = b.dedup(candidates, &result.Stats)

	byID := make(map[string]hypergraph.Entity, len(input.Entities))
	byName := make(entitySet, len(input.Entities))
	for _, e := range input.Entities {
		byID[e.ID] = e
		byName[normalizeName(e.Name)] = e.ID
	}

	for _, cand := range candidates {
		edge, ok := b.materialize(cand, byName, result)
		if !ok {
			continue
		}
		result.Hyperedges = append(result.Hyperedges, edge)
		result.Stats.NaryBuilt++
	}

	for _, rel := range input.Relations {
		if _, ok := byID[rel.Source]; !ok {
			continue
		}
		if _, ok := byID[rel.Target]; !ok {
			continue
		}
		result.Hyperedges = append(result.Hyperedges, hypergraph.Hyperedge{
			ID:   uuid.NewString(),
			Type: rel.Type,
			Participants: []hypergraph.Participant{
				{EntityID: rel.Source, Role: "subject", Weight: 1},
				{EntityID: rel.Target, Role: "object", Weight: 1},
			},
			Weight:     hypergraph.ClampUnit(rel.Weight),
			Confidence: hypergraph.ClampUnit(rel.Confidence),
			CreatedAt:  time.Now(),
		})
		result.Stats.BinaryWrapped++
	}

	result.Patterns = promotePatterns(result.Hyperedges, b.opts.MinPatternFrequency)

	if len(result.Hyperedges) == 0 && len(result.Stats.FailedStrategies) == len(b.strategies) && len(b.strategies) > 0 {
		return result, fmt.Errorf("hyperedge construction: all %d strategies failed", len(b.strategies))
	}
	return result, nil
}

// dedup removes candidates sharing a key of sorted participant names plus
// relation type
func (b *Builder) dedup(candidates []NaryRelation, stats *BuildStats) []NaryRelation {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		names := make([]string, len(c.Participants))
		for i, p := range c.Participants {
			names[i] = normalizeName(p.EntityName)
		}
		sort.Strings(names)
		key := strings.Join(names, "\x1f") + "\x1f" + c.Type
		if seen[key] {
			stats.Deduplicated++
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// materialize resolves candidate participants to entity ids and builds the
// hyperedge. Weight scales mildly with participant count and confidence
// decays with complexity.
func (b *Builder) materialize(cand NaryRelation, byName entitySet, result *Result) (hypergraph.Hyperedge, bool) {
	participants := make([]hypergraph.Participant, 0, len(cand.Participants))
	for _, p := range cand.Participants {
		key := normalizeName(p.EntityName)
		id, ok := byName[key]
		if !ok {
			if !b.opts.CreateMissingEntities {
				return hypergraph.Hyperedge{}, false
			}
			id = uuid.NewString()
			byName[key] = id
			result.NewEntities = append(result.NewEntities, hypergraph.Entity{
				ID:        id,
				Type:      "context",
				Name:      p.EntityName,
				CreatedAt: time.Now(),
			})
		}
		participants = append(participants, hypergraph.Participant{EntityID: id, Role: p.Role, Weight: 1})
	}

	k := float64(len(participants))
	weight := math.Min(1, 0.5+0.08*k)
	confidence := cand.Confidence * math.Pow(0.95, k-2)

	return hypergraph.Hyperedge{
		ID:           uuid.NewString(),
		Type:         cand.Type,
		Participants: participants,
		Weight:       weight,
		Confidence:   hypergraph.ClampUnit(confidence),
		SourceSpan:   cand.SourceSpan,
		CreatedAt:    time.Now(),
	}, true
}

// promotePatterns groups hyperedges by role signature and promotes signatures
// recurring at least minFreq times
func promotePatterns(edges []hypergraph.Hyperedge, minFreq int) []RolePattern {
	type sig struct {
		typ   string
		roles string
	}
	counts := make(map[sig]int)
	rolesFor := make(map[sig][]string)

	for _, e := range edges {
		roles := make([]string, len(e.Participants))
		for i, p := range e.Participants {
			roles[i] = p.Role
		}
		sort.Strings(roles)
		s := sig{typ: e.Type, roles: strings.Join(roles, ",")}
		counts[s]++
		if _, ok := rolesFor[s]; !ok {
			rolesFor[s] = roles
		}
	}

	var out []RolePattern
	for s, n := range counts {
		if n >= minFreq {
			out = append(out, RolePattern{Type: s.typ, Roles: rolesFor[s], Frequency: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Type < out[j].Type
	})
	return out
}
