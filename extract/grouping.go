package extract

import (
	"context"
	"strings"
)

// GroupingStrategy merges subject-predicate-object triplets that share
// entities into single n-ary relations. A group only becomes a relation when
// the union of entities across its triplets reaches three, the minimum for a
// true n-ary relation.
type GroupingStrategy struct{}

// NewGroupingStrategy creates a triplet grouping strategy
func NewGroupingStrategy() *GroupingStrategy {
	return &GroupingStrategy{}
}

// Name returns the strategy name
func (g *GroupingStrategy) Name() string { return "grouping" }

// Extract unions triplets that share an entity and emits one relation per
// group with at least three distinct entities
func (g *GroupingStrategy) Extract(ctx context.Context, input Input) ([]NaryRelation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input.Triplets) == 0 {
		return nil, nil
	}

	// Union-find over triplet indexes, connected when two triplets mention
	// the same entity name.
	parent := make([]int, len(input.Triplets))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	firstSeen := make(map[string]int)
	for i, t := range input.Triplets {
		for _, name := range []string{t.Subject, t.Object} {
			key := normalizeName(name)
			if key == "" {
				continue
			}
			if j, ok := firstSeen[key]; ok {
				union(i, j)
			} else {
				firstSeen[key] = i
			}
		}
	}

	groups := make(map[int][]int)
	for i := range input.Triplets {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	var out []NaryRelation
	for _, members := range groups {
		rel, ok := g.buildGroup(input.Triplets, members)
		if ok {
			out = append(out, rel)
		}
	}
	return out, nil
}

// buildGroup collapses one connected triplet group into an n-ary relation
func (g *GroupingStrategy) buildGroup(triplets []Triplet, members []int) (NaryRelation, bool) {
	type entityInfo struct {
		name      string
		isSubject bool
	}

	seen := make(map[string]*entityInfo)
	order := make([]string, 0, len(members)*2)
	predCount := make(map[string]int)
	var confSum float64

	for _, idx := range members {
		t := triplets[idx]
		predCount[normalizePredicate(t.Predicate)]++
		confSum += t.Confidence

		for _, pair := range []struct {
			name      string
			isSubject bool
		}{{t.Subject, true}, {t.Object, false}} {
			key := normalizeName(pair.name)
			if key == "" {
				continue
			}
			info, ok := seen[key]
			if !ok {
				info = &entityInfo{name: strings.TrimSpace(pair.name)}
				seen[key] = info
				order = append(order, key)
			}
			if pair.isSubject {
				info.isSubject = true
			}
		}
	}

	if len(seen) < 3 {
		return NaryRelation{}, false
	}

	participants := make([]RoleBinding, 0, len(order))
	for _, key := range order {
		info := seen[key]
		role := "object"
		if info.isSubject {
			role = "subject"
		}
		participants = append(participants, RoleBinding{EntityName: info.name, Role: role})
	}

	relType := "grouped_relation"
	best := 0
	for pred, n := range predCount {
		if n > best && pred != "" {
			best = n
			relType = pred
		}
	}

	conf := confSum / float64(len(members))
	if conf <= 0 {
		conf = 0.6
	}

	return NaryRelation{
		Type:         relType,
		Participants: participants,
		Confidence:   clampRange(conf, 0, 1),
	}, true
}

func normalizePredicate(pred string) string {
	return strings.Join(strings.Fields(strings.ToLower(pred)), "_")
}
