package community

import (
	"context"
	"fmt"
	"math/rand"
)

// level holds one hierarchy level's partition projected onto the original
// node set
type level struct {
	// comm maps original node index to this level's community index, -1 when
	// the node was filtered out at the base level
	comm []int

	// parent maps this level's community index to its community index at the
	// next level up; nil at the top level
	parent []int
}

// hierarchical repeatedly collapses communities into super-nodes and reruns
// detection on the super-graph, up to maxLevels. Parent links between
// adjacent levels follow the majority overlap of member node sets.
func hierarchical(ctx context.Context, g *weightedGraph, resolution float64, maxIterations, minSize, maxLevels int, rng *rand.Rand) ([]level, error) {
	base, err := leiden(ctx, g, resolution, maxIterations, minSize, rng)
	if err != nil {
		return nil, err
	}

	levels := []level{{comm: base}}
	current := g
	curAssign := base // current graph's node index to dense community label

	for depth := 1; depth < maxLevels; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		k := countCommunities(curAssign)
		if k <= 1 {
			break
		}

		superIDs := make([]string, k)
		for i := range superIDs {
			superIDs[i] = fmt.Sprintf("super-%d-%d", depth, i)
		}
		super := current.collapse(curAssign, superIDs)

		superComm, err := louvain(ctx, super, resolution, maxIterations, rng)
		if err != nil {
			return nil, err
		}
		if countCommunities(superComm) >= k {
			break // no further merging happened
		}

		// Community label at the previous level doubles as the super-graph
		// node index, so projecting onto original nodes is one hop.
		prev := levels[depth-1].comm
		projected := make([]int, len(prev))
		for i, c := range prev {
			if c < 0 {
				projected[i] = -1
			} else {
				projected[i] = superComm[c]
			}
		}

		levels[depth-1].parent = parentLinks(prev, projected)
		levels = append(levels, level{comm: projected})

		current = super
		curAssign = superComm
	}
	return levels, nil
}

// countCommunities counts distinct non-negative labels
func countCommunities(comm []int) int {
	seen := make(map[int]bool)
	for _, c := range comm {
		if c >= 0 {
			seen[c] = true
		}
	}
	return len(seen)
}

// parentLinks assigns each lower-level community the upper-level community
// holding the majority of its members
func parentLinks(lower, upper []int) []int {
	overlap := make(map[int]map[int]int)
	for i := range lower {
		lc, uc := lower[i], upper[i]
		if lc < 0 || uc < 0 {
			continue
		}
		if overlap[lc] == nil {
			overlap[lc] = make(map[int]int)
		}
		overlap[lc][uc]++
	}

	n := countCommunities(lower)
	parents := make([]int, n)
	for lc := 0; lc < n; lc++ {
		best, bestCount := -1, 0
		for uc, count := range overlap[lc] {
			if count > bestCount {
				best, bestCount = uc, count
			}
		}
		parents[lc] = best
	}
	return parents
}
