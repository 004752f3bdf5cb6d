package community

import (
	"context"
	"math/rand"
)

// louvain runs local-move modularity optimization over the graph and returns
// a dense partition. Per-community degree aggregates are maintained
// incrementally so evaluating one node costs O(degree), and visit order is
// reshuffled each pass to reduce first-mover bias.
func louvain(ctx context.Context, g *weightedGraph, resolution float64, maxIterations int, rng *rand.Rand) ([]int, error) {
	n := g.nodeCount()
	comm := make([]int, n)
	sigmaTot := make([]float64, n)
	for i := 0; i < n; i++ {
		comm[i] = i
		sigmaTot[i] = g.degree[i]
	}
	if g.total == 0 {
		return comm, nil
	}

	order := rng.Perm(n)
	m2 := 2 * g.total

	for pass := 0; pass < maxIterations; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		moved := false
		for _, i := range order {
			old := comm[i]
			sigmaTot[old] -= g.degree[i]

			// Weight from i to each neighboring community.
			neigh := map[int]float64{old: 0}
			for _, arc := range g.adj[i] {
				neigh[comm[arc.to]] += arc.weight
			}

			best, bestGain := old, neigh[old]-resolution*g.degree[i]*sigmaTot[old]/m2
			for c, w := range neigh {
				if c == old {
					continue
				}
				gain := w - resolution*g.degree[i]*sigmaTot[c]/m2
				if gain > bestGain {
					best, bestGain = c, gain
				}
			}

			comm[i] = best
			sigmaTot[best] += g.degree[i]
			if best != old {
				moved = true
			}
		}

		if !moved {
			break
		}
	}

	dense, _ := compactPartition(comm)
	return dense, nil
}
