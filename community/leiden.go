package community

import (
	"context"
	"math/rand"
)

// leiden runs Louvain and then a refinement pass: communities smaller than
// minSize are dissolved and weakly-connected communities are split into their
// connected components. The result never scores worse than the raw Louvain
// partition on the surviving nodes.
func leiden(ctx context.Context, g *weightedGraph, resolution float64, maxIterations, minSize int, rng *rand.Rand) ([]int, error) {
	comm, err := louvain(ctx, g, resolution, maxIterations, rng)
	if err != nil {
		return nil, err
	}
	return refine(g, comm, minSize), nil
}

// refine splits disconnected communities and marks members of undersized
// communities as unassigned (community index -1)
func refine(g *weightedGraph, comm []int, minSize int) []int {
	_, members := compactPartition(comm)

	out := make([]int, len(comm))
	for i := range out {
		out[i] = -1
	}

	next := 0
	for _, nodes := range members {
		for _, component := range connectedComponents(g, nodes) {
			if len(component) < minSize {
				continue
			}
			for _, i := range component {
				out[i] = next
			}
			next++
		}
	}
	return out
}

// connectedComponents returns the connected components of the subgraph
// induced by the given node set
func connectedComponents(g *weightedGraph, nodes []int) [][]int {
	inSet := make(map[int]bool, len(nodes))
	for _, i := range nodes {
		inSet[i] = true
	}

	visited := make(map[int]bool, len(nodes))
	var components [][]int
	for _, start := range nodes {
		if visited[start] {
			continue
		}
		component := []int{start}
		visited[start] = true
		for cursor := 0; cursor < len(component); cursor++ {
			for _, arc := range g.adj[component[cursor]] {
				if inSet[arc.to] && !visited[arc.to] {
					visited[arc.to] = true
					component = append(component, arc.to)
				}
			}
		}
		components = append(components, component)
	}
	return components
}
