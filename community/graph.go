// Package community clusters a hypergraph into communities by modularity
// optimization. Hyperedges are clique-expanded into pairwise edges before any
// graph algorithm runs. Louvain, Leiden refinement and hierarchical collapse
// are available, plus an auto mode that keeps the best-scoring result.
package community

import (
	"github.com/smallnest/hypergraphrag/hypergraph"
)

// weightedArc is one direction of an undirected weighted edge
type weightedArc struct {
	to     int
	weight float64
}

// weightedGraph is the flattened undirected graph the detection algorithms
// operate on. Node indexes are contiguous; ids map back to entity ids (or to
// synthetic super-node ids at higher hierarchy levels).
type weightedGraph struct {
	ids      []string
	adj      [][]weightedArc
	selfLoop []float64
	degree   []float64
	total    float64 // sum of undirected edge weights, self-loops included
}

// buildGraph flattens entities, binary relations and clique-expanded
// hyperedges into a weightedGraph. Parallel edges between the same pair are
// merged by weight sum.
func buildGraph(g *hypergraph.Hypergraph) *weightedGraph {
	entities := g.Entities()
	idx := make(map[string]int, len(entities))
	ids := make([]string, len(entities))
	for i, e := range entities {
		idx[e.ID] = i
		ids[i] = e.ID
	}

	type pair struct{ a, b int }
	pairWeight := make(map[pair]float64)
	addEdge := func(src, dst string, w float64) {
		i, ok := idx[src]
		if !ok {
			return
		}
		j, ok := idx[dst]
		if !ok || i == j {
			return
		}
		if i > j {
			i, j = j, i
		}
		pairWeight[pair{i, j}] += w
	}

	for _, r := range g.Relations() {
		w := r.Weight
		if w <= 0 {
			w = 1
		}
		addEdge(r.Source, r.Target, w)
	}
	for _, e := range g.CliqueExpand() {
		addEdge(e.Source, e.Target, e.Weight)
	}

	wg := &weightedGraph{
		ids:      ids,
		adj:      make([][]weightedArc, len(ids)),
		selfLoop: make([]float64, len(ids)),
		degree:   make([]float64, len(ids)),
	}
	for p, w := range pairWeight {
		wg.adj[p.a] = append(wg.adj[p.a], weightedArc{to: p.b, weight: w})
		wg.adj[p.b] = append(wg.adj[p.b], weightedArc{to: p.a, weight: w})
		wg.degree[p.a] += w
		wg.degree[p.b] += w
		wg.total += w
	}
	return wg
}

// nodeCount returns the number of nodes
func (g *weightedGraph) nodeCount() int { return len(g.ids) }

// modularity scores a partition against the configuration null model.
// Communities are given as a node-index to community-index assignment.
func (g *weightedGraph) modularity(comm []int, resolution float64) float64 {
	if g.total == 0 {
		return 0
	}

	internal := make(map[int]float64)
	degSum := make(map[int]float64)
	for i := range g.adj {
		if comm[i] < 0 {
			continue
		}
		degSum[comm[i]] += g.degree[i]
		internal[comm[i]] += g.selfLoop[i]
		for _, arc := range g.adj[i] {
			if arc.to > i && comm[arc.to] == comm[i] {
				internal[comm[i]] += arc.weight
			}
		}
	}

	m := g.total
	var q float64
	for _, din := range internal {
		q += din / m
	}
	for _, ds := range degSum {
		frac := ds / (2 * m)
		q -= resolution * frac * frac
	}
	return q
}

// collapse builds the super-graph where every community of the given
// partition becomes one node. Nodes assigned -1 and arcs touching them are
// dropped.
func (g *weightedGraph) collapse(comm []int, superIDs []string) *weightedGraph {
	nSuper := len(superIDs)
	sg := &weightedGraph{
		ids:      superIDs,
		adj:      make([][]weightedArc, nSuper),
		selfLoop: make([]float64, nSuper),
		degree:   make([]float64, nSuper),
	}

	type pair struct{ a, b int }
	pairWeight := make(map[pair]float64)
	for i := range g.adj {
		ci := comm[i]
		if ci < 0 {
			continue
		}
		sg.selfLoop[ci] += g.selfLoop[i]
		for _, arc := range g.adj[i] {
			if arc.to <= i {
				continue
			}
			cj := comm[arc.to]
			if cj < 0 {
				continue
			}
			if ci == cj {
				sg.selfLoop[ci] += arc.weight
				continue
			}
			a, b := ci, cj
			if a > b {
				a, b = b, a
			}
			pairWeight[pair{a, b}] += arc.weight
		}
	}

	for p, w := range pairWeight {
		sg.adj[p.a] = append(sg.adj[p.a], weightedArc{to: p.b, weight: w})
		sg.adj[p.b] = append(sg.adj[p.b], weightedArc{to: p.a, weight: w})
		sg.degree[p.a] += w
		sg.degree[p.b] += w
		sg.total += w
	}
	for i := range sg.selfLoop {
		sg.degree[i] += 2 * sg.selfLoop[i]
		sg.total += sg.selfLoop[i]
	}
	return sg
}

// compactPartition renumbers community labels to a dense 0..k-1 range and
// returns the member node indexes per community
func compactPartition(comm []int) ([]int, [][]int) {
	remap := make(map[int]int)
	out := make([]int, len(comm))
	var members [][]int
	for i, c := range comm {
		dense, ok := remap[c]
		if !ok {
			dense = len(remap)
			remap[c] = dense
			members = append(members, nil)
		}
		out[i] = dense
		members[dense] = append(members[dense], i)
	}
	return out, members
}
