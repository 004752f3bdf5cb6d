package community

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/smallnest/hypergraphrag/embed"
	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/log"
)

// Algorithm selects the detection algorithm
type Algorithm string

const (
	AlgorithmLouvain      Algorithm = "louvain"
	AlgorithmLeiden       Algorithm = "leiden"
	AlgorithmHierarchical Algorithm = "hierarchical"

	// AlgorithmAuto runs every algorithm and keeps the result with the
	// highest modularity
	AlgorithmAuto Algorithm = "auto"
)

// Config defines configuration for community detection
type Config struct {
	Algorithm Algorithm

	// Resolution scales the null-model term of modularity; higher values
	// favor smaller communities
	Resolution float64

	// MaxIterations caps the local-move passes per Louvain run
	MaxIterations int

	// MinCommunitySize drops communities below this size during refinement
	MinCommunitySize int

	// MaxLevels caps hierarchy depth for hierarchical detection
	MaxLevels int

	// Seed fixes the visit-order randomization; 0 seeds from the clock
	Seed int64

	Logger log.Logger
}

// DefaultConfig returns detection configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Algorithm:        AlgorithmLouvain,
		Resolution:       1.0,
		MaxIterations:    10,
		MinCommunitySize: 2,
		MaxLevels:        3,
		Logger:           log.GetDefaultLogger(),
	}
}

// Stats summarizes one detection run. CoverageRatio is the fraction of graph
// nodes assigned to a base-level community after size filtering.
type Stats struct {
	CommunityCount int
	AverageSize    float64
	MaxLevel       int
	CoverageRatio  float64
	Modularity     float64
}

// Detection is the result of one detection run. Communities holds every
// level; base-level communities have Level 0.
type Detection struct {
	Communities []hypergraph.Community
	Stats       Stats
}

// Detector clusters a hypergraph into communities
type Detector struct {
	cfg      Config
	embedder embed.Embedder
}

// NewDetector creates a detector. Centroid enrichment is skipped without an
// embedder.
func NewDetector(cfg Config) *Detector {
	return NewDetectorWithEmbedder(cfg, nil)
}

// NewDetectorWithEmbedder creates a detector that computes community
// centroids from member names
func NewDetectorWithEmbedder(cfg Config, embedder embed.Embedder) *Detector {
	if cfg.Resolution <= 0 {
		cfg.Resolution = 1.0
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	if cfg.MinCommunitySize <= 0 {
		cfg.MinCommunitySize = 2
	}
	if cfg.MaxLevels <= 0 {
		cfg.MaxLevels = 3
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmLouvain
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetDefaultLogger()
	}
	return &Detector{cfg: cfg, embedder: embedder}
}

// Detect runs the configured algorithm over the graph, enriches the detected
// communities and writes base-level membership back onto the entities
func (d *Detector) Detect(ctx context.Context, g *hypergraph.Hypergraph) (*Detection, error) {
	wg := buildGraph(g)
	if wg.nodeCount() == 0 {
		return &Detection{}, nil
	}

	seed := d.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	levels, err := d.runAlgorithm(ctx, wg, d.cfg.Algorithm, seed)
	if err != nil {
		return nil, fmt.Errorf("community detection (%s): %w", d.cfg.Algorithm, err)
	}

	detection := d.assemble(ctx, g, wg, levels)

	var base []hypergraph.Community
	for _, c := range detection.Communities {
		if c.Level == 0 {
			base = append(base, c)
		}
	}
	g.AssignCommunities(base)

	return detection, nil
}

// runAlgorithm dispatches to the selected algorithm; auto runs all three and
// keeps the best-scoring result. Every invocation seeds its own generator, so
// an auto run reproduces what a standalone run of the winning algorithm with
// the same seed would produce.
func (d *Detector) runAlgorithm(ctx context.Context, wg *weightedGraph, algo Algorithm, seed int64) ([]level, error) {
	cfg := d.cfg
	rng := rand.New(rand.NewSource(seed))
	switch algo {
	case AlgorithmLouvain:
		comm, err := louvain(ctx, wg, cfg.Resolution, cfg.MaxIterations, rng)
		if err != nil {
			return nil, err
		}
		return []level{{comm: filterSmall(wg, comm, cfg.MinCommunitySize)}}, nil

	case AlgorithmLeiden:
		comm, err := leiden(ctx, wg, cfg.Resolution, cfg.MaxIterations, cfg.MinCommunitySize, rng)
		if err != nil {
			return nil, err
		}
		return []level{{comm: comm}}, nil

	case AlgorithmHierarchical:
		return hierarchical(ctx, wg, cfg.Resolution, cfg.MaxIterations, cfg.MinCommunitySize, cfg.MaxLevels, rng)

	case AlgorithmAuto:
		var best []level
		bestQ := -1.0
		for _, candidate := range []Algorithm{AlgorithmLouvain, AlgorithmLeiden, AlgorithmHierarchical} {
			levels, err := d.runAlgorithm(ctx, wg, candidate, seed)
			if err != nil {
				d.cfg.Logger.Warn("auto detection: %s failed: %v", candidate, err)
				continue
			}
			q := bestModularity(wg, levels, cfg.Resolution)
			if q > bestQ {
				best, bestQ = levels, q
			}
		}
		if best == nil {
			return nil, fmt.Errorf("every candidate algorithm failed")
		}
		return best, nil

	default:
		return nil, fmt.Errorf("unknown algorithm %q", algo)
	}
}

// filterSmall marks members of undersized communities as unassigned
func filterSmall(wg *weightedGraph, comm []int, minSize int) []int {
	return refine(wg, comm, minSize)
}

// bestModularity returns the highest modularity across a result's levels
func bestModularity(wg *weightedGraph, levels []level, resolution float64) float64 {
	best := -1.0
	for _, lv := range levels {
		if q := wg.modularity(lv.comm, resolution); q > best {
			best = q
		}
	}
	return best
}

// assemble converts partition levels into enriched Community values plus run
// statistics
func (d *Detector) assemble(ctx context.Context, g *hypergraph.Hypergraph, wg *weightedGraph, levels []level) *Detection {
	detection := &Detection{}

	commID := func(lvl, idx int) string { return fmt.Sprintf("comm-%d-%d", lvl, idx) }
	children := make(map[string][]string)

	for lvl, lv := range levels {
		_, members := membersOf(lv.comm)
		labels := make([]int, 0, len(members))
		for idx := range members {
			labels = append(labels, idx)
		}
		sort.Ints(labels)
		for _, idx := range labels {
			nodes := members[idx]
			c := hypergraph.Community{
				ID:    commID(lvl, idx),
				Level: lvl,
			}
			for _, n := range nodes {
				c.Members = append(c.Members, wg.ids[n])
			}
			sort.Strings(c.Members)

			if lv.parent != nil && lv.parent[idx] >= 0 {
				c.ParentID = commID(lvl+1, lv.parent[idx])
				children[c.ParentID] = append(children[c.ParentID], c.ID)
			}

			d.enrich(ctx, g, wg, nodes, &c)
			detection.Communities = append(detection.Communities, c)
		}
	}

	for i := range detection.Communities {
		detection.Communities[i].ChildIDs = children[detection.Communities[i].ID]
	}

	d.fillStats(wg, levels, detection)
	return detection
}

// membersOf groups node indexes by community label, skipping unassigned nodes
func membersOf(comm []int) (int, map[int][]int) {
	members := make(map[int][]int)
	for i, c := range comm {
		if c >= 0 {
			members[c] = append(members[c], i)
		}
	}
	return len(members), members
}

// enrich fills metrics, label, central entities and the optional centroid for
// one community
func (d *Detector) enrich(ctx context.Context, g *hypergraph.Hypergraph, wg *weightedGraph, nodes []int, c *hypergraph.Community) {
	inside := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		inside[n] = true
	}

	var internalWeight float64
	internalEdges := 0
	internalDegree := make(map[int]float64, len(nodes))
	var degSum float64
	for _, n := range nodes {
		degSum += wg.degree[n]
		for _, arc := range wg.adj[n] {
			if !inside[arc.to] {
				continue
			}
			internalDegree[n] += arc.weight
			if arc.to > n {
				internalWeight += arc.weight
				internalEdges++
			}
		}
	}

	size := len(nodes)
	c.Metrics.Size = size
	if size > 1 {
		c.Metrics.Density = float64(internalEdges) / float64(size*(size-1)/2)
	}
	if internalEdges > 0 {
		c.Metrics.Coherence = internalWeight / float64(internalEdges)
	}
	if wg.total > 0 {
		frac := degSum / (2 * wg.total)
		c.Metrics.Modularity = internalWeight/wg.total - d.cfg.Resolution*frac*frac
	}

	// Central entities are the top members by internal degree.
	ranked := append([]int(nil), nodes...)
	sort.Slice(ranked, func(a, b int) bool {
		if internalDegree[ranked[a]] != internalDegree[ranked[b]] {
			return internalDegree[ranked[a]] > internalDegree[ranked[b]]
		}
		return wg.ids[ranked[a]] < wg.ids[ranked[b]]
	})
	for i := 0; i < len(ranked) && i < 3; i++ {
		c.CentralEntities = append(c.CentralEntities, wg.ids[ranked[i]])
	}

	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if e, ok := g.GetEntity(wg.ids[n]); ok {
			names = append(names, e.Name)
		}
	}
	c.Label = labelFor(names, c.ID)
	c.Summary = fmt.Sprintf("%d entities centered on %s", size, c.Label)

	if d.embedder != nil {
		c.Centroid = d.centroid(ctx, names)
	}
}

// centroid averages the embeddings of member names; items that fail to embed
// are skipped
func (d *Detector) centroid(ctx context.Context, names []string) []float32 {
	var sum []float32
	count := 0
	for _, name := range names {
		vec, err := d.embedder.Embed(ctx, name)
		if err != nil {
			d.cfg.Logger.Warn("centroid embedding for %q failed, skipping: %v", name, err)
			continue
		}
		if sum == nil {
			sum = make([]float32, len(vec))
		}
		if len(vec) != len(sum) {
			continue
		}
		for i, v := range vec {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float32(count)
	}
	return sum
}

var labelStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "or": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "with": true,
	"by": true, "is": true, "was": true, "are": true, "be": true,
}

// labelFor picks the most frequent significant word among member names
func labelFor(names []string, fallback string) string {
	counts := make(map[string]int)
	first := make(map[string]int)
	pos := 0
	for _, name := range names {
		for _, word := range strings.Fields(strings.ToLower(name)) {
			if labelStopwords[word] || len(word) < 2 {
				continue
			}
			if _, ok := first[word]; !ok {
				first[word] = pos
				pos++
			}
			counts[word]++
		}
	}

	best, bestCount := "", 0
	for word, n := range counts {
		if n > bestCount || (n == bestCount && first[word] < first[best]) {
			best, bestCount = word, n
		}
	}
	if best == "" {
		if len(names) > 0 {
			return names[0]
		}
		return fallback
	}
	return best
}

// fillStats computes run statistics over the base level
func (d *Detector) fillStats(wg *weightedGraph, levels []level, detection *Detection) {
	baseCount, baseMembers := membersOf(levels[0].comm)

	total := 0
	for _, nodes := range baseMembers {
		total += len(nodes)
	}

	detection.Stats.CommunityCount = baseCount
	if baseCount > 0 {
		detection.Stats.AverageSize = float64(total) / float64(baseCount)
	}
	detection.Stats.MaxLevel = len(levels) - 1
	if wg.nodeCount() > 0 {
		detection.Stats.CoverageRatio = float64(total) / float64(wg.nodeCount())
	}
	detection.Stats.Modularity = bestModularity(wg, levels, d.cfg.Resolution)
}
