package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/store"
	"github.com/smallnest/hypergraphrag/vecindex"
)

// SearchOptions shapes one hybrid search. The zero value searches every
// category with the service defaults.
type SearchOptions struct {
	// Categories restricts the vector categories searched; empty means all
	Categories []vecindex.Category `json:"categories,omitempty"`

	// Limit caps the merged result count
	Limit int `json:"limit,omitempty"`

	// Threshold is the minimum vector similarity
	Threshold float64 `json:"threshold,omitempty"`

	// ExpandHops enables bounded-hop graph expansion from entity hits;
	// negative disables it regardless of the service default
	ExpandHops int `json:"expand_hops,omitempty"`
}

// Hit is one merged search result
type Hit struct {
	ID       string                `json:"id"`
	Score    float64               `json:"score"`
	Category vecindex.Category     `json:"category,omitempty"`
	Sources  []string              `json:"sources"`
	Path     *hypergraph.GraphPath `json:"path,omitempty"`
}

// HybridSearch embeds the query, searches the requested vector categories
// concurrently, optionally expands entity hits through the graph, then
// deduplicates, ranks and truncates. Results are cached keyed by the
// serialized query and options.
func (s *Service) HybridSearch(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	categories := opts.Categories
	if len(categories) == 0 {
		categories = []vecindex.Category{
			vecindex.CategoryEntities,
			vecindex.CategoryCommunities,
			vecindex.CategoryHyperedges,
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = s.cfg.DefaultThreshold
	}
	hops := opts.ExpandHops
	if hops == 0 {
		hops = s.cfg.ExpandHops
	}
	if hops < 0 {
		hops = 0
	}

	key := cacheKey(query, categories, limit, threshold, hops)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var hits []Hit
		if err := json.Unmarshal(cached, &hits); err == nil {
			return hits, nil
		}
	} else if !errors.Is(err, store.ErrCacheMiss) {
		s.cfg.Logger.Warn("result cache read failed: %v", err)
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Search each category concurrently; every search reads an immutable
	// snapshot, so an in-flight rebuild is never observed.
	var mu sync.Mutex
	var raw []Hit
	g, gctx := errgroup.WithContext(ctx)
	for _, category := range categories {
		g.Go(func() error {
			results, err := s.index.Search(gctx, category, vector, limit, threshold)
			if err != nil {
				return fmt.Errorf("search %s: %w", category, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, r := range results {
				raw = append(raw, Hit{
					ID:       r.ID,
					Score:    r.Score,
					Category: category,
					Sources:  []string{"vector:" + string(category)},
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if hops > 0 {
		raw = append(raw, s.expand(ctx, raw, hops)...)
	}

	hits := mergeHits(raw, s.cfg.MultiSourceBoost, limit)

	if data, err := json.Marshal(hits); err == nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			s.cfg.Logger.Warn("result cache write failed: %v", err)
		}
	}
	return hits, nil
}

// expand grows entity hits through bounded-hop graph traversal. A store
// failure degrades to vector-only results instead of failing the search.
func (s *Service) expand(ctx context.Context, hits []Hit, hops int) []Hit {
	var out []Hit
	for _, h := range hits {
		if h.Category != vecindex.CategoryEntities {
			continue
		}
		paths, err := s.graph.Neighbors(ctx, h.ID, hops)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				s.cfg.Logger.Warn("graph expansion from %s failed: %v", h.ID, err)
			}
			continue
		}
		for _, p := range paths {
			path := p
			out = append(out, Hit{
				ID:       p.Nodes[len(p.Nodes)-1],
				Score:    h.Score * p.Score * s.cfg.ExpansionDamping,
				Category: vecindex.CategoryEntities,
				Sources:  []string{"graph"},
				Path:     &path,
			})
		}
	}
	return out
}

// mergeHits deduplicates by id keeping the maximum score, applies the
// multi-source boost once for ids found by more than one source and returns
// the top limit hits. Scores never exceed 1.
func mergeHits(raw []Hit, boost float64, limit int) []Hit {
	merged := make(map[string]*Hit, len(raw))
	order := make([]string, 0, len(raw))
	for _, h := range raw {
		cur, ok := merged[h.ID]
		if !ok {
			copied := h
			merged[h.ID] = &copied
			order = append(order, h.ID)
			continue
		}
		if h.Score > cur.Score {
			cur.Score = h.Score
			cur.Category = h.Category
		}
		if h.Path != nil && cur.Path == nil {
			cur.Path = h.Path
		}
		cur.Sources = appendSource(cur.Sources, h.Sources...)
	}

	out := make([]Hit, 0, len(order))
	for _, id := range order {
		h := *merged[id]
		if len(h.Sources) > 1 && boost > 0 {
			h.Score *= 1 + boost
		}
		if h.Score > 1 {
			h.Score = 1
		}
		out = append(out, h)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func appendSource(sources []string, add ...string) []string {
	for _, s := range add {
		found := false
		for _, have := range sources {
			if have == s {
				found = true
				break
			}
		}
		if !found {
			sources = append(sources, s)
		}
	}
	return sources
}

// cacheKey serializes the query and effective options into a stable key
func cacheKey(query string, categories []vecindex.Category, limit int, threshold float64, hops int) string {
	key, _ := json.Marshal(struct {
		Query      string              `json:"q"`
		Categories []vecindex.Category `json:"c"`
		Limit      int                 `json:"l"`
		Threshold  float64             `json:"t"`
		Hops       int                 `json:"h"`
	}{query, categories, limit, threshold, hops})
	return string(key)
}
