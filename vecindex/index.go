// Package vecindex maintains per-category vector stores over entities,
// communities and hyperedges and answers nearest-neighbor queries.
//
// Small categories are searched brute-force with an unrolled cosine kernel;
// past an activation threshold queries go through random-projection LSH with
// exact re-ranking. Each category's vector array lives in an immutable
// snapshot that index rebuilds replace atomically, so readers never observe a
// half-updated index.
package vecindex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/smallnest/hypergraphrag/embed"
	"github.com/smallnest/hypergraphrag/hypergraph"
	"github.com/smallnest/hypergraphrag/log"
)

// Category names one of the three independent vector stores
type Category string

const (
	CategoryEntities    Category = "entities"
	CategoryCommunities Category = "communities"
	CategoryHyperedges  Category = "hyperedges"
)

// ErrCapacityExceeded is returned when an index mutation would push a
// category past its configured bound. The caller decides what to prune;
// nothing is silently truncated.
var ErrCapacityExceeded = errors.New("vector index capacity exceeded")

// ErrUnknownCategory is returned for a category the index does not maintain
var ErrUnknownCategory = errors.New("unknown vector category")

// Config defines configuration for the vector index
type Config struct {
	// MaxVectorsPerCategory bounds each category; exceeding it is an error
	MaxVectorsPerCategory int

	// LSHThreshold is the per-category vector count above which queries use
	// the approximate LSH path
	LSHThreshold int

	// LSHTables and LSHBits shape the random-projection hash tables
	LSHTables int
	LSHBits   int

	// AccelThreshold is the snapshot size at which a configured accelerator
	// is tried before the CPU path
	AccelThreshold int

	// EmbedConcurrency bounds concurrent embedding fetches during rebuilds
	EmbedConcurrency int

	// EmbedCacheSize bounds the text-to-vector cache
	EmbedCacheSize int

	Logger log.Logger
}

// DefaultConfig returns index configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxVectorsPerCategory: 100000,
		LSHThreshold:          5000,
		LSHTables:             8,
		LSHBits:               12,
		AccelThreshold:        256,
		EmbedConcurrency:      8,
		EmbedCacheSize:        10000,
		Logger:                log.GetDefaultLogger(),
	}
}

// Result is one scored index hit
type Result struct {
	ID    string
	Score float64
}

// snapshot is one immutable generation of a category's vectors. ids and vecs
// are parallel; insertion order is the documented tie-break order for equal
// scores.
type snapshot struct {
	ids  []string
	vecs [][]float32
	lsh  *lshIndex
}

func emptySnapshot() *snapshot { return &snapshot{} }

// Index maintains the three category stores
type Index struct {
	embedder embed.Embedder
	cfg      Config
	cache    *embeddingCache
	accel    Accelerator

	entities    atomic.Pointer[snapshot]
	communities atomic.Pointer[snapshot]
	hyperedges  atomic.Pointer[snapshot]

	// per-category writer locks; readers stay lock-free on the snapshot
	// pointers
	entitiesMu    sync.Mutex
	communitiesMu sync.Mutex
	hyperedgesMu  sync.Mutex
}

// New creates a vector index over the given embedder
func New(embedder embed.Embedder, cfg Config) *Index {
	if cfg.MaxVectorsPerCategory <= 0 {
		cfg.MaxVectorsPerCategory = 100000
	}
	if cfg.LSHThreshold <= 0 {
		cfg.LSHThreshold = 5000
	}
	if cfg.LSHTables <= 0 {
		cfg.LSHTables = 8
	}
	if cfg.LSHBits <= 0 {
		cfg.LSHBits = 12
	}
	if cfg.AccelThreshold <= 0 {
		cfg.AccelThreshold = 256
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 8
	}
	if cfg.EmbedCacheSize <= 0 {
		cfg.EmbedCacheSize = 10000
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetDefaultLogger()
	}

	idx := &Index{
		embedder: embedder,
		cfg:      cfg,
		cache:    newEmbeddingCache(cfg.EmbedCacheSize),
	}
	idx.entities.Store(emptySnapshot())
	idx.communities.Store(emptySnapshot())
	idx.hyperedges.Store(emptySnapshot())
	return idx
}

// SetAccelerator plugs in an optional batch similarity accelerator. The
// accelerator is probed per query and any failure falls back to the CPU path.
func (x *Index) SetAccelerator(a Accelerator) { x.accel = a }

func (x *Index) slot(category Category) (*atomic.Pointer[snapshot], error) {
	switch category {
	case CategoryEntities:
		return &x.entities, nil
	case CategoryCommunities:
		return &x.communities, nil
	case CategoryHyperedges:
		return &x.hyperedges, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
}

// writeMu returns the lock serializing rebuilds of one category. Concurrent
// upserts to the same category would otherwise race on the load-merge-store
// and drop each other's batches.
func (x *Index) writeMu(category Category) *sync.Mutex {
	switch category {
	case CategoryCommunities:
		return &x.communitiesMu
	case CategoryHyperedges:
		return &x.hyperedgesMu
	default:
		return &x.entitiesMu
	}
}

// Count returns the vector count of one category
func (x *Index) Count(category Category) int {
	slot, err := x.slot(category)
	if err != nil {
		return 0
	}
	return len(slot.Load().ids)
}

// item is one id/text pair pending embedding during a rebuild
type item struct {
	id     string
	text   string
	vector []float32 // pre-computed embedding, skips the fetch
}

// IndexEntities upserts entities into the entity store. Entities without a
// stored embedding are embedded from their name and type.
func (x *Index) IndexEntities(ctx context.Context, entities []hypergraph.Entity) error {
	items := make([]item, 0, len(entities))
	for _, e := range entities {
		items = append(items, item{
			id:     e.ID,
			text:   e.Name + " " + e.Type,
			vector: e.Embedding,
		})
	}
	return x.rebuild(ctx, CategoryEntities, items)
}

// IndexCommunities upserts communities into the community store. A stored
// centroid is used directly, otherwise the label and summary are embedded.
func (x *Index) IndexCommunities(ctx context.Context, communities []hypergraph.Community) error {
	items := make([]item, 0, len(communities))
	for _, c := range communities {
		items = append(items, item{
			id:     c.ID,
			text:   strings.TrimSpace(c.Label + " " + c.Summary),
			vector: c.Centroid,
		})
	}
	return x.rebuild(ctx, CategoryCommunities, items)
}

// IndexHyperedges upserts hyperedges into the hyperedge store, embedding type
// and source span when no embedding is stored
func (x *Index) IndexHyperedges(ctx context.Context, edges []hypergraph.Hyperedge) error {
	items := make([]item, 0, len(edges))
	for _, e := range edges {
		items = append(items, item{
			id:     e.ID,
			text:   strings.TrimSpace(e.Type + " " + e.SourceSpan),
			vector: e.Embedding,
		})
	}
	return x.rebuild(ctx, CategoryHyperedges, items)
}

// rebuild embeds the batch with bounded concurrency, merges it over the
// current snapshot by id and swaps the new snapshot in atomically. Items that
// fail to embed are skipped, never aborting the batch.
func (x *Index) rebuild(ctx context.Context, category Category, items []item) error {
	slot, err := x.slot(category)
	if err != nil {
		return err
	}

	vectors := make([][]float32, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.cfg.EmbedConcurrency)
	for i := range items {
		g.Go(func() error {
			if len(items[i].vector) > 0 {
				vectors[i] = items[i].vector
				return nil
			}
			vec, err := x.embedText(gctx, items[i].text)
			if err != nil {
				x.cfg.Logger.Warn("embedding %s item %s failed, skipping: %v", category, items[i].id, err)
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("index %s: %w", category, err)
	}

	mu := x.writeMu(category)
	mu.Lock()
	defer mu.Unlock()

	old := slot.Load()
	position := make(map[string]int, len(old.ids))
	for i, id := range old.ids {
		position[id] = i
	}

	next := &snapshot{
		ids:  append([]string(nil), old.ids...),
		vecs: append([][]float32(nil), old.vecs...),
	}
	for i, it := range items {
		if vectors[i] == nil {
			continue
		}
		if pos, ok := position[it.id]; ok {
			next.vecs[pos] = vectors[i]
			continue
		}
		if len(next.ids) >= x.cfg.MaxVectorsPerCategory {
			return fmt.Errorf("%w: category %s at %d vectors", ErrCapacityExceeded, category, len(next.ids))
		}
		position[it.id] = len(next.ids)
		next.ids = append(next.ids, it.id)
		next.vecs = append(next.vecs, vectors[i])
	}

	if len(next.ids) > x.cfg.LSHThreshold {
		next.lsh = buildLSH(next.vecs, x.cfg.LSHTables, x.cfg.LSHBits)
	}

	slot.Store(next)
	return nil
}

// embedText fetches one embedding through the bounded cache
func (x *Index) embedText(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := x.cache.get(text); ok {
		return vec, nil
	}
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, errors.New("embedder returned empty vector")
	}
	x.cache.put(text, vec)
	return vec, nil
}

// Search returns up to k hits from one category scoring at or above the
// threshold, best first. Equal scores break ties by insertion order.
func (x *Index) Search(ctx context.Context, category Category, query []float32, k int, threshold float64) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slot, err := x.slot(category)
	if err != nil {
		return nil, err
	}
	snap := slot.Load()
	if len(snap.ids) == 0 || k <= 0 {
		return nil, nil
	}

	if snap.lsh != nil {
		return x.searchLSH(snap, query, k, threshold), nil
	}
	return x.searchBrute(snap, query, k, threshold), nil
}

// SearchText embeds the query text and searches the category
func (x *Index) SearchText(ctx context.Context, category Category, query string, k int, threshold float64) ([]Result, error) {
	vec, err := x.embedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return x.Search(ctx, category, vec, k, threshold)
}

// searchBrute scores every vector, via the accelerator when the batch is
// large enough and one is configured
func (x *Index) searchBrute(snap *snapshot, query []float32, k int, threshold float64) []Result {
	scores := x.scoreBatch(query, snap.vecs)
	return selectTopK(snap.ids, scores, nil, k, threshold)
}

// searchLSH gathers bucket candidates across all hash tables and re-ranks
// them by exact cosine similarity
func (x *Index) searchLSH(snap *snapshot, query []float32, k int, threshold float64) []Result {
	candidates := snap.lsh.candidates(query)
	if len(candidates) == 0 {
		return nil
	}

	scores := make([]float64, len(candidates))
	for i, idx := range candidates {
		scores[i] = cosineSimilarity(query, snap.vecs[idx])
	}
	return selectTopK(snap.ids, scores, candidates, k, threshold)
}

// scoreBatch computes query similarity against every vector, preferring the
// accelerator for large batches and falling back to the CPU on any failure
func (x *Index) scoreBatch(query []float32, vecs [][]float32) []float64 {
	if x.accel != nil && len(vecs) >= x.cfg.AccelThreshold && x.accel.Available() {
		scores, err := x.accel.BatchSimilarity(query, vecs)
		if err == nil && len(scores) == len(vecs) {
			return scores
		}
		if err != nil {
			x.cfg.Logger.Warn("accelerator batch failed, using cpu path: %v", err)
		}
	}

	scores := make([]float64, len(vecs))
	for i, v := range vecs {
		scores[i] = cosineSimilarity(query, v)
	}
	return scores
}
