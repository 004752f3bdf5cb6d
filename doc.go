// Package hypergraphrag is a hybrid knowledge-retrieval engine for Go.
//
// It builds a hypergraph over extracted entities and n-ary relations, clusters
// the graph into communities, indexes entities, communities and hyperedges as
// vectors for semantic recall, and drives an iterative think-retrieve-rethink
// reasoning loop that answers a query by alternating internal reasoning with
// targeted graph and vector lookups.
//
// # Packages
//
//   - hypergraph: the data model (entities, relations, hyperedges, communities,
//     graph paths) and an in-memory hypergraph container with bounded-hop
//     traversal and clique expansion.
//   - extract: turns extracted entities, triplets and context text into n-ary
//     hyperedges using pattern, triplet-grouping and contextual strategies.
//   - community: Louvain, Leiden and hierarchical community detection with an
//     auto mode that keeps the highest-modularity result.
//   - vecindex: per-category vector similarity index with a brute-force cosine
//     path, an LSH path for large collections, and a pluggable accelerator.
//   - retrieval: the hybrid retrieval service combining graph storage, vector
//     search and graph expansion behind a single search call.
//   - reasoning: the per-query reasoning cycle with a pluggable action policy
//     and reward shaping for reinforcement-style policies.
//   - embed: embedding provider interfaces and adapters (langchaingo, hash).
//   - store: graph store backends (memory, sqlite, postgres) and a redis-backed
//     search-result cache.
//   - log: logging interfaces and adapters used across the module.
//
// # Quick start
//
//	emb := embed.NewHashEmbedder(64)
//	graphStore := memory.NewGraphStore()
//	index := vecindex.New(emb, vecindex.DefaultConfig())
//	svc, err := retrieval.NewService(graphStore, index, emb, retrieval.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	cycle := reasoning.NewCycle(svc, reasoner, reasoning.DefaultConfig())
//	episode, err := cycle.Run(ctx, "how are A and C related?")
//	fmt.Println(episode.Answer)
//
// The retrieval service owns the authoritative write path: entities, relations
// and hyperedges are written to the graph store first and then projected into
// the vector index, so the graph store is always the source of truth.
package hypergraphrag
