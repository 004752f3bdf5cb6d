package vecindex

import (
	"math/rand"
	"sort"
)

// lshSeed fixes the projection planes so rebuilds of the same data hash
// identically
const lshSeed = 0x1c5b

// lshTable is one random-projection hash table
type lshTable struct {
	planes  [][]float32
	buckets map[uint32][]int
}

// lshIndex buckets vectors under several independent random projections. A
// query re-ranks only the union of its matching buckets across all tables.
type lshIndex struct {
	tables []lshTable
}

// buildLSH hashes every vector into the given number of tables with the
// given number of hyperplane bits per table
func buildLSH(vecs [][]float32, numTables, bits int) *lshIndex {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	rng := rand.New(rand.NewSource(lshSeed))

	idx := &lshIndex{tables: make([]lshTable, numTables)}
	for t := range idx.tables {
		planes := make([][]float32, bits)
		for b := range planes {
			plane := make([]float32, dim)
			for d := range plane {
				plane[d] = float32(rng.NormFloat64())
			}
			planes[b] = plane
		}
		table := lshTable{planes: planes, buckets: make(map[uint32][]int)}
		for i, v := range vecs {
			h := table.hash(v)
			table.buckets[h] = append(table.buckets[h], i)
		}
		idx.tables[t] = table
	}
	return idx
}

// hash projects a vector onto the table's hyperplanes, one sign bit each
func (t *lshTable) hash(vec []float32) uint32 {
	var h uint32
	for b, plane := range t.planes {
		var dot float64
		n := len(plane)
		if len(vec) < n {
			n = len(vec)
		}
		for d := 0; d < n; d++ {
			dot += float64(plane[d]) * float64(vec[d])
		}
		if dot >= 0 {
			h |= 1 << uint(b)
		}
	}
	return h
}

// candidates returns the deduplicated union of the query's bucket matches
// across all tables, in snapshot order
func (l *lshIndex) candidates(query []float32) []int {
	seen := make(map[int]bool)
	for _, table := range l.tables {
		for _, idx := range table.buckets[table.hash(query)] {
			seen[idx] = true
		}
	}

	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
