package vecindex

import "sort"

// scored pairs a score with the vector's original snapshot position; the
// position is the documented tie-break for equal scores
type scored struct {
	pos   int
	score float64
}

// better imposes the total result order: higher score first, earlier
// insertion first on ties
func better(a, b scored) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.pos < b.pos
}

// selectTopK keeps the k best hits at or above the threshold. positions maps
// score index to snapshot position for re-ranked candidate subsets; nil means
// identity. Large result sets are cut with quickselect before the final sort
// instead of sorting everything.
func selectTopK(ids []string, scores []float64, positions []int, k int, threshold float64) []Result {
	hits := make([]scored, 0, len(scores))
	for i, s := range scores {
		if s < threshold {
			continue
		}
		pos := i
		if positions != nil {
			pos = positions[i]
		}
		hits = append(hits, scored{pos: pos, score: s})
	}
	if len(hits) == 0 {
		return nil
	}

	if k < len(hits) {
		quickselect(hits, k)
		hits = hits[:k]
	}
	sort.Slice(hits, func(i, j int) bool { return better(hits[i], hits[j]) })

	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = Result{ID: ids[h.pos], Score: h.score}
	}
	return out
}

// quickselect partitions hits so the k best (under better) occupy the first k
// slots, in arbitrary order
func quickselect(hits []scored, k int) {
	lo, hi := 0, len(hits)-1
	for lo < hi {
		p := partition(hits, lo, hi)
		switch {
		case p == k-1:
			return
		case p < k-1:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition uses a median-of-three pivot to stay deterministic and avoid the
// sorted-input worst case
func partition(hits []scored, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if better(hits[mid], hits[lo]) {
		hits[lo], hits[mid] = hits[mid], hits[lo]
	}
	if better(hits[hi], hits[lo]) {
		hits[lo], hits[hi] = hits[hi], hits[lo]
	}
	if better(hits[hi], hits[mid]) {
		hits[mid], hits[hi] = hits[hi], hits[mid]
	}
	pivot := hits[mid]
	hits[mid], hits[hi] = hits[hi], hits[mid]

	store := lo
	for i := lo; i < hi; i++ {
		if better(hits[i], pivot) {
			hits[i], hits[store] = hits[store], hits[i]
			store++
		}
	}
	hits[store], hits[hi] = hits[hi], hits[store]
	return store
}
