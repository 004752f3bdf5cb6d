package vecindex

// Accelerator is an optional batch similarity backend, typically hardware
// assisted. It is probed per query and never a hard dependency: when
// Available reports false or BatchSimilarity fails, the index transparently
// uses its CPU path.
type Accelerator interface {
	// Available reports whether the accelerator can take work right now
	Available() bool

	// BatchSimilarity scores the query against every vector, one score per
	// input vector in order
	BatchSimilarity(query []float32, vectors [][]float32) ([]float64, error)
}
