package vecindex

import "math"

// cosineSimilarity computes cosine similarity between two float32 vectors.
// The dot-product loop is unrolled four wide; mismatched or zero vectors
// score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	i := 0
	for ; i+4 <= len(a); i += 4 {
		dot += float64(a[i])*float64(b[i]) +
			float64(a[i+1])*float64(b[i+1]) +
			float64(a[i+2])*float64(b[i+2]) +
			float64(a[i+3])*float64(b[i+3])
		normA += float64(a[i])*float64(a[i]) +
			float64(a[i+1])*float64(a[i+1]) +
			float64(a[i+2])*float64(a[i+2]) +
			float64(a[i+3])*float64(a[i+3])
		normB += float64(b[i])*float64(b[i]) +
			float64(b[i+1])*float64(b[i+1]) +
			float64(b[i+2])*float64(b[i+2]) +
			float64(b[i+3])*float64(b[i+3])
	}
	for ; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
