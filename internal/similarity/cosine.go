package similarity

import "math"

// Cosine computes the cosine similarity between two vectors.
// Vectors of different length, or with zero norm, have similarity 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance computes the cosine distance between two vectors
func CosineDistance(a, b []float32) float64 {
	return 1 - Cosine(a, b)
}

// Score is 1 - cosine distance clamped to [0, 1].
func Score(a, b []float32) float64 {
	s := 1 - CosineDistance(a, b)
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
