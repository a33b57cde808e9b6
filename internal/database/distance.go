package database

import "math"

// EuclideanDistance computes the L2 distance between two embedding vectors.
// Returns +Inf for mismatched or empty inputs so invalid comparisons never
// pass a match tolerance.
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Float32s converts an embedding to float32 components, the precision the
// ANN index and the vector column operate on. Lossy; exact storage keeps
// the float64 byte form.
func Float32s(embedding []float64) []float32 {
	out := make([]float32, len(embedding))
	for i, v := range embedding {
		out[i] = float32(v)
	}
	return out
}
