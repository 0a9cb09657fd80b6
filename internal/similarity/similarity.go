// Package similarity scores embedding vectors against each other.
package similarity

import "math"

// Vector is a float32 embedding vector.
type Vector = []float32

// Scorer returns a similarity in [0,1] for two vectors.
type Scorer interface {
	Similarity(a, b Vector) float64
}

// Cosine scores vectors by cosine similarity, with negative values clamped
// to zero.
type Cosine struct{}

func (Cosine) Similarity(a, b Vector) float64 {
	s := CosineSimilarity(a, b)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// CosineSimilarity computes raw cosine similarity between two vectors.
// Mismatched lengths, empty vectors and zero vectors score 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
