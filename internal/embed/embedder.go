// Package embed implements the similarity stage: nearest-neighbor search
// over vector representations of previously labeled transactions.
package embed

import (
	"crypto/md5" //nolint:gosec // content addressing, not security
	"encoding/binary"
	"math"
	"math/rand"
)

// Dimensions is the size of every embedding vector.
const Dimensions = 384

// Embedder turns transaction text into a fixed-size vector.
type Embedder interface {
	Embed(text string) []float64
}

// HashEmbedder produces deterministic unit vectors seeded from a content
// hash. Identical text always yields identical vectors, so similarity search
// is reproducible for a fixed corpus without an external model.
type HashEmbedder struct{}

// Embed returns a 384-dimensional unit vector derived from the text.
func (HashEmbedder) Embed(text string) []float64 {
	sum := md5.Sum([]byte(text)) //nolint:gosec // content addressing, not security
	seed := int64(binary.BigEndian.Uint64(sum[:8]))

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // seeded for reproducibility, not randomness
	vec := make([]float64, Dimensions)
	var norm float64
	for i := range vec {
		vec[i] = rng.NormFloat64()
		norm += vec[i] * vec[i]
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// rescaled from [-1,1] into [0,1] so it can double as a confidence score.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}
