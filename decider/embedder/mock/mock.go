// Package mock provides a deterministic placeholder embedder. Vectors are
// pseudo-random, seeded from a content hash, so equal texts always map to
// equal vectors. They carry no semantic meaning: the decider's dedup is
// lexical and uses these vectors only as a stored similarity substrate.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// DefaultDimensions matches the all-MiniLM-L6-v2 output size so the mock
// can stand in for the ONNX embedder.
const DefaultDimensions = 384

// Embedder generates hash-seeded placeholder embeddings.
type Embedder struct {
	dimensions int
}

// New creates a placeholder embedder with the default dimensions.
func New() *Embedder {
	return NewWithDimensions(DefaultDimensions)
}

// NewWithDimensions creates a placeholder embedder of the given size.
func NewWithDimensions(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dimensions: dims}
}

// Embed derives a unit vector from the FNV hash of the text, expanded
// with a linear congruential generator.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	normalize(vec)
	return vec, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func normalize(vec []float32) {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
}
