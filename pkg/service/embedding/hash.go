// Package embedding provides the text embedding capability used by the
// memory store for similarity ranking.
package embedding

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"math"
)

// Dimensions is the vector length of every embedding this package produces.
// It matches the vector(384) columns of the pgvector backend.
const Dimensions = 384

// Hash is a deterministic pseudo-embedder. It expands SHA-512 digests of
// the input into a fixed-length unit vector. Identical input always yields
// an identical vector; semantic similarity quality is not a goal, only a
// stable ranking signal for the retrieval plumbing.
type Hash struct{}

// NewHash creates a hash-based embedder.
func NewHash() *Hash {
	return &Hash{}
}

func (x *Hash) Dimensions() int {
	return Dimensions
}

func (x *Hash) Embed(ctx context.Context, text string) ([]float32, error) {
	const blockSize = sha512.Size // 64 bytes per digest

	vec := make([]float32, 0, Dimensions)
	var counter [8]byte

	for block := 0; len(vec) < Dimensions; block++ {
		binary.BigEndian.PutUint64(counter[:], uint64(block))

		h := sha512.New()
		h.Write(counter[:])
		h.Write([]byte(text))
		digest := h.Sum(nil)

		for i := 0; i < blockSize && len(vec) < Dimensions; i++ {
			vec = append(vec, (float32(digest[i])-128)/128)
		}
	}

	return normalize(vec), nil
}

// normalize scales the vector to unit length so cosine similarity reduces
// to a dot product for every backend.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}

	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
