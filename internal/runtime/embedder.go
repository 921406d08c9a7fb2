package runtime

import (
	"hash/fnv"
	"math"
	"strings"
)

// vectorEmbeddingDims is the fixed dimensionality used for the hashed
// product/query embedding below.
const vectorEmbeddingDims = 64

// hashEmbedder implements kvstore.Embedder with a deterministic hashed
// bag-of-words encoding: no pack repo ships a text-embedding model, and
// the "vector index is an interface, not a library" design note commits
// this system to leaving the real encoder swappable. This is a stdlib-only
// stand-in that makes ASearch's cosine similarity behave sensibly in tests
// and in a from-scratch deployment lacking a configured embedding service.
type hashEmbedder struct {
	dims int
}

func newHashEmbedder(dims int) *hashEmbedder {
	return &hashEmbedder{dims: dims}
}

func (h *hashEmbedder) Embed(text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		idx := hashToken(word) % uint32(h.dims)
		vec[idx]++
	}
	normalize(vec)
	return vec, nil
}

func hashToken(word string) uint32 {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(word))
	return hasher.Sum32()
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}
