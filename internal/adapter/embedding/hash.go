package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"medrag/internal/domain"
)

// HashModelName identifies vectors produced by HashEmbedder.
const HashModelName = "hash-v1"

const bigramWeight = 0.5

// HashEmbedder maps text to a fixed-size vector by signed feature hashing of
// word unigrams and bigrams. It is deterministic and needs no network, which
// makes it the default for local indexing and for tests.
type HashEmbedder struct {
	dimension int
}

func NewHashEmbedder(dimension int) (*HashEmbedder, error) {
	if dimension <= 0 {
		return nil, domain.Configf("embedding dimension must be positive, got %d", dimension)
	}
	return &HashEmbedder{dimension: dimension}, nil
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.embed(text)
	}
	return embeddings, nil
}

func (e *HashEmbedder) embed(text string) []float32 {
	acc := make([]float64, e.dimension)

	tokens := Tokenize(text)
	for i, tok := range tokens {
		e.add(acc, tok, 1)
		if i > 0 {
			e.add(acc, tokens[i-1]+" "+tok, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, e.dimension)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (e *HashEmbedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := sum % uint64(e.dimension)
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return HashModelName
}
