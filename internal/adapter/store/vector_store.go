package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"medrag/internal/domain"
	"medrag/internal/port"
)

const defaultBatchSize = 64

// Index is an immutable set of chunks and their embeddings.
// It is safe for concurrent queries.
type Index struct {
	embedder port.Embedder
	chunks   []domain.Chunk
	vectors  [][]float32
	meta     Meta
}

// ProgressFunc reports how many chunks have been embedded so far.
type ProgressFunc func(done, total int)

type buildOptions struct {
	batchSize int
	progress  ProgressFunc
}

type BuildOption func(*buildOptions)

// WithBatchSize sets how many chunk texts are sent to the embedder at once.
func WithBatchSize(n int) BuildOption {
	return func(o *buildOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func WithProgress(fn ProgressFunc) BuildOption {
	return func(o *buildOptions) {
		o.progress = fn
	}
}

// Build embeds every chunk and returns a queryable index. Empty input yields
// an empty index.
func Build(ctx context.Context, embedder port.Embedder, chunks []domain.Chunk, opts ...BuildOption) (*Index, error) {
	o := buildOptions{batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}

	dim := embedder.Dimension()
	vectors := make([][]float32, 0, len(chunks))

	for i := 0; i < len(chunks); i += o.batchSize {
		end := min(i+o.batchSize, len(chunks))

		texts := make([]string, end-i)
		for j, c := range chunks[i:end] {
			texts[j] = c.Text
		}

		embeddings, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", i, end, err)
		}
		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(texts))
		}
		for _, v := range embeddings {
			if len(v) != dim {
				return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(v))
			}
		}
		vectors = append(vectors, embeddings...)

		if o.progress != nil {
			o.progress(end, len(chunks))
		}
	}

	owned := make([]domain.Chunk, len(chunks))
	copy(owned, chunks)

	return &Index{
		embedder: embedder,
		chunks:   owned,
		vectors:  vectors,
		meta: Meta{
			SchemaVersion: CurrentSchemaVersion,
			Dimension:     dim,
			Model:         embedder.ModelName(),
			ChunkCount:    len(owned),
			BuiltAt:       time.Now().UTC(),
		},
	}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

func (ix *Index) Meta() Meta {
	return ix.meta
}

// Query returns up to k chunks ranked by cosine similarity to text, highest
// first. Equal scores keep insertion order.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, domain.Configf("k must be positive, got %d", k)
	}
	if len(ix.chunks) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	embeddings, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 || len(embeddings[0]) != ix.meta.Dimension {
		return nil, fmt.Errorf("query embedding has unexpected shape")
	}
	query := embeddings[0]

	results := make([]domain.ScoredChunk, len(ix.chunks))
	for i, c := range ix.chunks {
		results[i] = domain.ScoredChunk{
			Chunk: c,
			Score: cosineSimilarity(query, ix.vectors[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
// A zero vector scores 0 against everything.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
