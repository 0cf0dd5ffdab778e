package port

import (
	"context"

	"medrag/internal/domain"
)

// Searcher returns the k chunks most similar to a text, best first.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error)
}
