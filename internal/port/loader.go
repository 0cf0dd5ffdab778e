package port

import (
	"context"

	"medrag/internal/domain"
)

// CorpusLoader reads the source documents of one knowledge domain.
type CorpusLoader interface {
	LoadCorpus(ctx context.Context, domainID string) ([]domain.Document, error)
}
