package port

import "medrag/internal/domain"

type Chunker interface {
	Split(docs []domain.Document) ([]domain.Chunk, error)
}
