package store

import (
	"fmt"
	"time"

	"medrag/internal/domain"
	"medrag/internal/port"
)

// CurrentSchemaVersion is the on-disk format version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// Meta describes how a persisted index was built.
type Meta struct {
	SchemaVersion int       `json:"schema_version"`
	Dimension     int       `json:"dimension"`
	Model         string    `json:"model"`
	ChunkCount    int       `json:"chunk_count"`
	BuiltAt       time.Time `json:"built_at"`
}

// checkCompatibility reports whether vectors described by m can be compared
// with vectors from embedder.
func (m Meta) checkCompatibility(embedder port.Embedder) error {
	if m.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("%w: schema v%d, expected v%d", domain.ErrVersionMismatch, m.SchemaVersion, CurrentSchemaVersion)
	}
	if m.Dimension != embedder.Dimension() {
		return fmt.Errorf("%w: index has %d dimensions, embedder produces %d", domain.ErrVersionMismatch, m.Dimension, embedder.Dimension())
	}
	if m.Model != embedder.ModelName() {
		return fmt.Errorf("%w: index built with model %q, embedder is %q", domain.ErrVersionMismatch, m.Model, embedder.ModelName())
	}
	return nil
}
