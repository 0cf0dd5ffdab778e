package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medrag/internal/adapter/store"
	"medrag/internal/domain"
	"medrag/internal/port"
)

// IndexTarget names a domain and where its index is persisted.
type IndexTarget struct {
	DomainID string
	Path     string
}

// BuildProgressFunc reports embedding progress while a domain is rebuilt.
type BuildProgressFunc func(domainID string, done, total int)

// IndexUseCase materializes per-domain indices: load when persisted, build
// from the corpus otherwise.
type IndexUseCase struct {
	loader    port.CorpusLoader
	chunker   port.Chunker
	embedder  port.Embedder
	batchSize int
	progress  BuildProgressFunc
	logger    *zap.Logger
}

type IndexOption func(*IndexUseCase)

func WithBatchSize(n int) IndexOption {
	return func(u *IndexUseCase) { u.batchSize = n }
}

func WithBuildProgress(fn BuildProgressFunc) IndexOption {
	return func(u *IndexUseCase) { u.progress = fn }
}

func WithIndexLogger(l *zap.Logger) IndexOption {
	return func(u *IndexUseCase) { u.logger = l }
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(loader port.CorpusLoader, chunker port.Chunker, embedder port.Embedder, opts ...IndexOption) *IndexUseCase {
	u := &IndexUseCase{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Ensure returns the index for target. A persisted index is loaded unless
// force is set; a missing one is built from the corpus and persisted.
// Corrupt or incompatible indices are returned as errors, never rebuilt
// silently.
func (u *IndexUseCase) Ensure(ctx context.Context, target IndexTarget, force bool) (*store.Index, error) {
	logger := u.logger.With(zap.String("domain", target.DomainID), zap.String("path", target.Path))

	if !force {
		ix, err := store.Load(target.Path, u.embedder)
		if err == nil {
			logger.Info("index loaded", zap.Int("chunks", ix.Len()))
			return ix, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load index for %s: %w", target.DomainID, err)
		}
		logger.Info("no persisted index, building from corpus")
	}

	return u.Build(ctx, target)
}

// Build ingests, chunks, embeds and persists one domain unconditionally.
func (u *IndexUseCase) Build(ctx context.Context, target IndexTarget) (*store.Index, error) {
	docs, err := u.loader.LoadCorpus(ctx, target.DomainID)
	if err != nil {
		return nil, fmt.Errorf("load corpus for %s: %w", target.DomainID, err)
	}

	chunks, err := u.chunker.Split(docs)
	if err != nil {
		return nil, fmt.Errorf("chunk corpus for %s: %w", target.DomainID, err)
	}

	var opts []store.BuildOption
	if u.batchSize > 0 {
		opts = append(opts, store.WithBatchSize(u.batchSize))
	}
	if u.progress != nil {
		opts = append(opts, store.WithProgress(func(done, total int) {
			u.progress(target.DomainID, done, total)
		}))
	}

	ix, err := store.Build(ctx, u.embedder, chunks, opts...)
	if err != nil {
		return nil, fmt.Errorf("build index for %s: %w", target.DomainID, err)
	}
	if err := ix.Persist(target.Path); err != nil {
		return nil, fmt.Errorf("persist index for %s: %w", target.DomainID, err)
	}

	u.logger.Info("index built",
		zap.String("domain", target.DomainID),
		zap.String("path", target.Path),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", ix.Len()))
	return ix, nil
}

// EnsureAll runs Ensure for every target concurrently and returns the
// indices keyed by domain id. The first failure cancels the rest.
func (u *IndexUseCase) EnsureAll(ctx context.Context, targets []IndexTarget, force bool) (map[string]*store.Index, error) {
	var mu sync.Mutex
	indices := make(map[string]*store.Index, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			ix, err := u.Ensure(gctx, target, force)
			if err != nil {
				return err
			}
			mu.Lock()
			indices[target.DomainID] = ix
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return indices, nil
}
