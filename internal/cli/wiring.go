package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"medrag/config"
	"medrag/internal/adapter/cache"
	"medrag/internal/adapter/chunker"
	"medrag/internal/adapter/embedding"
	"medrag/internal/adapter/llm"
	"medrag/internal/adapter/loader"
	"medrag/internal/adapter/store"
	"medrag/internal/domain"
	"medrag/internal/port"
	"medrag/internal/usecase"
)

// newEmbedder selects the embedding provider named in config.
func newEmbedder(c config.EmbeddingConfig) (port.Embedder, error) {
	var (
		embedder port.Embedder
		err      error
	)
	switch c.Provider {
	case "hash":
		embedder, err = embedding.NewHashEmbedder(c.Dimension)
	case "ollama":
		embedder, err = embedding.NewOllamaEmbedder(c.Model, c.BaseURL, c.Dimension)
	case "openai", "jina":
		var key string
		if key, err = config.APIKey(c.APIKeyEnv); err != nil {
			return nil, err
		}
		switch {
		case c.BaseURL != "":
			embedder, err = embedding.NewOpenAICompatibleEmbedder(key, c.Model, c.BaseURL, c.Dimension)
		case c.Provider == "jina":
			embedder, err = embedding.NewJinaEmbedder(key, c.Model, c.Dimension)
		default:
			embedder, err = embedding.NewOpenAIEmbedder(key, c.Model, c.Dimension)
		}
	default:
		return nil, domain.Configf("unsupported embedding provider: %s", c.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// newOracle builds the chat client and wraps it with the per-call timeout
// and the request rate limit.
func newOracle(c config.LLMConfig) (port.LLM, error) {
	var key string
	if c.Provider != "ollama" {
		env := c.APIKeyEnv
		if env == "" {
			env = llm.DefaultKeyEnv(c.Provider)
		}
		var err error
		if key, err = config.APIKey(env); err != nil {
			return nil, err
		}
	}

	client, err := llm.NewClient(c.Provider, c.Model, c.BaseURL, key,
		llm.WithTemperature(c.Temperature),
		llm.WithMaxTokens(c.MaxTokens))
	if err != nil {
		return nil, err
	}

	var oracle port.LLM = client
	oracle = llm.WithTimeout(oracle, c.Timeout)
	oracle = llm.WithRateLimit(oracle, c.RequestsPerSecond, c.Burst)
	return oracle, nil
}

func newIndexUseCase(c *config.Config, log *zap.Logger, opts ...usecase.IndexOption) (*usecase.IndexUseCase, error) {
	embedder, err := newEmbedder(c.Embedding)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.NewRecursiveChunker(c.Chunking.ChunkSize, c.Chunking.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	sources := make(map[string]loader.Source, len(c.Domains))
	for _, d := range c.Domains {
		sources[d.ID] = loader.Source{Dir: d.CorpusDir, Includes: d.Includes, Excludes: d.Excludes}
	}

	opts = append([]usecase.IndexOption{
		usecase.WithBatchSize(c.Embedding.BatchSize),
		usecase.WithIndexLogger(log),
	}, opts...)
	return usecase.NewIndexUseCase(loader.NewDirectoryLoader(sources, log), ch, embedder, opts...), nil
}

// indexTargets lists the configured domains, or only the one named.
func indexTargets(c *config.Config, only string) ([]usecase.IndexTarget, error) {
	var targets []usecase.IndexTarget
	for _, d := range c.Domains {
		if only != "" && d.ID != only {
			continue
		}
		targets = append(targets, usecase.IndexTarget{DomainID: d.ID, Path: d.IndexPath})
	}
	if len(targets) == 0 {
		return nil, domain.Configf("unknown domain %q", only)
	}
	return targets, nil
}

// loadIndex opens one persisted domain index without building it.
func loadIndex(c *config.Config, domainID string) (*store.Index, error) {
	d, ok := c.Domain(domainID)
	if !ok {
		return nil, domain.Configf("unknown domain %q", domainID)
	}
	embedder, err := newEmbedder(c.Embedding)
	if err != nil {
		return nil, err
	}
	ix, err := store.Load(d.IndexPath, embedder)
	if err != nil {
		return nil, fmt.Errorf("open index for %s (run 'medrag index' first): %w", d.ID, err)
	}
	return ix, nil
}

// newAgent is the composition root: it makes sure every domain index exists,
// then wires one retrieval tool per domain into the agent.
func newAgent(ctx context.Context, c *config.Config, log *zap.Logger) (*usecase.Agent, error) {
	oracle, err := newOracle(c.LLM)
	if err != nil {
		return nil, err
	}

	indexUC, err := newIndexUseCase(c, log)
	if err != nil {
		return nil, err
	}
	targets, err := indexTargets(c, "")
	if err != nil {
		return nil, err
	}
	indices, err := indexUC.EnsureAll(ctx, targets, false)
	if err != nil {
		return nil, err
	}

	var answers *cache.AnswerCache
	if c.Retrieval.CacheSize > 0 {
		answers = cache.NewAnswerCache(c.Retrieval.CacheSize, c.Retrieval.CacheTTL)
	}

	tools := make([]usecase.Tool, 0, len(c.Domains))
	for _, d := range c.Domains {
		opts := []usecase.ToolOption{
			usecase.WithTopK(c.Retrieval.TopK),
			usecase.WithToolLogger(log),
		}
		if answers != nil {
			opts = append(opts, usecase.WithCache(answers))
		}
		tool, err := usecase.NewRetrievalTool(d.ToolName, d.Description, indices[d.ID], oracle, opts...)
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}

	registry, err := usecase.NewToolRegistry(tools...)
	if err != nil {
		return nil, err
	}
	return usecase.NewAgent(oracle, registry,
		usecase.WithMaxIterations(c.Agent.MaxIterations),
		usecase.WithMaxToolFailures(c.Agent.MaxToolFailures),
		usecase.WithLogger(log))
}
