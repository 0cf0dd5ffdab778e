package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"medrag/internal/domain"
)

const maxBatch = 100

// OpenAIEmbedder calls any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
	// sendDimensions asks the server to truncate vectors, supported by text-embedding-3-*.
	sendDimensions bool
}

func NewOpenAIEmbedder(apiKey, model string, dimension int) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKey, model, "https://api.openai.com/v1", dimension)
}

func NewJinaEmbedder(apiKey, model string, dimension int) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKey, model, "https://api.jina.ai/v1", dimension)
}

func NewOllamaEmbedder(model, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	if dimension <= 0 {
		dimension = 768
		switch model {
		case "nomic-embed-text":
			dimension = 768
		case "mxbai-embed-large":
			dimension = 1024
		case "all-minilm":
			dimension = 384
		}
	}
	return newEmbedder("ollama", model, baseURL, dimension, 120*time.Second), nil
}

// NewOpenAICompatibleEmbedder builds an embedder for baseURL. A dimension of
// zero selects the model's native size.
func NewOpenAICompatibleEmbedder(apiKey, model, baseURL string, dimension int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, domain.Configf("embedding API key is empty")
	}
	if model == "" {
		return nil, domain.Configf("embedding model is required")
	}

	native := 1536
	switch model {
	case "text-embedding-3-small":
		native = 1536
	case "text-embedding-3-large":
		native = 3072
	case "text-embedding-ada-002":
		native = 1536
	case "jina-embeddings-v3":
		native = 1024
	case "jina-embeddings-v4":
		native = 2048
	}

	e := newEmbedder(apiKey, model, baseURL, native, 60*time.Second)
	if dimension > 0 && dimension != native {
		if !strings.HasPrefix(model, "text-embedding-3") {
			return nil, domain.Configf("model %s does not support dimension %d", model, dimension)
		}
		e.dimension = dimension
		e.sendDimensions = true
	}
	return e, nil
}

func newEmbedder(apiKey, model, baseURL string, dimension int, timeout time.Duration) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithRequestTimeout(timeout),
			option.WithMaxRetries(2),
		),
		model:     model,
		dimension: dimension,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatch {
		end := min(i+maxBatch, len(texts))

		embeddings, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		allEmbeddings = append(allEmbeddings, embeddings...)
	}

	return allEmbeddings, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: e.model,
	}
	if e.sendDimensions {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(embeddings) {
			continue
		}
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(data.Embedding), e.dimension)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		embeddings[data.Index] = vec
	}

	for i, vec := range embeddings {
		if vec == nil {
			return nil, fmt.Errorf("embedding response is missing input %d", i)
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
