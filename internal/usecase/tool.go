package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"medrag/internal/adapter/cache"
	"medrag/internal/domain"
	"medrag/internal/port"
)

// DefaultTopK is how many passages a RetrievalTool feeds the oracle.
const DefaultTopK = 3

// RetrievalTool answers a sub-question from one knowledge base: it retrieves
// the closest passages and asks the oracle to answer from them alone.
type RetrievalTool struct {
	name        string
	description string
	searcher    port.Searcher
	oracle      port.LLM
	topK        int
	cache       *cache.AnswerCache
	logger      *zap.Logger
}

type ToolOption func(*RetrievalTool)

func WithTopK(k int) ToolOption {
	return func(t *RetrievalTool) { t.topK = k }
}

// WithCache memoizes answers per tool and normalized question.
func WithCache(c *cache.AnswerCache) ToolOption {
	return func(t *RetrievalTool) { t.cache = c }
}

func WithToolLogger(l *zap.Logger) ToolOption {
	return func(t *RetrievalTool) { t.logger = l }
}

func NewRetrievalTool(name, description string, searcher port.Searcher, oracle port.LLM, opts ...ToolOption) (*RetrievalTool, error) {
	t := &RetrievalTool{
		name:        strings.TrimSpace(name),
		description: strings.TrimSpace(description),
		searcher:    searcher,
		oracle:      oracle,
		topK:        DefaultTopK,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.name == "" {
		return nil, domain.Configf("tool name is required")
	}
	if t.topK <= 0 {
		return nil, domain.Configf("tool %s: k must be positive, got %d", t.name, t.topK)
	}
	if searcher == nil || oracle == nil {
		return nil, domain.Configf("tool %s: searcher and oracle are required", t.name)
	}
	return t, nil
}

func (t *RetrievalTool) Name() string        { return t.name }
func (t *RetrievalTool) Description() string { return t.description }

type passage struct {
	Number     int
	Provenance string
	Text       string
}

// Answer retrieves context for question and returns the oracle's reply.
// Retrieval and oracle failures come back as *domain.ToolExecutionError.
func (t *RetrievalTool) Answer(ctx context.Context, question string) (string, error) {
	if t.cache != nil {
		if answer, ok := t.cache.Get(t.name, question); ok {
			t.logger.Debug("tool cache hit", zap.String("tool", t.name))
			return answer, nil
		}
	}

	prompt, retrieved, err := t.Prompt(ctx, question)
	if err != nil {
		return "", &domain.ToolExecutionError{ToolName: t.name, Err: err}
	}

	answer, err := t.oracle.Generate(ctx, prompt)
	if err != nil {
		return "", &domain.ToolExecutionError{ToolName: t.name, Err: err}
	}
	answer = strings.TrimSpace(answer)

	t.logger.Debug("tool answered",
		zap.String("tool", t.name),
		zap.Int("passages", retrieved),
		zap.Int("answer_len", len(answer)))

	if t.cache != nil {
		t.cache.Put(t.name, question, answer)
	}
	return answer, nil
}

// Prompt renders the grounded-answer prompt for question and reports how
// many passages it contains.
func (t *RetrievalTool) Prompt(ctx context.Context, question string) (string, int, error) {
	return AnswerPrompt(ctx, t.searcher, question, t.topK)
}

// AnswerPrompt retrieves the k closest passages for question and renders
// the prompt that asks the oracle to answer from them alone.
func AnswerPrompt(ctx context.Context, searcher port.Searcher, question string, k int) (string, int, error) {
	results, err := searcher.Query(ctx, question, k)
	if err != nil {
		return "", 0, fmt.Errorf("retrieve: %w", err)
	}

	passages := make([]passage, len(results))
	for i, r := range results {
		passages[i] = passage{
			Number:     i + 1,
			Provenance: provenance(r.Chunk),
			Text:       strings.TrimSpace(r.Chunk.Text),
		}
	}

	prompt, err := render(answerPrompt, struct {
		Question string
		Passages []passage
	}{
		Question: strings.TrimSpace(question),
		Passages: passages,
	})
	if err != nil {
		return "", 0, fmt.Errorf("render prompt: %w", err)
	}
	return prompt, len(passages), nil
}

// provenance labels a passage with its file, page and chunk position.
func provenance(c domain.Chunk) string {
	source := c.Source()
	if source == "" {
		source = "unknown source"
	} else {
		source = filepath.Base(source)
	}

	label := "source: " + source
	if page := c.Metadata[domain.MetaPage]; page != "" {
		label += ", page " + page
	}
	return fmt.Sprintf("%s, chunk %d", label, c.Index)
}
