package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/adapter/cache"
	"medrag/internal/domain"
)

func scored(text, source string, index int, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			Text:     text,
			Index:    index,
			Metadata: map[string]string{domain.MetaSource: source},
		},
		Score: score,
	}
}

func TestRetrievalToolPromptHasNumberedPassages(t *testing.T) {
	searcher := &stubSearcher{results: []domain.ScoredChunk{
		scored("Amoxicillin treats bacterial infections.", "/data/data1/eml.pdf", 4, 0.9),
		scored("Paracetamol relieves fever.", "/data/data1/eml.pdf", 7, 0.4),
		scored("Ibuprofen is an NSAID.", "/data/data1/other.txt", 0, 0.2),
		scored("never retrieved", "x", 0, 0.1),
	}}
	oracle := &scriptedLLM{responses: []string{"  It treats bacterial infections.  "}}

	tool, err := NewRetrievalTool("WHO_Medicine_Tool", "WHO list", searcher, oracle)
	require.NoError(t, err)

	answer, err := tool.Answer(context.Background(), "What is amoxicillin used for?")
	require.NoError(t, err)
	assert.Equal(t, "It treats bacterial infections.", answer)
	assert.Equal(t, []string{"What is amoxicillin used for?"}, searcher.queries)

	require.Equal(t, 1, oracle.calls())
	prompt := oracle.prompt(0)
	assert.Contains(t, prompt, "Use only the following context")
	assert.Contains(t, prompt, "[1] source: eml.pdf, chunk 4\nAmoxicillin treats bacterial infections.")
	assert.Contains(t, prompt, "\n---\n[2] source: eml.pdf, chunk 7\nParacetamol relieves fever.")
	assert.Contains(t, prompt, "[3] source: other.txt, chunk 0")
	assert.NotContains(t, prompt, "never retrieved")
	assert.Equal(t, 2, strings.Count(prompt, "\n---\n"))
	assert.Contains(t, prompt, "Question: What is amoxicillin used for?")
	assert.NotContains(t, prompt, "No passages were retrieved")
}

func TestRetrievalToolPageProvenance(t *testing.T) {
	c := scored("text", "/a/b.pdf", 2, 1)
	c.Chunk.Metadata[domain.MetaPage] = "12"

	assert.Equal(t, "source: b.pdf, page 12, chunk 2", provenance(c.Chunk))
	assert.Equal(t, "source: unknown source, chunk 0", provenance(domain.Chunk{}))
}

func TestRetrievalToolInsufficientContext(t *testing.T) {
	oracle := &scriptedLLM{responses: []string{"I don't know."}}
	tool, err := NewRetrievalTool("Oncology_Treatment_Tool", "oncology", &stubSearcher{}, oracle)
	require.NoError(t, err)

	answer, err := tool.Answer(context.Background(), "What is the dose of unobtainium?")
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", answer)

	prompt := oracle.prompt(0)
	assert.Contains(t, prompt, "No passages were retrieved")
	assert.Contains(t, prompt, "may be insufficient")
	assert.Contains(t, prompt, "Do not guess.")
	assert.NotContains(t, prompt, "Context:")
}

func TestRetrievalToolOracleErrorIsToolExecutionError(t *testing.T) {
	cause := errors.New("503 from upstream")
	oracle := &scriptedLLM{err: cause}
	tool, err := NewRetrievalTool("WHO_Medicine_Tool", "", &stubSearcher{}, oracle)
	require.NoError(t, err)

	_, err = tool.Answer(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrToolExecution)
	assert.ErrorIs(t, err, cause)

	var toolErr *domain.ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "WHO_Medicine_Tool", toolErr.ToolName)
}

func TestRetrievalToolSearchErrorIsToolExecutionError(t *testing.T) {
	oracle := &scriptedLLM{responses: []string{"unused"}}
	tool, err := NewRetrievalTool("WHO_Medicine_Tool", "", &stubSearcher{err: domain.Configf("k must be positive")}, oracle)
	require.NoError(t, err)

	_, err = tool.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrToolExecution)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, 0, oracle.calls())
}

func TestRetrievalToolCache(t *testing.T) {
	oracle := &scriptedLLM{responses: []string{"first", "second"}}
	searcher := &stubSearcher{results: []domain.ScoredChunk{scored("ctx", "a", 0, 1)}}
	tool, err := NewRetrievalTool("WHO_Medicine_Tool", "", searcher, oracle,
		WithCache(cache.NewAnswerCache(10, time.Minute)))
	require.NoError(t, err)

	a1, err := tool.Answer(context.Background(), "What is amoxicillin?")
	require.NoError(t, err)
	a2, err := tool.Answer(context.Background(), "what is  amoxicillin?")
	require.NoError(t, err)

	assert.Equal(t, "first", a1)
	assert.Equal(t, "first", a2)
	assert.Equal(t, 1, oracle.calls())
}

func TestRetrievalToolFailuresAreNotCached(t *testing.T) {
	calls := 0
	oracle := funcLLM(func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	tool, err := NewRetrievalTool("T", "", &stubSearcher{}, oracle, WithCache(cache.NewAnswerCache(10, time.Minute)))
	require.NoError(t, err)

	_, err = tool.Answer(context.Background(), "q")
	require.Error(t, err)
	answer, err := tool.Answer(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}

func TestNewRetrievalToolValidation(t *testing.T) {
	oracle := &scriptedLLM{responses: []string{""}}

	_, err := NewRetrievalTool(" ", "d", &stubSearcher{}, oracle)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewRetrievalTool("T", "d", &stubSearcher{}, oracle, WithTopK(0))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewRetrievalTool("T", "d", nil, oracle)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	tool, err := NewRetrievalTool("T", " described ", &stubSearcher{}, oracle, WithTopK(5))
	require.NoError(t, err)
	assert.Equal(t, "described", tool.Description())
}
