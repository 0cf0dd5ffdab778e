package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e, err := NewHashEmbedder(384)
	require.NoError(t, err)

	texts := []string{"Amoxicillin 500 mg every 8 hours", "Cisplatin nephrotoxicity"}
	first, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)

	other, err := NewHashEmbedder(384)
	require.NoError(t, err)
	second, err := other.Embed(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	for _, v := range first {
		assert.Len(t, v, 384)
	}
}

func TestHashEmbedderNormalized(t *testing.T) {
	e, err := NewHashEmbedder(64)
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"febrile neutropenia after chemotherapy"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e, err := NewHashEmbedder(16)
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"", "the of and"})
	require.NoError(t, err)
	for _, v := range vecs {
		assert.Equal(t, make([]float32, 16), v)
	}
}

func TestHashEmbedderSimilarity(t *testing.T) {
	e, err := NewHashEmbedder(384)
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{
		"What is the adult dose of amoxicillin?",
		"Amoxicillin adult dose: 500 mg every 8 hours.",
		"Tumour lysis syndrome is an oncology emergency.",
	})
	require.NoError(t, err)

	related := cosine(vecs[0], vecs[1])
	unrelated := cosine(vecs[0], vecs[2])
	assert.Greater(t, related, unrelated)
	assert.Greater(t, related, 0.3)
}

func TestHashEmbedderCanceled(t *testing.T) {
	e, err := NewHashEmbedder(8)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHashEmbedderValidation(t *testing.T) {
	_, err := NewHashEmbedder(0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"who", "essential", "medicine", "list"},
		Tokenize("Is it on the WHO essential medicines list?"))
	assert.Equal(t,
		[]string{"infection", "therapy", "virus", "diagnosis"},
		Tokenize("infections, therapies; virus & diagnosis"))
	assert.Equal(t, []string{"500", "mg"}, Tokenize("500 mg"))
}

func TestNewOpenAICompatibleEmbedder(t *testing.T) {
	_, err := NewOpenAICompatibleEmbedder("", "text-embedding-3-small", "http://localhost", 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	e, err := NewOpenAICompatibleEmbedder("key", "text-embedding-3-large", "http://localhost", 0)
	require.NoError(t, err)
	assert.Equal(t, 3072, e.Dimension())
	assert.Equal(t, "text-embedding-3-large", e.ModelName())

	e, err = NewOpenAICompatibleEmbedder("key", "text-embedding-3-small", "http://localhost", 384)
	require.NoError(t, err)
	assert.Equal(t, 384, e.Dimension())

	_, err = NewOpenAICompatibleEmbedder("key", "jina-embeddings-v3", "http://localhost", 384)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	o, err := NewOllamaEmbedder("all-minilm", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 384, o.Dimension())
}
