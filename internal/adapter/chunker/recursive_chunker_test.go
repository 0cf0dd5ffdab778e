package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

const leaflet = `Amoxicillin is a penicillin antibiotic used to treat bacterial infections.

The usual adult dose is 500 mg every 8 hours. Children receive a weight based dose; consult the formulary.

Adverse effects include rash, diarrhoea and, rarely, anaphylaxis. Stop treatment if a severe reaction occurs!
Is it on the WHO list? Yes, it is listed as a core access antibiotic.`

func reconstruct(t *testing.T, chunks []domain.Chunk) string {
	t.Helper()
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c.Text)
			continue
		}
		skip := chunks[i-1].End - c.Start
		require.GreaterOrEqual(t, skip, 0)
		sb.WriteString(string([]rune(c.Text)[skip:]))
	}
	return sb.String()
}

func TestRecursiveChunkerCoverage(t *testing.T) {
	sizes := []struct{ size, overlap int }{
		{40, 0}, {40, 10}, {80, 20}, {120, 30}, {500, 50}, {7, 3},
	}

	doc := domain.Document{Text: leaflet, Metadata: map[string]string{domain.MetaSource: "amox.txt"}}

	for _, s := range sizes {
		c, err := NewRecursiveChunker(s.size, s.overlap)
		require.NoError(t, err)

		chunks, err := c.Split([]domain.Document{doc})
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		assert.Equal(t, leaflet, reconstruct(t, chunks), "size=%d overlap=%d", s.size, s.overlap)

		for i, ch := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), s.size)
			assert.Equal(t, i, ch.Index)
			assert.Equal(t, ch.End-ch.Start, utf8.RuneCountInString(ch.Text))
			assert.Equal(t, "amox.txt", ch.Source())
			if i > 0 {
				overlap := chunks[i-1].End - ch.Start
				assert.GreaterOrEqual(t, overlap, 0)
				assert.LessOrEqual(t, overlap, s.overlap)
				assert.Greater(t, ch.Start, chunks[i-1].Start)
			}
		}
	}
}

func TestRecursiveChunkerPrefersParagraphs(t *testing.T) {
	text := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30)
	c, err := NewRecursiveChunker(50, 0)
	require.NoError(t, err)

	chunks, err := c.Split([]domain.Document{{Text: text}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, strings.Repeat("a", 30)+"\n\n", chunks[0].Text)
	assert.Equal(t, strings.Repeat("b", 30), chunks[1].Text)
}

func TestRecursiveChunkerHardCut(t *testing.T) {
	text := strings.Repeat("x", 25)
	c, err := NewRecursiveChunker(10, 2)
	require.NoError(t, err)

	chunks, err := c.Split([]domain.Document{{Text: text}})
	require.NoError(t, err)

	assert.Equal(t, text, reconstruct(t, chunks))
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 10)
	}
}

func TestRecursiveChunkerOverlapStartsAtWord(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	c, err := NewRecursiveChunker(20, 8)
	require.NoError(t, err)

	chunks, err := c.Split([]domain.Document{{Text: text}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	runes := []rune(text)
	for _, ch := range chunks[1:] {
		if ch.Start > 0 {
			assert.Equal(t, ' ', runes[ch.Start-1], "chunk %q starts mid-word", ch.Text)
		}
	}
	assert.Equal(t, text, reconstruct(t, chunks))
}

func TestRecursiveChunkerMultibyte(t *testing.T) {
	text := strings.Repeat("дозировка лекарства ", 20)
	c, err := NewRecursiveChunker(30, 5)
	require.NoError(t, err)

	chunks, err := c.Split([]domain.Document{{Text: text}})
	require.NoError(t, err)

	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Text))
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 30)
	}
	assert.Equal(t, text, reconstruct(t, chunks))
}

func TestRecursiveChunkerBlankDocuments(t *testing.T) {
	c, err := NewRecursiveChunker(100, 10)
	require.NoError(t, err)

	chunks, err := c.Split([]domain.Document{{Text: ""}, {Text: "  \n\t "}, {Text: "short"}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Text)
}

func TestRecursiveChunkerDeterministic(t *testing.T) {
	c, err := NewRecursiveChunker(60, 15)
	require.NoError(t, err)

	docs := []domain.Document{{Text: leaflet, Metadata: map[string]string{domain.MetaSource: "a"}}}
	first, err := c.Split(docs)
	require.NoError(t, err)
	second, err := c.Split(docs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRecursiveChunkerPageIDsAreDistinct(t *testing.T) {
	c, err := NewRecursiveChunker(100, 10)
	require.NoError(t, err)

	page := func(n string) domain.Document {
		return domain.Document{
			Text:     "Doxorubicin dosing depends on body surface area.",
			Metadata: map[string]string{domain.MetaSource: "oncology.pdf", domain.MetaPage: n},
		}
	}
	chunks, err := c.Split([]domain.Document{page("1"), page("2")})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, chunks[0].Start, chunks[1].Start)
	assert.Equal(t, chunks[0].End, chunks[1].End)
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)
}

func TestRecursiveChunkerMetadataIsCopied(t *testing.T) {
	c, err := NewRecursiveChunker(20, 0)
	require.NoError(t, err)

	meta := map[string]string{domain.MetaSource: "a.txt", domain.MetaDomain: "who"}
	chunks, err := c.Split([]domain.Document{{Text: leaflet, Metadata: meta}})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	chunks[0].Metadata[domain.MetaSource] = "changed"
	assert.Equal(t, "a.txt", meta[domain.MetaSource])
	assert.Equal(t, "who", chunks[1].Metadata[domain.MetaDomain])
}

func TestNewRecursiveChunkerValidation(t *testing.T) {
	tests := []struct{ size, overlap int }{
		{0, 0}, {-1, 0}, {10, -1}, {10, 10}, {10, 11},
	}
	for _, tt := range tests {
		_, err := NewRecursiveChunker(tt.size, tt.overlap)
		assert.ErrorIs(t, err, domain.ErrConfiguration, "size=%d overlap=%d", tt.size, tt.overlap)
	}
}
