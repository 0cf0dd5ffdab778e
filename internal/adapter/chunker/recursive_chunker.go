package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"medrag/internal/domain"
)

// DefaultSeparators are the preferred cut points, strongest first.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " "}

// RecursiveChunker splits text into overlapping windows of at most chunkSize
// runes, cutting at the strongest separator available in each window.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators [][]rune
}

func NewRecursiveChunker(chunkSize, overlap int) (*RecursiveChunker, error) {
	if chunkSize <= 0 {
		return nil, domain.Configf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, domain.Configf("chunk overlap must be in [0, %d), got %d", chunkSize, overlap)
	}

	seps := make([][]rune, len(DefaultSeparators))
	for i, s := range DefaultSeparators {
		seps[i] = []rune(s)
	}

	return &RecursiveChunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: seps,
	}, nil
}

// Split chunks every document in order. Blank documents yield nothing.
func (c *RecursiveChunker) Split(docs []domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.chunk(doc)...)
	}
	return chunks, nil
}

func (c *RecursiveChunker) chunk(doc domain.Document) []domain.Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}

	runes := []rune(doc.Text)
	n := len(runes)

	var chunks []domain.Chunk
	start := 0

	for {
		end := n
		if n-start > c.chunkSize {
			end = c.cut(runes, start)
		}

		chunks = append(chunks, domain.Chunk{
			ID:       generateChunkID(doc.Source(), doc.Metadata[domain.MetaPage], len(chunks), start, end),
			Text:     string(runes[start:end]),
			Metadata: copyMetadata(doc.Metadata),
			Index:    len(chunks),
			Start:    start,
			End:      end,
		})

		if end == n {
			break
		}
		start = c.nextStart(runes, end)
	}

	return chunks
}

// cut returns the end offset of the chunk starting at start. A cut must land
// past start+overlap so the following chunk always advances.
func (c *RecursiveChunker) cut(runes []rune, start int) int {
	limit := start + c.chunkSize
	floor := start + c.overlap

	for _, sep := range c.separators {
		if p := lastCut(runes, sep, floor, limit); p > 0 {
			return p
		}
	}
	return limit
}

// lastCut finds the last occurrence of sep that ends within (floor, limit]
// and returns the offset just past it, or -1.
func lastCut(runes, sep []rune, floor, limit int) int {
	for p := limit; p > floor; p-- {
		i := p - len(sep)
		if i < 0 {
			break
		}
		if hasPrefix(runes[i:], sep) {
			return p
		}
	}
	return -1
}

func hasPrefix(runes, prefix []rune) bool {
	if len(runes) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if runes[i] != r {
			return false
		}
	}
	return true
}

// nextStart backs up overlap runes from end, then moves forward to the next
// word start so overlaps never begin mid-word.
func (c *RecursiveChunker) nextStart(runes []rune, end int) int {
	if c.overlap == 0 {
		return end
	}
	for p := end - c.overlap; p < end; p++ {
		if unicode.IsSpace(runes[p-1]) && !unicode.IsSpace(runes[p]) {
			return p
		}
	}
	return end
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func generateChunkID(source, page string, index, start, end int) string {
	data := fmt.Sprintf("%s#%s:%d:%d-%d", source, page, index, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
