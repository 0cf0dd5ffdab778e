package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerCacheHitAndNormalization(t *testing.T) {
	c := NewAnswerCache(10, time.Minute)

	c.Put("WHO_Medicine_Tool", "What is amoxicillin?", "an antibiotic")

	answer, ok := c.Get("WHO_Medicine_Tool", "  what IS   amoxicillin? ")
	require.True(t, ok)
	assert.Equal(t, "an antibiotic", answer)

	_, ok = c.Get("Oncology_Treatment_Tool", "What is amoxicillin?")
	assert.False(t, ok, "answers are scoped to a tool")
}

func TestAnswerCacheTTL(t *testing.T) {
	c := NewAnswerCache(10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("tool", "q", "a")
	now = now.Add(30 * time.Second)
	_, ok := c.Get("tool", "q")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("tool", "q")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestAnswerCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewAnswerCache(2, time.Minute)

	c.Put("tool", "a", "1")
	c.Put("tool", "b", "2")
	_, ok := c.Get("tool", "a")
	require.True(t, ok)

	c.Put("tool", "c", "3")

	_, ok = c.Get("tool", "b")
	assert.False(t, ok)
	_, ok = c.Get("tool", "a")
	assert.True(t, ok)
	_, ok = c.Get("tool", "c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestAnswerCacheOverwriteAndInvalidate(t *testing.T) {
	c := NewAnswerCache(2, time.Minute)

	c.Put("tool", "q", "old")
	c.Put("tool", "q", "new")
	answer, ok := c.Get("tool", "q")
	require.True(t, ok)
	assert.Equal(t, "new", answer)
	assert.Equal(t, 1, c.Size())

	c.Invalidate()
	assert.Equal(t, 0, c.Size())
	_, ok = c.Get("tool", "q")
	assert.False(t, ok)
}
