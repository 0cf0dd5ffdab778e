package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// AnswerCache is an LRU cache with TTL for tool answers, keyed by tool name
// and normalized question.
type AnswerCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	key       string
	answer    string
	timestamp time.Time
}

func NewAnswerCache(maxSize int, ttl time.Duration) *AnswerCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnswerCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(tool, question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	hash := sha256.Sum256([]byte(tool + "\x00" + normalized))
	return hex.EncodeToString(hash[:16])
}

func (c *AnswerCache) Get(tool, question string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(tool, question)
	el, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.timestamp) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		return "", false
	}

	c.order.MoveToFront(el)
	return entry.answer, true
}

func (c *AnswerCache) Put(tool, question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(tool, question)
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.answer = answer
		entry.timestamp = c.now()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:       key,
		answer:    answer,
		timestamp: c.now(),
	})
}

// Invalidate drops every entry, e.g. after an index rebuild.
func (c *AnswerCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

func (c *AnswerCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
