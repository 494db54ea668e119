package analyzer

import (
	"slices"

	"unityarchitect/internal/models"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheEntry struct {
	code   string
	result models.AnalysisResult
}

// Cache memoises a Scanner by script content. Analysis is deterministic, so a
// cached result is identical to a fresh one.
type Cache struct {
	inner Scanner
	lru   *lru.Cache[uint64, cacheEntry]
}

// NewCache wraps inner with an LRU of the given size.
func NewCache(inner Scanner, size int) (*Cache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[uint64, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner, lru: c}, nil
}

// Analyze returns a copy of the cached result, computing it on a miss.
func (c *Cache) Analyze(code string) models.AnalysisResult {
	key := xxhash.Sum64String(code)
	if e, ok := c.lru.Get(key); ok && e.code == code {
		return clone(e.result)
	}
	result := c.inner.Analyze(code)
	c.lru.Add(key, cacheEntry{code: code, result: clone(result)})
	return result
}

func (c *Cache) Len() int { return c.lru.Len() }

func clone(r models.AnalysisResult) models.AnalysisResult {
	r.Findings = slices.Clone(r.Findings)
	if r.Findings == nil {
		r.Findings = []models.Finding{}
	}
	return r
}
