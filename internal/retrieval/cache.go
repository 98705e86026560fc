package retrieval

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rcliao/scriva/internal/model"
)

const (
	DefaultCacheTTL     = 30 * time.Minute
	DefaultCacheCleanup = 10 * time.Minute
)

// Cache holds loaded indexes per book key with expiry.
type Cache struct {
	c *cache.Cache
}

// NewCache returns a cache whose entries expire after ttl.
// A non-positive ttl uses DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{c: cache.New(ttl, DefaultCacheCleanup)}
}

func (c *Cache) Get(key model.BookKey) (*Index, bool) {
	v, ok := c.c.Get(key.String())
	if !ok {
		return nil, false
	}
	ix, ok := v.(*Index)
	return ix, ok
}

func (c *Cache) Set(key model.BookKey, ix *Index) {
	c.c.Set(key.String(), ix, cache.DefaultExpiration)
}

// Invalidate drops the cached index for key.
func (c *Cache) Invalidate(key model.BookKey) {
	c.c.Delete(key.String())
}

// Len returns the number of cached books, including expired entries not
// yet cleaned up.
func (c *Cache) Len() int { return c.c.ItemCount() }
