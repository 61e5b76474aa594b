package condition

import (
	lru "github.com/hashicorp/golang-lru"
)

// Cache holds compiled expressions keyed by language and source
type Cache struct {
	lru *lru.Cache
}

const DefaultCacheSize = 4096

// NewCache creates a Cache holding at most size entries. A non-positive size
// selects DefaultCacheSize
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &Cache{lru: c}
}

// Get returns the cached value for key
func (c *Cache) Get(key string) (Compiled, bool) {
	return c.lru.Get(key)
}

// Add stores a value, evicting the least recently used entry when full
func (c *Cache) Add(key string, value Compiled) {
	c.lru.Add(key, value)
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	return c.lru.Len()
}

func cacheKey(lang, expr string) string {
	return lang + "\x00" + expr
}
