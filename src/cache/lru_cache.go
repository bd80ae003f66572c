package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Entry holds a cached response with its expiration time.
type Entry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LRUCache is a thread-safe LRU cache with TTL, used to memoize
// generated answers for repeated prompts.
type LRUCache struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	lru      *list.List
}

type entry struct {
	key   string
	value Entry
}

// NewLRUCache creates a cache holding at most capacity entries, each
// valid for ttl.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 128
	}
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Get retrieves a value, dropping it if expired.
func (c *LRUCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return "", false
	}
	ent := elem.Value.(*entry)
	if time.Now().After(ent.value.ExpiresAt) {
		c.lru.Remove(elem)
		delete(c.items, key)
		return "", false
	}
	c.lru.MoveToFront(elem)
	return ent.value.Value, true
}

// Set adds or updates a value, evicting the least recently used entry
// when over capacity.
func (c *LRUCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)
	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*entry).value = Entry{Value: value, ExpiresAt: expiresAt}
		return
	}

	elem := c.lru.PushFront(&entry{key: key, value: Entry{Value: value, ExpiresAt: expiresAt}})
	c.items[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Len returns the number of live entries.
func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// Dump snapshots the cache for persistence.
func (c *LRUCache) Dump() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dump := make(map[string]Entry, len(c.items))
	for k, elem := range c.items {
		dump[k] = elem.Value.(*entry).value
	}
	return dump
}

// Restore repopulates the cache from a snapshot, skipping expired
// entries and enforcing capacity.
func (c *LRUCache) Restore(dump map[string]Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Init()
	c.items = make(map[string]*list.Element, c.capacity)
	now := time.Now()
	for k, v := range dump {
		if now.After(v.ExpiresAt) {
			continue
		}
		elem := c.lru.PushFront(&entry{key: k, value: v})
		c.items[k] = elem
	}
	for c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// HashKey derives a stable cache key from a prompt.
func HashKey(prompt string) string {
	h := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(h[:])
}
