package models

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/medkitlab/medirag/src/cache"
)

// CachedLLM wraps an Agent and memoizes Generate calls in an LRU
// cache, optionally persisted to disk so repeated questions across
// sessions skip the remote call.
type CachedLLM struct {
	Agent    Agent
	Cache    *cache.LRUCache
	FilePath string
}

// NewCachedLLM creates the wrapper. With a non-empty filePath the
// cache is restored from disk at construction and re-persisted after
// each miss.
func NewCachedLLM(agent Agent, size int, ttl time.Duration, filePath string) *CachedLLM {
	c := &CachedLLM{
		Agent:    agent,
		Cache:    cache.NewLRUCache(size, ttl),
		FilePath: filePath,
	}
	if filePath != "" {
		c.load()
	}
	return c
}

func (c *CachedLLM) load() {
	f, err := os.Open(c.FilePath)
	if err != nil {
		return // no snapshot yet
	}
	defer f.Close()

	var dump map[string]cache.Entry
	if err := json.NewDecoder(f).Decode(&dump); err == nil {
		c.Cache.Restore(dump)
	}
}

func (c *CachedLLM) save() {
	if c.FilePath == "" {
		return
	}
	dump := c.Cache.Dump()

	// Atomic write: temp file, then rename.
	tmp := c.FilePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return
	}
	if err := json.NewEncoder(f).Encode(dump); err != nil {
		f.Close()
		os.Remove(tmp)
		return
	}
	f.Close()
	os.Rename(tmp, c.FilePath)
}

// Generate checks the cache before calling the underlying agent.
func (c *CachedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	key := cache.HashKey(prompt)
	if val, ok := c.Cache.Get(key); ok {
		return val, nil
	}

	res, err := c.Agent.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.Cache.Set(key, res)
	c.save()
	return res, nil
}

var _ Agent = (*CachedLLM)(nil)
