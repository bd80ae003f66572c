package cache

import (
	"testing"
	"time"
)

func TestLRUCacheBasic(t *testing.T) {
	c := NewLRUCache(3, time.Hour)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	if val, ok := c.Get("a"); !ok || val != "1" {
		t.Errorf("expected \"1\", got %q", val)
	}

	// "b" is now least recently used; adding one more evicts it.
	c.Set("d", "4")

	if _, ok := c.Get("b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	if c.Len() != 3 {
		t.Errorf("expected cache length 3, got %d", c.Len())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)

	c.Set("key", "value")
	if val, ok := c.Get("key"); !ok || val != "value" {
		t.Error("expected value to be present")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Error("expected value to be expired")
	}
}

func TestLRUCacheDumpRestore(t *testing.T) {
	c := NewLRUCache(10, time.Hour)
	c.Set(HashKey("prompt one"), "answer one")
	c.Set(HashKey("prompt two"), "answer two")

	restored := NewLRUCache(10, time.Hour)
	restored.Restore(c.Dump())

	if val, ok := restored.Get(HashKey("prompt one")); !ok || val != "answer one" {
		t.Errorf("restored cache missing entry, got %q", val)
	}
	if restored.Len() != 2 {
		t.Errorf("expected 2 entries after restore, got %d", restored.Len())
	}
}

func TestLRUCacheRestoreSkipsExpired(t *testing.T) {
	dump := map[string]Entry{
		"live": {Value: "ok", ExpiresAt: time.Now().Add(time.Hour)},
		"dead": {Value: "gone", ExpiresAt: time.Now().Add(-time.Hour)},
	}
	c := NewLRUCache(10, time.Hour)
	c.Restore(dump)

	if c.Len() != 1 {
		t.Errorf("expected only live entries restored, got %d", c.Len())
	}
	if _, ok := c.Get("dead"); ok {
		t.Error("expired entry should not be restored")
	}
}
