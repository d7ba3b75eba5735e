package cache

import (
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("park:1", 7, 10*time.Millisecond)

	if got, ok := c.Get("park:1"); !ok || got != 7 {
		t.Fatalf("expected hit with 7, got %v ok=%v", got, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("park:1"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[int64, string]()
	c.Set(42, "magic kingdom", 0)

	if got, ok := c.Get(42); !ok || got != "magic kingdom" {
		t.Fatalf("expected persistent entry, got %q ok=%v", got, ok)
	}
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c NoopCache[string, int]
	c.Set("anything", 1, time.Minute)
	if _, ok := c.Get("anything"); ok {
		t.Fatalf("noop cache must miss")
	}
}
