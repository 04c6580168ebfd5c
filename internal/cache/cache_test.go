package cache

import (
	"testing"
	"time"
)

func TestBasicOperations(t *testing.T) {
	c := NewWithSweep(time.Minute, 0)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for missing key")
	}

	c.Set("key1", "value1", 0)
	v, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected hit for key1")
	}
	if v.(string) != "value1" {
		t.Errorf("value = %v, want value1", v)
	}

	stats := c.Stats()
	if stats.Hits != 1 {
		t.Errorf("hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewWithSweep(time.Minute, 0)

	c.Set("key1", 42, 100*time.Millisecond)

	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(150 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected miss after TTL elapsed")
	}

	// The expired read must also evict the entry from internal storage.
	if got := c.Stats().Entries; got != 0 {
		t.Errorf("entries after expired read = %d, want 0", got)
	}
}

func TestPerEntryTTLOverride(t *testing.T) {
	c := NewWithSweep(10*time.Millisecond, 0)

	// Entry-level TTL beats the cache default.
	c.Set("long", "v", time.Minute)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("long"); !ok {
		t.Error("entry with long TTL expired at the cache default")
	}
}

func TestClear(t *testing.T) {
	c := NewWithSweep(time.Minute, 0)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be gone after Clear")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be gone after Clear")
	}
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	c := NewWithSweep(10*time.Millisecond, 0)

	c.Set("a", 1, 0)
	c.Set("keep", 2, time.Minute)
	time.Sleep(20 * time.Millisecond)

	c.sweep()

	stats := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("entries after sweep = %d, want 1", stats.Entries)
	}
	if _, ok := c.Get("keep"); !ok {
		t.Error("unexpired entry removed by sweep")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := New(time.Minute)
	c.Stop()
	c.Stop()

	c.Set("key", "v", 0)
	if _, ok := c.Get("key"); !ok {
		t.Error("cache unusable after Stop")
	}
}
