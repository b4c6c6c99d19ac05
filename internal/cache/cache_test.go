package cache

import (
	"testing"
	"time"
)

func TestSetGetDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", 42, time.Minute)
	if v, ok := c.Get("k"); !ok || v.(int) != 42 {
		t.Errorf("expected 42, got %v (%v)", v, ok)
	}
	if !c.Has("k") {
		t.Error("expected Has to report the entry")
	}

	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to be gone after delete")
	}
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)

	c.Set("short", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected entry to expire")
	}
}

func TestClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after clear, got %d entries", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be gone after clear")
	}
}

func TestClearPrefix(t *testing.T) {
	c := New(time.Minute)

	c.Set("all_monitor_configs", 1, time.Minute)
	c.Set("all_monitor_configs_enabled", 2, time.Minute)
	c.Set("monitor_stats_x_24h", 3, time.Minute)

	c.ClearPrefix("all_monitor_configs")

	if _, ok := c.Get("all_monitor_configs"); ok {
		t.Error("expected prefix entry to be cleared")
	}
	if _, ok := c.Get("all_monitor_configs_enabled"); ok {
		t.Error("expected prefixed entry to be cleared")
	}
	if _, ok := c.Get("monitor_stats_x_24h"); !ok {
		t.Error("expected unrelated entry to survive")
	}
}

func TestCleanupEvictsExpired(t *testing.T) {
	c := New(time.Hour)

	c.Set("short", "v", time.Millisecond)
	c.Set("long", "v", time.Hour)
	time.Sleep(10 * time.Millisecond)

	c.Cleanup()
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after cleanup, got %d", c.Len())
	}

	keys := c.Keys()
	if len(keys) != 1 || keys[0] != "long" {
		t.Errorf("unexpected keys after cleanup: %v", keys)
	}
}
