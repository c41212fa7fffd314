package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/panbanda/locplot/pkg/history"
)

func sample() history.Measurement {
	return history.Measurement{
		Languages: []history.LanguageCount{{Language: "Go", Files: 2, Blank: 3, Comment: 4, Code: 50}},
		Aggregate: history.AggregateCount{Files: 2, Blank: 3, Comment: 4, Code: 50},
	}
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	c, err := New(filepath.Join(tmpDir, "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}

	c, err = New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache", "dir")

	if _, err := New(cacheDir, 24, true); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("New() should create cache directory")
	}
}

func TestPutAndGet(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := c.Put("gocloc", "abc123", sample()); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, ok := c.Get("gocloc", "abc123")
	if !ok {
		t.Fatal("Get() returned false for existing entry")
	}
	if got.Aggregate != sample().Aggregate || len(got.Languages) != 1 || got.Languages[0] != sample().Languages[0] {
		t.Errorf("Get() = %+v, want %+v", got, sample())
	}

	if _, ok := c.Get("cloc", "abc123"); ok {
		t.Error("entries of another tool must not be returned")
	}
	if _, ok := c.Get("gocloc", "def456"); ok {
		t.Error("Get() should miss for an unknown revision")
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	_ = c.Put("gocloc", "abc", sample())

	if err := c.Invalidate("gocloc", "abc"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, ok := c.Get("gocloc", "abc"); ok {
		t.Error("entry should be gone after Invalidate()")
	}
	if err := c.Invalidate("gocloc", "abc"); err != nil {
		t.Errorf("Invalidate() of a missing entry should succeed, got %v", err)
	}
}

func TestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, _ := New(dir, 24, true)
	_ = c.Put("gocloc", "a", sample())
	_ = c.Put("gocloc", "b", sample())

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Clear() should remove the cache directory")
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() after Clear() error: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries = %d, want 0", stats.Entries)
	}
}

func TestDisabledCache(t *testing.T) {
	c, _ := New("", 0, false)

	if err := c.Put("gocloc", "a", sample()); err != nil {
		t.Errorf("Put() on disabled cache should not error: %v", err)
	}
	if _, ok := c.Get("gocloc", "a"); ok {
		t.Error("Get() on disabled cache should miss")
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear() on disabled cache should not error: %v", err)
	}
	stats, err := c.GetStats()
	if err != nil || stats.Entries != 0 {
		t.Errorf("GetStats() on disabled cache = %+v, %v", stats, err)
	}
}

func TestGetStats(t *testing.T) {
	c, _ := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	_ = c.Put("gocloc", "a", sample())
	_ = c.Put("gocloc", "b", sample())

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.TotalSize <= 0 {
		t.Error("TotalSize should be positive")
	}
}

func TestTTLExpiration(t *testing.T) {
	tmpDir := t.TempDir()
	c := &Cache{
		dir:     filepath.Join(tmpDir, "cache"),
		ttl:     time.Hour,
		enabled: true,
	}
	os.MkdirAll(c.dir, 0755)

	if err := c.Put("gocloc", "a", sample()); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if _, ok := c.Get("gocloc", "a"); !ok {
		t.Error("Get() should return data before TTL expires")
	}

	entryPath := c.keyPath("gocloc", "a")
	c.ttl = time.Nanosecond
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("gocloc", "a"); ok {
		t.Error("Get() should miss after TTL expires")
	}
	if _, err := os.Stat(entryPath); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestKey(t *testing.T) {
	if Key("gocloc", "a") == Key("cloc", "a") {
		t.Error("different tools should produce different keys")
	}
	if Key("gocloc", "a") != Key("gocloc", "a") {
		t.Error("same input should produce the same key")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("tool and revision must be separated in the key")
	}
}
