// Package cache stores measurements per revision so repeated passes skip work.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/panbanda/locplot/pkg/history"
)

// Cache is a directory of JSON measurement entries keyed by tool and revision.
// A commit's content never changes, so entries only expire through the TTL.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry is one cached measurement.
type Entry struct {
	Tool        string              `json:"tool"`
	Revision    string              `json:"revision"`
	Timestamp   time.Time           `json:"timestamp"`
	Measurement history.Measurement `json:"measurement"`
}

// New creates a cache in dir. A zero ttlHours disables expiry.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// Key derives the BLAKE3 entry key of a tool and revision.
func Key(tool, revision string) string {
	hash := blake3.Sum256([]byte(tool + "\x00" + revision))
	return hex.EncodeToString(hash[:])
}

// Get returns the cached measurement of revision by tool.
func (c *Cache) Get(tool, revision string) (history.Measurement, bool) {
	if !c.enabled {
		return history.Measurement{}, false
	}

	path := c.keyPath(tool, revision)
	data, err := os.ReadFile(path)
	if err != nil {
		return history.Measurement{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return history.Measurement{}, false
	}
	if entry.Tool != tool || entry.Revision != revision {
		return history.Measurement{}, false
	}

	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		os.Remove(path)
		return history.Measurement{}, false
	}

	return entry.Measurement, true
}

// Put stores a measurement.
func (c *Cache) Put(tool, revision string, m history.Measurement) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(Entry{
		Tool:        tool,
		Revision:    revision,
		Timestamp:   time.Now(),
		Measurement: m,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(c.keyPath(tool, revision), data, 0600)
}

// Invalidate removes one entry. Missing entries are not an error.
func (c *Cache) Invalidate(tool, revision string) error {
	if !c.enabled {
		return nil
	}
	err := os.Remove(c.keyPath(tool, revision))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	return os.RemoveAll(c.dir)
}

func (c *Cache) keyPath(tool, revision string) string {
	return filepath.Join(c.dir, Key(tool, revision)+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, nil
		}
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}

	return stats, nil
}
