package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"web-scraper-app/models"
)

// Cache memoises loaded tables keyed by path. An entry is reused only while
// the file's modification time and size are unchanged. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	loader  TableLoader
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	table   *models.Table
}

// NewCache wraps loader; a nil loader reads CSV files directly.
func NewCache(loader TableLoader) *Cache {
	if loader == nil {
		loader = Files{}
	}
	return &Cache{loader: loader, entries: make(map[string]cacheEntry)}
}

// Load returns the table at path, reading it only if it changed on disk.
// Callers must treat the returned table as read-only.
func (c *Cache) Load(path string) (*models.Table, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.Invalidate(path)
		return nil, &models.MissingFileError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("cache: stat %q: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.table, nil
	}

	t, err := c.loader.Load(path)
	if err != nil {
		return nil, err
	}
	c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), table: t}
	return t, nil
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
