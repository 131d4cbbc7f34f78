package project

import (
	"log/slog"
	"sync"

	"github.com/starford/nomenclature/internal/storage"
)

// Cache holds the most recently loaded Project. It never reloads on its
// own: callers (or Watch) call Invalidate when files change.
type Cache struct {
	store  storage.Provider
	layout Layout
	logger *slog.Logger

	mu      sync.Mutex
	current *Project
}

// NewCache creates an empty cache for the project in store.
func NewCache(store storage.Provider, layout Layout, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, layout: layout, logger: logger}
}

// Get returns the cached project, loading it first if needed. Load errors
// are not cached.
func (c *Cache) Get() (*Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return c.current, nil
	}
	p, err := Load(c.store, c.layout, c.logger)
	if err != nil {
		return nil, err
	}
	c.current = p
	return p, nil
}

// Invalidate drops the cached project.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// Stale reports whether the files on disk differ from the cached project.
// An empty cache is stale.
func (c *Cache) Stale() (bool, error) {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return true, nil
	}
	fp, err := Fingerprint(c.store, c.layout)
	if err != nil {
		return false, err
	}
	return fp != cur.Fingerprint, nil
}
