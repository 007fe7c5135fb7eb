package listingcache

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRegistrySize bounds how many project maps stay loaded.
const DefaultRegistrySize = 16

// Registry hands out the Cache of each project, constructing it on first use.
// A project always gets the same Cache. When more than size projects are in
// use the least recently requested one drops its in-memory map and reloads
// it from the Store on next access; every mutation is already persisted.
type Registry struct {
	store  Store
	logger *slog.Logger
	opts   []Option

	mu       sync.Mutex
	caches   map[string]*Cache
	resident *lru.Cache[string, *Cache]
}

// NewRegistry creates a registry over store keeping at most size maps loaded.
func NewRegistry(store Store, size int, logger *slog.Logger, opts ...Option) (*Registry, error) {
	if size <= 0 {
		size = DefaultRegistrySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	resident, err := lru.NewWithEvict[string, *Cache](size, func(_ string, c *Cache) {
		c.unload()
	})
	if err != nil {
		return nil, fmt.Errorf("listingcache: registry: %w", err)
	}
	return &Registry{
		store:    store,
		logger:   logger,
		opts:     opts,
		caches:   make(map[string]*Cache),
		resident: resident,
	}, nil
}

// For returns the cache of the project rooted at dir.
func (r *Registry) For(dir string) *Cache {
	key := dir
	if abs, err := filepath.Abs(dir); err == nil {
		key = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[key]
	if !ok {
		c = New(key, r.store, r.logger, r.opts...)
		r.caches[key] = c
	}
	r.resident.Add(key, c)
	return c
}

// Close closes the backing store.
func (r *Registry) Close() error {
	r.resident.Purge()
	return r.store.Close()
}
