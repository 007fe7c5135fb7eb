// Package listingcache records which glob patterns each listing page depends
// on, so an incremental render can find the listing pages a change affects.
package listingcache

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/glob"
	"github.com/starford/folio/internal/models"
)

// Cache is the listing map of a single project. The map is loaded lazily on
// first access and written through to the Store on every mutation.
type Cache struct {
	project string
	store   Store
	logger  *slog.Logger
	matcher glob.Matcher

	mu      sync.Mutex
	loaded  bool
	loadErr error
	entries map[string][]string
}

// Option configures a Cache.
type Option func(*Cache)

// WithMatcher replaces the glob.Doublestar matcher used by AffectedListings.
func WithMatcher(m glob.Matcher) Option {
	return func(c *Cache) {
		if m != nil {
			c.matcher = m
		}
	}
}

// New returns the cache for the project rooted at project.
func New(project string, store Store, logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{project: project, store: store, logger: logger, matcher: glob.Doublestar{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Project returns the project root the cache is keyed by.
func (c *Cache) Project() string { return c.project }

// ensureLoaded must be called with c.mu held.
func (c *Cache) ensureLoaded(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true
	entries, err := c.store.Load(ctx, c.project)
	if err != nil {
		// Fail open: the map is treated as empty and the error is kept so
		// callers can fall back to a full render.
		c.entries = make(map[string][]string)
		c.loadErr = fmt.Errorf("%w: %v", apperr.ErrCacheUnavailable, err)
		c.logger.Warn("listingcache: load failed, treating as empty",
			slog.String("project", c.project),
			slog.String("error", err.Error()))
		return
	}
	c.entries = entries
}

// unload drops the in-memory map so the next access reloads it. A cache in
// use keeps its map.
func (c *Cache) unload() {
	if !c.mu.TryLock() {
		return
	}
	defer c.mu.Unlock()
	c.loaded = false
	c.loadErr = nil
	c.entries = nil
	c.logger.Debug("listingcache: unloaded", slog.String("project", c.project))
}

// RecordListing overwrites the entry for page with the union of the content
// patterns of descriptors, rebased onto the project root.
func (c *Cache) RecordListing(ctx context.Context, page string, descriptors []models.Descriptor) error {
	page = glob.Normalize(page)
	patterns := DerivePatterns(page, descriptors)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	if err := c.store.Put(ctx, c.project, page, patterns); err != nil {
		return err
	}
	c.entries[page] = patterns
	c.logger.Debug("listingcache: recorded",
		slog.String("page", page),
		slog.Int("patterns", len(patterns)))
	return nil
}

// ClearAll empties the cache. A full render calls it before rebuilding every
// listing page, which also recovers from an unreadable record.
func (c *Cache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx, c.project); err != nil {
		return err
	}
	c.entries = make(map[string][]string)
	c.loaded = true
	c.loadErr = nil
	c.logger.Debug("listingcache: cleared", slog.String("project", c.project))
	return nil
}

// AffectedListings returns the listing pages whose patterns match at least
// one of the changed project-relative paths, sorted. A changed path may name
// a removed or renamed directory; it then affects every page whose patterns
// could match a file below it. When the persisted map
// could not be read the result is empty and the error wraps
// apperr.ErrCacheUnavailable.
func (c *Cache) AffectedListings(ctx context.Context, changed []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	if c.loadErr != nil {
		return nil, c.loadErr
	}

	var out []string
	for page, patterns := range c.entries {
		for _, f := range changed {
			if c.matcher.Match(patterns, f) {
				out = append(out, page)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Patterns returns a copy of the patterns recorded for page.
func (c *Cache) Patterns(ctx context.Context, page string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	p, ok := c.entries[glob.Normalize(page)]
	return append([]string(nil), p...), ok, c.loadErr
}

// Entries returns a copy of the whole map.
func (c *Cache) Entries(ctx context.Context) (map[string][]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)

	out := make(map[string][]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = append([]string(nil), v...)
	}
	return out, c.loadErr
}

// DerivePatterns derives the de-duplicated, order-preserving union of the content
// patterns of descriptors. Patterns are written relative to the declaring
// page and are rebased onto the project root.
func DerivePatterns(page string, descriptors []models.Descriptor) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, d := range descriptors {
		src := d.Source
		if src == "" {
			src = page
		}
		dir := path.Dir(glob.Normalize(src))
		for _, raw := range d.Listing.Contents {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			p := glob.Rebase(dir, raw)
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
