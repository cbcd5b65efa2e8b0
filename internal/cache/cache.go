// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the TTL-bounded query cache for terminology search
// results. The cache is keyed by normalized phrase, then match kind, then
// source name, and persists wholesale to a single JSON document.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
)

// Entry is one cached query unit: the accepted per-source results of a single
// search (empty when the search yielded nothing acceptable), stamped with the
// time it was written.
type Entry struct {
	// Results holds the accepted results of the cached query, keyed by
	// terminology source name. An entry with no results records a search
	// that was performed but produced no acceptable match.
	Results map[string]match.Result `json:"results,omitempty"`

	// CacheTime is the Unix-epoch-seconds write time used for expiry.
	CacheTime int64 `json:"cache_time"`
}

// bucket groups a phrase's entries by match kind and source name.
type bucket map[match.Kind]map[string]Entry

// MatchCache is a thread-safe, TTL-bounded store of terminology query
// results. Writes are first-write-wins: once a value exists under a
// (phrase, kind, source) key it is never silently replaced; callers needing a
// refresh must let the entry expire (or sweep it) first.
type MatchCache struct {
	mu      sync.Mutex
	items   map[string]bucket
	ttl     time.Duration
	enabled bool
	path    string
	now     func() time.Time

	observer *observability.StandardObserver
}

// Options configures a MatchCache.
type Options struct {
	Enabled bool
	Path    string
	TTL     time.Duration
}

// New creates a MatchCache and loads any persisted state from disk. A missing
// or corrupt cache file yields an empty cache; that is a warning, not an
// error, because the cache is best-effort.
func New(opts Options, observer *observability.StandardObserver) *MatchCache {
	c := &MatchCache{
		items:    make(map[string]bucket),
		ttl:      opts.TTL,
		enabled:  opts.Enabled,
		path:     opts.Path,
		now:      time.Now,
		observer: observer,
	}
	c.Load()
	return c
}

// Get returns the cached entry for (kind, source, phrase), or false when the
// cache is disabled, the entry is absent, or the entry has expired.
func (c *MatchCache) Get(kind match.Kind, source, phrase string) (Entry, bool) {
	if c == nil || !c.enabled {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kinds, ok := c.items[phrase]
	if !ok {
		return Entry{}, false
	}
	entry, ok := kinds[kind][source]
	if !ok {
		return Entry{}, false
	}
	if c.expired(entry) {
		return Entry{}, false
	}
	return entry, true
}

// Put stores results under (kind, source, phrase). Existing entries are kept
// untouched (first-write-wins); the timestamp is assigned here so an entry is
// only ever observed as a complete record.
func (c *MatchCache) Put(kind match.Kind, source, phrase string, results map[string]match.Result) {
	if c == nil || !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kinds, ok := c.items[phrase]
	if !ok {
		kinds = bucket{
			match.KindTerminology: {},
			match.KindCollection:  {},
			match.KindAll:         {},
		}
		c.items[phrase] = kinds
	}
	if kinds[kind] == nil {
		kinds[kind] = make(map[string]Entry)
	}

	if _, exists := kinds[kind][source]; exists {
		return
	}
	kinds[kind][source] = Entry{
		Results:   results,
		CacheTime: c.now().Unix(),
	}
}

// Sweep removes every entry older than the TTL and drops phrase buckets that
// end up empty.
func (c *MatchCache) Sweep() {
	if c == nil || !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for phrase, kinds := range c.items {
		remaining := 0
		for _, sources := range kinds {
			for source, entry := range sources {
				if c.expired(entry) {
					delete(sources, source)
				}
			}
			remaining += len(sources)
		}
		if remaining == 0 {
			delete(c.items, phrase)
		}
	}
}

// Len returns the number of phrases with at least one cached entry.
func (c *MatchCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Load replaces the cache contents with the persisted file. Absent or
// malformed files reset to an empty cache.
func (c *MatchCache) Load() {
	if c == nil || !c.enabled || c.path == "" {
		return
	}

	data, err := os.ReadFile(filepath.Clean(c.path))
	if err != nil {
		if !os.IsNotExist(err) {
			c.observer.LogError("cache", "load", c.path, err)
		}
		return
	}

	loaded := make(map[string]bucket)
	if err := json.Unmarshal(data, &loaded); err != nil {
		c.observer.LogError("cache", "load", c.path, fmt.Errorf("invalid cache file, starting empty: %w", err))
		return
	}

	c.mu.Lock()
	c.items = loaded
	c.mu.Unlock()

	// Entries persisted before the TTL window are of no use.
	c.Sweep()
}

// Persist sweeps expired entries and writes the cache as a single JSON
// document. Persist failures are logged, never fatal.
func (c *MatchCache) Persist() error {
	if c == nil || !c.enabled || c.path == "" {
		return nil
	}

	c.Sweep()

	c.mu.Lock()
	data, err := json.MarshalIndent(c.items, "", "  ")
	c.mu.Unlock()
	if err != nil {
		c.observer.LogError("cache", "persist", c.path, err)
		return err
	}

	if err := os.WriteFile(c.path, data, 0600); err != nil {
		c.observer.LogError("cache", "persist", c.path, err)
		return err
	}
	return nil
}

func (c *MatchCache) expired(entry Entry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(time.Unix(entry.CacheTime, 0)) > c.ttl
}
