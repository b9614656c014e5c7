// Package cache implements the path-keyed, timestamp-validated, LRU module
// cache. Keys are 64-bit hashes of the absolute manifest path,
// computed with github.com/cespare/xxhash/v2 rather than the path string
// itself, to avoid a map-key allocation per lookup.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zephyr-sh/zephyr/pkg/logger"
	"github.com/zephyr-sh/zephyr/pkg/manifest"
)

var log = logger.New("cache")

// Entry is one cached, parsed module.
type Entry struct {
	FilePath       string           `json:"file_path"`
	FileHash       uint64           `json:"file_hash"`
	Module         *manifest.Module `json:"module"`
	FileTimestamp  time.Time        `json:"file_timestamp"`
	ParseTimestamp time.Time        `json:"parse_timestamp"`
	AccessCount    uint64           `json:"access_count"`
}

// schemaVersion is written into every persisted snapshot; snapshots with a
// different or missing version are ignored rather than rejected loudly.
const schemaVersion = 1

// snapshot is the on-disk representation of a Cache.
type snapshot struct {
	SchemaVersion int              `json:"schema_version"`
	Entries       map[uint64]Entry `json:"entries"`
}

// Cache is the process-wide module cache. The zero value is not usable;
// construct with New.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[uint64]*Entry
	resolved   map[string][]string // resolution_key -> resolved module name order
	path       string               // snapshot file path, empty disables persistence
}

// New constructs a Cache bounded to maxEntries, optionally persisted to
// snapshotPath (pass "" to keep it in-memory only).
func New(maxEntries int, snapshotPath string) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[uint64]*Entry),
		resolved:   make(map[string][]string),
		path:       snapshotPath,
	}
}

// Key computes the cache key for an absolute module path.
func Key(absPath string) uint64 {
	return xxhash.Sum64String(absPath)
}

// Get returns a deep clone of the cached module for absPath if the on-disk
// mtime still matches the cached entry's FileTimestamp, parsing it fresh
// (via parseFn) and inserting the result otherwise. A stat failure
// invalidates and removes any existing entry.
func (c *Cache) Get(absPath string, parseFn func(string) (*manifest.Module, error)) (*manifest.Module, error) {
	key := Key(absPath)

	info, statErr := os.Stat(absPath)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && statErr != nil {
		delete(c.entries, key)
		ok = false
	}
	if ok && (statErr != nil || !info.ModTime().Equal(entry.FileTimestamp)) {
		ok = false
	}
	if ok {
		entry.AccessCount++
		cloned := entry.Module.Clone()
		c.mu.Unlock()
		log.Printf("cache hit: %s", absPath)
		return cloned, nil
	}
	c.mu.Unlock()

	if statErr != nil {
		return nil, statErr
	}

	log.Printf("cache miss: %s", absPath)
	m, err := parseFn(absPath)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &Entry{
		FilePath:       absPath,
		FileHash:       key,
		Module:         m.Clone(),
		FileTimestamp:  info.ModTime(),
		ParseTimestamp: time.Now(),
		AccessCount:    1,
	}
	c.evictIfNeeded()
	c.mu.Unlock()

	return m.Clone(), nil
}

// evictIfNeeded removes the lowest-scoring entry while the cache exceeds
// maxEntries. Score is access_count / (hours_since_parse + 1); lowest score
// is evicted first. Caller must hold c.mu.
func (c *Cache) evictIfNeeded() {
	for len(c.entries) > c.maxEntries {
		var worstKey uint64
		var worstScore float64
		first := true
		now := time.Now()
		for k, e := range c.entries {
			hours := now.Sub(e.ParseTimestamp).Hours()
			score := float64(e.AccessCount) / (hours + 1)
			if first || score < worstScore {
				worstScore = score
				worstKey = k
				first = false
			}
		}
		delete(c.entries, worstKey)
	}
}

// PutResolution caches a resolver's output order under resolutionKey.
func (c *Cache) PutResolution(resolutionKey string, order []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved[resolutionKey] = append([]string(nil), order...)
}

// GetResolution returns a cached resolver output, if any.
func (c *Cache) GetResolution(resolutionKey string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.resolved[resolutionKey]
	if !ok {
		return nil, false
	}
	return append([]string(nil), order...), true
}

// Len returns the number of cached module entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Load best-effort restores a persisted snapshot. A missing, unreadable, or
// schema-mismatched file silently leaves the cache empty.
func (c *Cache) Load() {
	if c.path == "" {
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		log.Printf("no snapshot to load at %s: %v", c.path, err)
		return
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("corrupt snapshot at %s, starting empty: %v", c.path, err)
		return
	}
	if snap.SchemaVersion != schemaVersion {
		log.Printf("snapshot schema_version %d != %d, starting empty", snap.SchemaVersion, schemaVersion)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range snap.Entries {
		entryCopy := e
		c.entries[k] = &entryCopy
	}
}

// Save best-effort persists the cache. Failure is logged but never fatal —
// persistence is advisory.
func (c *Cache) Save() {
	if c.path == "" {
		return
	}

	c.mu.Lock()
	snap := snapshot{SchemaVersion: schemaVersion, Entries: make(map[uint64]Entry, len(c.entries))}
	for k, e := range c.entries {
		snap.Entries[k] = *e
	}
	c.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("failed to serialize cache snapshot: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		log.Printf("failed to create cache directory: %v", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		log.Printf("failed to write cache snapshot: %v", err)
	}
}
