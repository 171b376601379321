// Package cache stores formatted analysis results keyed by a digest of their
// inputs, so an unchanged set of bundles is not analyzed twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const formatVersion = 1

// Entry is one cached result.
type Entry struct {
	Output     string `json:"output"`
	Terminated bool   `json:"terminated,omitempty"`
	Errors     int    `json:"errors,omitempty"`
}

type fileData struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// ResultCache maps input digests to results. A cache with an empty file path
// is disabled: Get always misses and Save does nothing.
type ResultCache struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	filePath string
	dirty    bool
	logger   *slog.Logger
}

// NewResultCache creates a cache backed by filePath. An empty path disables it.
func NewResultCache(filePath string, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{
		entries:  make(map[string]Entry),
		filePath: filePath,
		logger:   logger,
	}
}

// IsEnabled reports whether the cache has a backing file.
func (c *ResultCache) IsEnabled() bool {
	return c.filePath != ""
}

// FilePath returns the backing file path.
func (c *ResultCache) FilePath() string {
	return c.filePath
}

// Load reads the backing file. A missing file is an empty cache; a corrupted
// or outdated file is discarded with a warning.
func (c *ResultCache) Load() error {
	if !c.IsEnabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			c.entries = make(map[string]Entry)
			return nil
		}
		return fmt.Errorf("read cache file %s: %w", c.filePath, err)
	}
	if len(data) == 0 {
		c.entries = make(map[string]Entry)
		return nil
	}

	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil || fd.Version != formatVersion {
		c.logger.Warn("discarding unreadable cache file", "path", c.filePath, "error", err, "version", fd.Version)
		c.entries = make(map[string]Entry)
		return nil
	}
	if fd.Entries == nil {
		fd.Entries = make(map[string]Entry)
	}
	c.entries = fd.Entries
	return nil
}

// Save writes the cache if it changed since Load.
func (c *ResultCache) Save() error {
	if !c.IsEnabled() {
		return nil
	}

	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	fd := fileData{Version: formatVersion, Entries: make(map[string]Entry, len(c.entries))}
	for k, v := range c.entries {
		fd.Entries[k] = v
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(fd, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0o750); err != nil {
		return fmt.Errorf("create cache directory for %s: %w", c.filePath, err)
	}
	if err := os.WriteFile(c.filePath, data, 0o640); err != nil {
		return fmt.Errorf("write cache file %s: %w", c.filePath, err)
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Get returns the entry for key.
func (c *ResultCache) Get(key string) (Entry, bool) {
	if !c.IsEnabled() {
		return Entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Set stores an entry.
func (c *ResultCache) Set(key string, e Entry) {
	if !c.IsEnabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	c.dirty = true
}

// Len returns the number of entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Key digests the given inputs in order. Each part is length-prefixed, so
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:", len(p))
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
