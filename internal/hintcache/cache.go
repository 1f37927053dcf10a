// Package hintcache implements the Hint Cache: a persisted symbol->path and
// directory-weight store that biases future Search Cycles toward
// previously-successful locations. The cache is advisory only -- a cold or
// corrupt cache must never change correctness, only latency.
package hintcache

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/swegrep/swegrep/internal/searchtypes"
)

// decayFactor is the EWMA decay applied on each record.
const decayFactor = 0.5

// stateFileName is the single JSON document holding the whole CacheState.
const stateFileName = "state.json"

// Cache owns one CacheState scoped to a directory. Load it once at cycle
// entry, mutate via Record, and Flush once at cycle exit.
type Cache struct {
	dir     string
	logger  *slog.Logger
	state   *searchtypes.CacheState
	dirty   bool
	loadErr error
}

// Open loads the cache rooted at dir (typically <root>/.swe-grep-cache). A
// missing state.json yields an empty cache, never an error; a corrupt one
// is treated the same way and logged, since the cache is advisory and must
// never block a cycle.
func Open(dir string) *Cache {
	logger := slog.Default().With("component", "hintcache")
	c := &Cache{dir: dir, logger: logger}

	path := filepath.Join(dir, stateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Debug("cache read error, treating as empty", "path", path, "error", err)
			c.loadErr = err
		}
		c.state = searchtypes.NewCacheState()
		return c
	}

	var state searchtypes.CacheState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warn("cache corrupt, treating as empty", "path", path, "error", err)
		c.loadErr = err
		c.state = searchtypes.NewCacheState()
		return c
	}
	if state.Symbols == nil {
		state.Symbols = make(map[string][]searchtypes.Hint)
	}
	if state.Dirs == nil {
		state.Dirs = make(map[string]float64)
	}
	c.state = &state
	return c
}

// LoadError returns the error encountered while loading the cache, if any.
// A non-nil value here does not mean the cache is unusable -- Open always
// falls back to an empty state.
func (c *Cache) LoadError() error {
	return c.loadErr
}

// Seed returns the prior-hit paths for symbol, highest ScoreEWMA first.
func (c *Cache) Seed(symbol string) []string {
	hints := c.state.Symbols[symbol]
	if len(hints) == 0 {
		return nil
	}
	sorted := make([]searchtypes.Hint, len(hints))
	copy(sorted, hints)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ScoreEWMA > sorted[j].ScoreEWMA
	})
	paths := make([]string, len(sorted))
	for i, h := range sorted {
		paths[i] = h.Path
	}
	return paths
}

// SeededDirWeights returns the directory-weight map accumulated across prior
// cycles, used by Discover to bias path-scope ordering.
func (c *Cache) SeededDirWeights() map[string]float64 {
	return c.state.Dirs
}

// IsNovel reports whether path has never been associated with symbol in the
// cache -- the novelty signal consumed by the Scorer.
func (c *Cache) IsNovel(symbol, path string) bool {
	for _, h := range c.state.Symbols[symbol] {
		if h.Path == path {
			return false
		}
	}
	return true
}

// Record updates the cache with the accepted hits from a completed cycle.
// It is a no-op (and leaves the cache un-dirtied) when acceptedHits is
// empty, enforcing the invariant that a miss never mutates the on-disk
// cache.
func (c *Cache) Record(symbol string, acceptedHits []searchtypes.Hit) {
	if len(acceptedHits) == 0 {
		return
	}

	now := time.Now()
	existing := c.state.Symbols[symbol]
	byPath := make(map[string]*searchtypes.Hint, len(existing))
	for i := range existing {
		byPath[existing[i].Path] = &existing[i]
	}

	seenDirs := make(map[string]bool)
	for _, hit := range acceptedHits {
		if h, ok := byPath[hit.Path]; ok {
			h.HitCount++
			h.LastSeen = now
			h.ScoreEWMA = h.ScoreEWMA*decayFactor + hit.Score*(1-decayFactor)
		} else {
			newHint := searchtypes.Hint{
				Symbol:    symbol,
				Path:      hit.Path,
				LastSeen:  now,
				HitCount:  1,
				ScoreEWMA: hit.Score,
			}
			existing = append(existing, newHint)
			byPath[hit.Path] = &existing[len(existing)-1]
		}

		dir := filepath.Dir(hit.Path)
		if dir != "." && !seenDirs[dir] {
			seenDirs[dir] = true
			c.state.Dirs[dir] = c.state.Dirs[dir]*decayFactor + (1-decayFactor)
		}
	}

	c.state.Symbols[symbol] = existing
	c.dirty = true
}

// Flush atomically persists the cache state to disk. It is skipped
// entirely when no mutation occurred this cycle, so a read-only cycle never
// advances state.json's mtime.
func (c *Cache) Flush() error {
	if !c.dirty {
		return nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	lock := NewFileLock(c.dir)
	if err := lock.TryLock(); err != nil {
		c.logger.Warn("cache lock unavailable, skipping flush", "error", err)
		return nil
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(c.state, "", "  ")
	if err != nil {
		return err
	}

	final := filepath.Join(c.dir, stateFileName)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return err
	}

	c.dirty = false
	return nil
}

// Dirty reports whether Record has staged any mutation not yet flushed.
func (c *Cache) Dirty() bool {
	return c.dirty
}

// Clear removes the persisted state.json, discarding every seeded symbol
// and directory weight. Used by `swegrep cache clear`. A missing file is
// not an error.
func (c *Cache) Clear() error {
	if _, err := os.Stat(c.dir); errors.Is(err, os.ErrNotExist) {
		c.state = searchtypes.NewCacheState()
		c.dirty = false
		return nil
	}

	lock := NewFileLock(c.dir)
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer lock.Unlock()

	err := os.Remove(filepath.Join(c.dir, stateFileName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	c.state = searchtypes.NewCacheState()
	c.dirty = false
	return nil
}
