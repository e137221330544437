package index

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

// LoadFunc extracts the inputs of one file.
type LoadFunc func(ctx context.Context, path string) ([]indexer.IndexInput, error)

// fileRecord is the memo for one absolute path.
type fileRecord struct {
	inputs  []indexer.IndexInput
	err     error
	version uint64
	done    bool
}

// CacheStats reports cache counters.
type CacheStats struct {
	Records     int   `json:"records"`
	Extractions int64 `json:"extractions"`
	Hits        int64 `json:"hits"`
}

// Cache memoizes extraction results per absolute path.
// Safe for concurrent use.
type Cache struct {
	load LoadFunc

	mu      sync.Mutex
	records map[string]*fileRecord
	version uint64

	group       singleflight.Group
	extractions atomic.Int64
	hits        atomic.Int64
}

// NewCache creates a cache that extracts through load.
func NewCache(load LoadFunc) *Cache {
	return &Cache{
		load:    load,
		records: make(map[string]*fileRecord),
	}
}

// Get returns the inputs for path, extracting on first access or after
// invalidation. Concurrent calls for the same path and record version share
// one extraction. Failures are memoized and returned as ExtractionError.
func (c *Cache) Get(ctx context.Context, path string) ([]indexer.IndexInput, error) {
	c.mu.Lock()
	rec, ok := c.records[path]
	if !ok {
		c.version++
		rec = &fileRecord{version: c.version}
		c.records[path] = rec
	}
	if rec.done {
		inputs, err := rec.inputs, rec.err
		c.mu.Unlock()
		c.hits.Add(1)
		return inputs, err
	}
	version := rec.version
	c.mu.Unlock()

	key := path + "#" + strconv.FormatUint(version, 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		c.extractions.Add(1)
		inputs, loadErr := c.load(ctx, path)
		if loadErr != nil {
			loadErr = sierrors.ExtractionError(path, loadErr)
		}

		c.mu.Lock()
		// A record invalidated or dropped meanwhile keeps its new state.
		if cur, ok := c.records[path]; ok && cur == rec && cur.version == version {
			cur.inputs = inputs
			cur.err = loadErr
			cur.done = true
		}
		c.mu.Unlock()

		return inputs, loadErr
	})
	if err != nil {
		return nil, err
	}
	inputs, _ := v.([]indexer.IndexInput)
	return inputs, nil
}

// Invalidate marks path dirty, or drops its record when removed.
func (c *Cache) Invalidate(path string, removed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if removed {
		delete(c.records, path)
		return
	}
	if rec, ok := c.records[path]; ok {
		c.version++
		rec.version = c.version
		rec.inputs = nil
		rec.err = nil
		rec.done = false
	}
}

// Retain drops every record whose path is not in keep.
func (c *Cache) Retain(keep map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path := range c.records {
		if _, ok := keep[path]; !ok {
			delete(c.records, path)
		}
	}
}

// Has reports whether path has a completed record.
func (c *Cache) Has(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[path]
	return ok && rec.done
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	records := len(c.records)
	c.mu.Unlock()
	return CacheStats{
		Records:     records,
		Extractions: c.extractions.Load(),
		Hits:        c.hits.Load(),
	}
}
