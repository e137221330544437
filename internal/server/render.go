package server

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/storyindex/internal/index"
	"github.com/Aman-CERP/storyindex/internal/wire"
)

type renderKey struct {
	generation uint64
	format     wire.Format
}

type rendered struct {
	body []byte
	etag string
}

// renderCache keeps encoded bodies per (generation, format). A generation
// never changes content, so entries are never invalidated, only evicted.
type renderCache struct {
	cache        *lru.Cache[renderKey, rendered]
	storyStoreV7 bool
}

func newRenderCache(size int, storyStoreV7 bool) (*renderCache, error) {
	c, err := lru.New[renderKey, rendered](size)
	if err != nil {
		return nil, err
	}
	return &renderCache{cache: c, storyStoreV7: storyStoreV7}, nil
}

// render returns the encoded snapshot. Encoding failures are not cached.
func (r *renderCache) render(snap *index.Snapshot, f wire.Format) (rendered, error) {
	key := renderKey{generation: snap.Generation, format: f}
	if out, ok := r.cache.Get(key); ok {
		return out, nil
	}
	body, err := wire.Encode(snap, f, r.storyStoreV7)
	if err != nil {
		return rendered{}, err
	}
	out := rendered{body: body, etag: etag(body)}
	r.cache.Add(key, out)
	return out, nil
}

func (r *renderCache) len() int {
	return r.cache.Len()
}

func etag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}
