package indexer

import "sync"

// Registry is an ordered set of indexers.
type Registry struct {
	mu       sync.RWMutex
	indexers []Indexer
}

// NewRegistry creates a registry holding the given indexers in order.
func NewRegistry(indexers ...Indexer) *Registry {
	r := &Registry{}
	for _, ix := range indexers {
		r.Register(ix)
	}
	return r
}

// Register appends an indexer. Earlier registrations win on overlap.
func (r *Registry) Register(ix Indexer) {
	if ix == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexers = append(r.indexers, ix)
}

// Resolve returns the first indexer whose Test accepts path.
func (r *Registry) Resolve(path string) (Indexer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ix := range r.indexers {
		if ix.Test(path) {
			return ix, true
		}
	}
	return nil, false
}

// Names returns the registered indexer names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.indexers))
	for _, ix := range r.indexers {
		names = append(names, ix.Name())
	}
	return names
}

// Len returns the number of registered indexers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.indexers)
}
